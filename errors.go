package s3stream

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	sha256simd "github.com/minio/sha256-simd"

	"github.com/nodalio/s3stream/internal/s3xml"
)

// Configuration-time and input-validation errors are raised synchronously
// before any I/O; ServerError, NetworkError, SizeMismatchError and
// AggregationError surface from the request path itself. All of them
// satisfy the standard error interface; callers that need to distinguish
// a kind should use errors.As.

// InvalidEndpointError is raised when ClientConfig.Endpoint is empty or not
// a legal host, before any request is attempted.
type InvalidEndpointError struct {
	Endpoint string
}

func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q", e.Endpoint)
}

// InvalidPortError is raised when ClientConfig.Port falls outside [0, 65535].
type InvalidPortError struct {
	Port int
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d", e.Port)
}

// InvalidArgumentError covers any other configuration- or call-time
// argument that fails a sanity check before I/O is attempted.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// AnonymousRequestError is raised when a presign operation is attempted on
// a Client constructed with no access/secret key.
type AnonymousRequestError struct {
	Operation string
}

func (e *AnonymousRequestError) Error() string {
	return fmt.Sprintf("%s requires credentials: client is anonymous", e.Operation)
}

// ServerError wraps a decoded S3 <Error> response.
type ServerError struct {
	Code       string
	Message    string
	Resource   string
	RequestID  string
	StatusCode int
	BucketName string
	ObjectName string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("s3stream: %s (%s): %s [bucket=%s object=%s request-id=%s status=%d]",
		e.Code, e.Resource, e.Message, e.BucketName, e.ObjectName, e.RequestID, e.StatusCode)
}

func serverErrorFromXML(status int, bucketName, objectName string, er s3xml.ErrorResponse) *ServerError {
	return &ServerError{
		Code:       er.Code,
		Message:    er.Message,
		Resource:   er.Resource,
		RequestID:  er.RequestID,
		StatusCode: status,
		BucketName: bucketName,
		ObjectName: objectName,
	}
}

// NetworkError wraps an underlying transport failure (connection refused,
// timeout, context cancellation, ...) verbatim; there is no automatic
// retry.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("s3stream: network error: %v", e.Cause) }
func (e *NetworkError) Unwrap() error { return e.Cause }

// SizeMismatchError is raised when the caller-declared size differs from
// the bytes actually streamed during an upload.
type SizeMismatchError struct {
	Declared int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("s3stream: size mismatch: declared %s, streamed %s",
		humanize.IBytes(uint64Clamp(e.Declared)), humanize.IBytes(uint64Clamp(e.Actual)))
}

func uint64Clamp(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// asServerError is a errors.As convenience wrapper so call sites don't each
// need to declare the *ServerError local.
func asServerError(err error, target **ServerError) bool {
	return errors.As(err, target)
}

// sha256Hex hashes data and renders the digest as lowercase hex, the form
// x-amz-content-sha256 and SigV4's canonical request both expect.
func sha256Hex(data []byte) string {
	sum := sha256simd.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AggregationError is raised by the chunker transformer when an aggregated
// multipart part would exceed its target size, or an oversized chunk
// reaches the aggregator.
type AggregationError struct {
	PartSize       int64
	AggregatedSize int64
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("s3stream: chunk aggregation exceeded part size: target %s, aggregated %s",
		humanize.IBytes(uint64Clamp(e.PartSize)), humanize.IBytes(uint64Clamp(e.AggregatedSize)))
}
