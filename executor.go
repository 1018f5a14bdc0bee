package s3stream

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"

	sha256simd "github.com/minio/sha256-simd"

	"github.com/nodalio/s3stream/internal/s3signer"
	"github.com/nodalio/s3stream/internal/s3xml"
)

// requestInput bundles everything execute needs beyond the
// bucket/object/query/header tuple already on RequestSpec: the body to
// stream, the number of bytes it carries, and its SHA256 (hex), which the
// caller is responsible for computing incrementally as bytes pass
// through.
type requestInput struct {
	spec           RequestSpec
	body           io.Reader
	contentLength  int64
	sha256Hex      string // empty => s3signer.UnsignedPayload
	forcePathStyle bool
	expectedStatus int
}

// execute orchestrates one request end to end: resolve region -> build ->
// sign -> transport -> status check -> route to caller or to the error
// transformer. The returned *http.Response's Body is the caller's to read
// and close; on error the body has already been drained and the
// connection returned to the pool.
func (c *Client) execute(ctx context.Context, in requestInput) (*http.Response, error) {
	region, err := c.resolveRegion(in.spec.Bucket)
	if err != nil {
		return nil, err
	}

	req, err := c.buildRequest(in.spec, in.forcePathStyle)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	if in.body != nil {
		req.Body = io.NopCloser(in.body)
	}
	req.ContentLength = in.contentLength
	if in.contentLength < 0 {
		req.TransferEncoding = []string{"chunked"}
	}

	if !c.cfg.Anonymous() {
		shaHeader := in.sha256Hex
		if shaHeader == "" {
			shaHeader = s3signer.UnsignedPayload
		}
		req.Header.Set("x-amz-content-sha256", shaHeader)
		s3signer.SignV4(req, c.cfg.credentials(), region)
	}

	traceID := c.traceRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	c.traceResponse(traceID, resp)

	if resp.StatusCode == in.expectedStatus {
		return resp, nil
	}

	// Unexpected status: evict the bucket's cached region so the caller's
	// next attempt re-discovers it, then decode the XML <Error> body and
	// surface a ServerError.
	if in.spec.Bucket != "" {
		c.region.delete(in.spec.Bucket)
	}
	defer resp.Body.Close()
	er, decodeErr := s3xml.DecodeError(resp.Body)
	if decodeErr != nil {
		return nil, &ServerError{
			Code:       "Unknown",
			Message:    "failed to decode error response: " + decodeErr.Error(),
			StatusCode: resp.StatusCode,
			BucketName: in.spec.Bucket,
			ObjectName: in.spec.Object,
		}
	}
	return nil, serverErrorFromXML(resp.StatusCode, in.spec.Bucket, in.spec.Object, er)
}

// executeBuffered computes sha256Hex from an in-memory payload and
// delegates to execute.
func (c *Client) executeBuffered(ctx context.Context, spec RequestSpec, payload []byte, expectedStatus int) (*http.Response, error) {
	sum := sha256simd.Sum256(payload)
	return c.execute(ctx, requestInput{
		spec:           spec,
		body:           bytes.NewReader(payload),
		contentLength:  int64(len(payload)),
		sha256Hex:      hex.EncodeToString(sum[:]),
		expectedStatus: expectedStatus,
	})
}

// resolveRegion returns the default region for bucket-less calls, a cache
// hit, or a fresh GET ?location lookup signed in us-east-1.
func (c *Client) resolveRegion(bucket string) (string, error) {
	if bucket == "" {
		return defaultRegion, nil
	}
	if region, ok := c.region.get(bucket); ok {
		return region, nil
	}

	q := url.Values{}
	q.Set("location", "")
	req, err := c.buildRequest(RequestSpec{Method: http.MethodGet, Bucket: bucket, Query: q}, true)
	if err != nil {
		return "", err
	}
	if !c.cfg.Anonymous() {
		req.Header.Set("x-amz-content-sha256", s3signer.EmptyPayloadSHA256)
		s3signer.SignV4(req, c.cfg.credentials(), defaultRegion)
	}

	traceID := c.traceRequest(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Cause: err}
	}
	c.traceResponse(traceID, resp)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		er, decodeErr := s3xml.DecodeError(resp.Body)
		if decodeErr != nil {
			return "", &ServerError{Code: "Unknown", Message: decodeErr.Error(), StatusCode: resp.StatusCode, BucketName: bucket}
		}
		return "", serverErrorFromXML(resp.StatusCode, bucket, "", er)
	}

	location, err := s3xml.DecodeLocationConstraint(resp.Body)
	if err != nil {
		return "", err
	}
	c.region.set(bucket, location)
	return location, nil
}
