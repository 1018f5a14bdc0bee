package s3stream

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"

	"github.com/nodalio/s3stream/internal/s3signer"
	"github.com/nodalio/s3stream/internal/s3xml"
)

// createBucketConfiguration is the request body MakeBucket sends for any
// region other than us-east-1, the implicit default that takes no
// LocationConstraint element at all.
type createBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	LocationConstraint string   `xml:"LocationConstraint"`
}

// MakeBucket creates bucket in region with the given canned ACL. An empty
// region defaults to us-east-1 and sends no request body; any other
// region is sent as a LocationConstraint element, matching what S3 itself
// requires. An empty acl defaults to private.
func (c *Client) MakeBucket(ctx context.Context, bucket, region, acl string) error {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return err
	}
	if region == "" {
		region = defaultRegion
	}
	if acl == "" {
		acl = ACLPrivate
	}
	if err := c.validator.ValidACL(acl); err != nil {
		return err
	}

	var payload []byte
	if region != defaultRegion {
		body, err := xml.Marshal(createBucketConfiguration{LocationConstraint: region})
		if err != nil {
			return err
		}
		payload = append([]byte(xml.Header), body...)
	}

	resp, err := c.makeBucketRequest(ctx, bucket, region, acl, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.region.set(bucket, region)
	return nil
}

// makeBucketRequest signs PUT /{bucket} in region directly, bypassing the
// usual resolveRegion lookup: the bucket does not exist yet, so there is
// nothing to discover. MakeBucket seeds the region cache with the result
// instead of consulting it.
func (c *Client) makeBucketRequest(ctx context.Context, bucket, region, acl string, payload []byte) (*http.Response, error) {
	headers := make(http.Header)
	headers.Set("x-amz-acl", acl)
	req, err := c.buildRequest(RequestSpec{Method: http.MethodPut, Bucket: bucket, Headers: headers}, true)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	if len(payload) > 0 {
		req.Body = nopCloser{bytes.NewReader(payload)}
		req.ContentLength = int64(len(payload))
	}

	if !c.cfg.Anonymous() {
		shaHeader := s3signer.EmptyPayloadSHA256
		if len(payload) > 0 {
			shaHeader = sha256Hex(payload)
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

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()
	er, decodeErr := s3xml.DecodeError(resp.Body)
	if decodeErr != nil {
		return nil, &ServerError{Code: "Unknown", Message: decodeErr.Error(), StatusCode: resp.StatusCode, BucketName: bucket}
	}
	return nil, serverErrorFromXML(resp.StatusCode, bucket, "", er)
}

// ListBuckets returns every bucket owned by the caller's credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodGet},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result, err := s3xml.DecodeListAllMyBuckets(resp.Body)
	if err != nil {
		return nil, err
	}

	buckets := make([]BucketInfo, 0, len(result.Buckets.Bucket))
	for _, b := range result.Buckets.Bucket {
		buckets = append(buckets, BucketInfo{
			Name:         b.Name,
			CreationDate: s3xml.ParseLastModified(b.CreationDate),
		})
	}
	return buckets, nil
}

// BucketExists reports whether bucket exists and is accessible, via HEAD.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return false, err
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodHead, Bucket: bucket},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		var serverErr *ServerError
		if asServerError(err, &serverErr) && (serverErr.StatusCode == http.StatusNotFound || serverErr.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}
	defer resp.Body.Close()
	return true, nil
}

// RemoveBucket deletes bucket, which must be empty, and evicts it from the
// region cache.
func (c *Client) RemoveBucket(ctx context.Context, bucket string) error {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return err
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodDelete, Bucket: bucket},
		expectedStatus: http.StatusNoContent,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.region.delete(bucket)
	return nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
