package s3stream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nodalio/s3stream/internal/s3signer"
)

// PresignedGetObject returns a URL that authorizes a GET of bucket/object
// for expirySeconds without requiring the caller to hold credentials. It
// fails with AnonymousRequestError if the client itself has none, since
// there is nothing to sign with.
func (c *Client) PresignedGetObject(ctx context.Context, bucket, object string, expirySeconds int64, extraQuery url.Values) (string, error) {
	return c.presignedURL(ctx, http.MethodGet, bucket, object, expirySeconds, extraQuery)
}

// PresignedPutObject returns a URL that authorizes a single-shot PUT of
// bucket/object for expirySeconds.
func (c *Client) PresignedPutObject(ctx context.Context, bucket, object string, expirySeconds int64) (string, error) {
	return c.presignedURL(ctx, http.MethodPut, bucket, object, expirySeconds, nil)
}

func (c *Client) presignedURL(ctx context.Context, method, bucket, object string, expirySeconds int64, extraQuery url.Values) (string, error) {
	if c.cfg.Anonymous() {
		return "", &AnonymousRequestError{Operation: "presign"}
	}
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return "", err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return "", err
	}
	if expirySeconds <= 0 || expirySeconds > 7*24*3600 {
		return "", &InvalidArgumentError{Message: "presign expiry must be between 1 second and 7 days"}
	}

	region, err := c.resolveRegion(bucket)
	if err != nil {
		return "", err
	}

	req, err := c.buildRequest(RequestSpec{Method: method, Bucket: bucket, Object: object, Query: extraQuery}, false)
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)

	signed := s3signer.PreSignV4(req, c.cfg.credentials(), region, expirySeconds)
	return signed.URL.String(), nil
}
