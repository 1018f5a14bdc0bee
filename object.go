package s3stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/nodalio/s3stream/internal/s3xml"
)

// StatObject issues a HEAD on bucket/object, decoded into an ObjectStat
// from Content-Length, ETag, Content-Type and Last-Modified.
func (c *Client) StatObject(ctx context.Context, bucket, object string) (ObjectStat, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return ObjectStat{}, err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return ObjectStat{}, err
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodHead, Bucket: bucket, Object: object},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return ObjectStat{}, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return ObjectStat{
		Key:          object,
		Size:         s3xml.ParseSize(resp.Header.Get("Content-Length")),
		ETag:         trimETag(resp.Header.Get("ETag")),
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: s3xml.ParseLastModified(resp.Header.Get("Last-Modified")),
	}, nil
}

// GetObject streams the full contents of bucket/object. The caller must
// close the returned ReadCloser.
func (c *Client) GetObject(ctx context.Context, bucket, object string) (io.ReadCloser, ObjectStat, error) {
	return c.getObjectRange(ctx, bucket, object, -1, -1)
}

// GetPartialObject streams bytes [offset, offset+length) of bucket/object
// using a Range header; length <= 0 requests through EOF.
func (c *Client) GetPartialObject(ctx context.Context, bucket, object string, offset, length int64) (io.ReadCloser, ObjectStat, error) {
	return c.getObjectRange(ctx, bucket, object, offset, length)
}

func (c *Client) getObjectRange(ctx context.Context, bucket, object string, offset, length int64) (io.ReadCloser, ObjectStat, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return nil, ObjectStat{}, err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return nil, ObjectStat{}, err
	}

	headers := make(http.Header)
	expectedStatus := http.StatusOK
	if offset >= 0 {
		if length > 0 {
			headers.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
		} else {
			headers.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}
		expectedStatus = http.StatusPartialContent
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodGet, Bucket: bucket, Object: object, Headers: headers},
		expectedStatus: expectedStatus,
	})
	if err != nil {
		return nil, ObjectStat{}, err
	}

	stat := ObjectStat{
		Key:          object,
		Size:         s3xml.ParseSize(resp.Header.Get("Content-Length")),
		ETag:         trimETag(resp.Header.Get("ETag")),
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: s3xml.ParseLastModified(resp.Header.Get("Last-Modified")),
	}
	return resp.Body, stat, nil
}

// RemoveObject deletes bucket/object. S3 returns 204 whether or not the key
// existed, so this is idempotent.
func (c *Client) RemoveObject(ctx context.Context, bucket, object string) error {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return err
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodDelete, Bucket: bucket, Object: object},
		expectedStatus: http.StatusNoContent,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// FGetObject downloads bucket/object to filePath, resuming a prior partial
// download if a {filePath}.{etag}.part file exists whose size is smaller
// than the object's: it requests only the remaining range and appends, then
// atomically renames into place. A partial whose size already equals the
// object's is renamed into place without re-downloading; one larger than
// the object is removed and the download restarts from zero. A partial
// left by a different ETag has a different file name, so it is neither
// resumed nor removed, and the download starts from zero.
func (c *Client) FGetObject(ctx context.Context, bucket, object, filePath string) error {
	stat, err := c.StatObject(ctx, bucket, object)
	if err != nil {
		return err
	}

	partPath := fmt.Sprintf("%s.%s.part", filePath, stat.ETag)
	var startOffset int64
	if fi, err := os.Stat(partPath); err == nil {
		switch {
		case fi.Size() == stat.Size:
			return os.Rename(partPath, filePath)
		case fi.Size() < stat.Size:
			startOffset = fi.Size()
		default:
			os.Remove(partPath)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startOffset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(partPath, flags, 0o644)
	if err != nil {
		return err
	}

	var body io.ReadCloser
	if startOffset > 0 {
		body, _, err = c.GetPartialObject(ctx, bucket, object, startOffset, -1)
	} else {
		body, _, err = c.GetObject(ctx, bucket, object)
	}
	if err != nil {
		out.Close()
		return err
	}

	_, copyErr := io.Copy(out, body)
	body.Close()
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	return os.Rename(partPath, filePath)
}

// PutObject is an alias for PutObjectStream kept for callers that prefer
// the verb S3 itself uses; both drive the same single-shot/multipart
// decision.
func (c *Client) PutObject(ctx context.Context, bucket, object string, src io.Reader, size int64, opts PutObjectOptions) (ObjectStat, error) {
	return c.PutObjectStream(ctx, bucket, object, src, size, opts)
}

// ListObjects returns one page of bucket's key space, matching prefix, one
// level below delimiter (typically "/"); pass an empty marker for the
// first page.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix, delimiter, marker string, maxKeys int) (ObjectsPage, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return ObjectsPage{}, err
	}
	if err := c.validator.ValidObjectPrefix(prefix); err != nil {
		return ObjectsPage{}, err
	}

	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if delimiter != "" {
		q.Set("delimiter", delimiter)
	}
	if marker != "" {
		q.Set("marker", marker)
	}
	if maxKeys > 0 {
		q.Set("max-keys", fmt.Sprintf("%d", maxKeys))
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodGet, Bucket: bucket, Query: q},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return ObjectsPage{}, err
	}
	defer resp.Body.Close()

	result, err := s3xml.DecodeListBucket(resp.Body)
	if err != nil {
		return ObjectsPage{}, err
	}

	page := ObjectsPage{IsTruncated: result.IsTruncated, NextMarker: result.NextMarker}
	for _, o := range result.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          o.Key,
			Size:         o.Size,
			ETag:         trimETag(o.ETag),
			LastModified: s3xml.ParseLastModified(o.LastModified),
		})
	}
	for _, p := range result.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, p.Prefix)
	}
	if page.IsTruncated && page.NextMarker == "" && len(page.Objects) > 0 {
		page.NextMarker = page.Objects[len(page.Objects)-1].Key
	}
	return page, nil
}
