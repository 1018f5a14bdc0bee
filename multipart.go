package s3stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"

	"github.com/nodalio/s3stream/internal/s3signer"
	"github.com/nodalio/s3stream/internal/s3xml"
)

// uploadContext is the transient state of one multipart upload attempt:
// the server-issued upload id, whichever parts the server already has
// (indexed by part number, for the resume-skip check), the planned part
// size, and how many bytes have been accounted for so far.
type uploadContext struct {
	uploadID      string
	existingParts map[int]PartRecord
	partSize      int64
	uploadedSize  int64
}

// PutObjectOptions carries the headers a put/multipart call may set.
type PutObjectOptions struct {
	ContentType string
	ACL         string
}

func (o PutObjectOptions) headers() http.Header {
	h := make(http.Header)
	if o.ContentType != "" {
		h.Set("Content-Type", o.ContentType)
	}
	if o.ACL != "" {
		h.Set("x-amz-acl", o.ACL)
	}
	return h
}

// PutObjectStream uploads src as bucket/object. size must be the exact
// number of bytes src will yield; size == 0 is a legal zero-byte object.
// Objects of size <= minimumPartSize go through the single-shot path;
// larger ones go through the multipart engine.
func (c *Client) PutObjectStream(ctx context.Context, bucket, object string, src io.Reader, size int64, opts PutObjectOptions) (ObjectStat, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return ObjectStat{}, err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return ObjectStat{}, err
	}
	if opts.ACL != "" {
		if err := c.validator.ValidACL(opts.ACL); err != nil {
			return ObjectStat{}, err
		}
	}
	if size > maxObjectSize {
		return ObjectStat{}, &InvalidArgumentError{Message: fmt.Sprintf("object size %d exceeds maxObjectSize", size)}
	}

	if size <= minimumPartSize {
		return c.putObjectSingleShot(ctx, bucket, object, src, size, opts)
	}
	return c.putObjectMultipart(ctx, bucket, object, src, size, opts)
}

// FPutObject uploads the file at filePath as bucket/object, using its stat
// size to decide single-shot vs multipart and as sizeVerifyReader's
// declared size.
func (c *Client) FPutObject(ctx context.Context, bucket, object, filePath string, opts PutObjectOptions) (ObjectStat, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return ObjectStat{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return ObjectStat{}, err
	}
	return c.PutObjectStream(ctx, bucket, object, f, fi.Size(), opts)
}

func (c *Client) putObjectSingleShot(ctx context.Context, bucket, object string, src io.Reader, size int64, opts PutObjectOptions) (ObjectStat, error) {
	data := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(src, data); err != nil {
			return ObjectStat{}, err
		}
	}
	digest := digestChunk(data)

	headers := opts.headers()
	headers.Set("Content-MD5", digest.md5Base64)

	spec := RequestSpec{Method: http.MethodPut, Bucket: bucket, Object: object, Headers: headers}
	resp, err := c.execute(ctx, requestInput{
		spec:           spec,
		body:           newByteReader(data),
		contentLength:  size,
		sha256Hex:      digest.sha256Hex,
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return ObjectStat{}, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return ObjectStat{
		Key:         object,
		Size:        size,
		ETag:        trimETag(resp.Header.Get("ETag")),
		ContentType: opts.ContentType,
	}, nil
}

// putObjectMultipart drives the multipart state machine: discover/resume,
// plan the part size, chunk and digest, skip parts already on the server,
// upload the rest in order, then complete.
func (c *Client) putObjectMultipart(ctx context.Context, bucket, object string, src io.Reader, size int64, opts PutObjectOptions) (ObjectStat, error) {
	uc, err := c.discoverUpload(ctx, bucket, object)
	if err != nil {
		return ObjectStat{}, err
	}
	uc.partSize = calculatePartSize(size)
	if uc.partSize > maximumPartSize {
		uc.partSize = maximumPartSize
	}

	sv := newSizeVerifyReader(src, size)
	chunker := newChunkReader(sv, uc.partSize)

	completed := make([]s3xml.CompletePart, 0, len(uc.existingParts)+4)

	partNumber := 1
	for {
		data, eof, err := chunker.next()
		if err != nil {
			return ObjectStat{}, err
		}
		if len(data) == 0 && eof {
			break
		}

		digest := digestChunk(data)

		if existing, ok := uc.existingParts[partNumber]; ok && existing.ETag == digest.md5Hex {
			completed = append(completed, s3xml.CompletePart{PartNumber: partNumber, ETag: addQuotes(existing.ETag)})
			uc.uploadedSize += int64(len(data))
		} else {
			etag, err := c.uploadPart(ctx, bucket, object, uc.uploadID, partNumber, data, digest)
			if err != nil {
				return ObjectStat{}, err
			}
			completed = append(completed, s3xml.CompletePart{PartNumber: partNumber, ETag: etag})
			uc.uploadedSize += int64(len(data))
		}

		if eof {
			break
		}
		partNumber++
	}

	if err := sv.verifyNoExcess(); err != nil {
		return ObjectStat{}, err
	}
	if uc.uploadedSize != size {
		return ObjectStat{}, &SizeMismatchError{Declared: size, Actual: uc.uploadedSize}
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].PartNumber < completed[j].PartNumber })
	return c.completeMultipartUpload(ctx, bucket, object, uc.uploadID, completed, size)
}

// discoverUpload finds a prior incomplete upload for object and its
// already-uploaded parts, or initiates a new one.
func (c *Client) discoverUpload(ctx context.Context, bucket, object string) (*uploadContext, error) {
	uploadID, err := c.findUploadID(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	if uploadID == "" {
		uploadID, err = c.initiateMultipartUpload(ctx, bucket, object)
		if err != nil {
			return nil, err
		}
		return &uploadContext{uploadID: uploadID, existingParts: map[int]PartRecord{}}, nil
	}

	parts, err := c.listUploadedParts(ctx, bucket, object, uploadID)
	if err != nil {
		return nil, err
	}
	return &uploadContext{uploadID: uploadID, existingParts: parts}, nil
}

// findUploadID locates a pending multipart upload for exactly object. The
// server's ?uploads listing only supports prefix matching, so a request
// for objectName as prefix can return uploads for sibling keys that share
// the prefix (e.g. "report" also matching "report-2024.csv"); this
// filters the page client-side for an exact Key match before trusting an
// upload id.
func (c *Client) findUploadID(ctx context.Context, bucket, object string) (string, error) {
	keyMarker := ""
	for {
		page, err := c.listIncompleteUploadsPage(ctx, bucket, object, keyMarker, "")
		if err != nil {
			return "", err
		}
		for _, u := range page.Uploads {
			if u.Key == object {
				return u.UploadID, nil
			}
		}
		if !page.IsTruncated {
			return "", nil
		}
		keyMarker = page.NextKeyMarker
	}
}

func (c *Client) listUploadedParts(ctx context.Context, bucket, object, uploadID string) (map[int]PartRecord, error) {
	parts := make(map[int]PartRecord)
	marker := 0
	for {
		q := url.Values{}
		q.Set("uploadId", uploadID)
		if marker > 0 {
			q.Set("part-number-marker", strconv.Itoa(marker))
		}
		resp, err := c.execute(ctx, requestInput{
			spec:           RequestSpec{Method: http.MethodGet, Bucket: bucket, Object: object, Query: q},
			expectedStatus: http.StatusOK,
		})
		if err != nil {
			return nil, err
		}
		page, err := s3xml.DecodeListParts(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		for _, p := range page.Part {
			parts[p.PartNumber] = PartRecord{PartNumber: p.PartNumber, ETag: trimETag(p.ETag), Size: p.Size}
		}
		if !page.IsTruncated {
			return parts, nil
		}
		marker = page.NextPartNumberMarker
	}
}

func (c *Client) initiateMultipartUpload(ctx context.Context, bucket, object string) (string, error) {
	q := url.Values{}
	q.Set("uploads", "")
	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodPost, Bucket: bucket, Object: object, Query: q},
		sha256Hex:      s3signer.EmptyPayloadSHA256,
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	result, err := s3xml.DecodeInitiateMultipartUpload(resp.Body)
	if err != nil {
		return "", err
	}
	return result.UploadID, nil
}

// uploadPart uploads one part and returns its raw, quoted ETag.
func (c *Client) uploadPart(ctx context.Context, bucket, object, uploadID string, partNumber int, data []byte, digest chunkDigest) (string, error) {
	q := url.Values{}
	q.Set("partNumber", strconv.Itoa(partNumber))
	q.Set("uploadId", uploadID)

	headers := make(http.Header)
	headers.Set("Content-MD5", digest.md5Base64)

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodPut, Bucket: bucket, Object: object, Query: q, Headers: headers},
		body:           newByteReader(data),
		contentLength:  int64(len(data)),
		sha256Hex:      digest.sha256Hex,
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("ETag"), nil
}

// completeMultipartUpload sends the final CompleteMultipartUpload request.
func (c *Client) completeMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []s3xml.CompletePart, size int64) (ObjectStat, error) {
	body, err := s3xml.EncodeCompleteMultipartUpload(parts)
	if err != nil {
		return ObjectStat{}, err
	}
	q := url.Values{}
	q.Set("uploadId", uploadID)

	resp, err := c.executeBuffered(ctx, RequestSpec{Method: http.MethodPost, Bucket: bucket, Object: object, Query: q}, body, http.StatusOK)
	if err != nil {
		return ObjectStat{}, err
	}
	defer resp.Body.Close()
	result, err := s3xml.DecodeCompleteMultipartUpload(resp.Body)
	if err != nil {
		return ObjectStat{}, err
	}
	return ObjectStat{Key: object, Size: size, ETag: trimETag(result.ETag)}, nil
}

// ListIncompleteUploads lists in-progress multipart uploads for bucket
// whose key starts with prefix, one page at a time via the supplied
// markers; pass empty markers for the first page.
func (c *Client) ListIncompleteUploads(ctx context.Context, bucket, prefix, keyMarker, uploadIDMarker string) (UploadsPage, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return UploadsPage{}, err
	}
	if err := c.validator.ValidObjectPrefix(prefix); err != nil {
		return UploadsPage{}, err
	}
	return c.listIncompleteUploadsPage(ctx, bucket, prefix, keyMarker, uploadIDMarker)
}

func (c *Client) listIncompleteUploadsPage(ctx context.Context, bucket, prefix, keyMarker, uploadIDMarker string) (UploadsPage, error) {
	q := url.Values{}
	q.Set("uploads", "")
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if keyMarker != "" {
		q.Set("key-marker", keyMarker)
	}
	if uploadIDMarker != "" {
		q.Set("upload-id-marker", uploadIDMarker)
	}

	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodGet, Bucket: bucket, Query: q},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return UploadsPage{}, err
	}
	defer resp.Body.Close()
	result, err := s3xml.DecodeListMultipartUploads(resp.Body)
	if err != nil {
		return UploadsPage{}, err
	}

	page := UploadsPage{
		IsTruncated:        result.IsTruncated,
		NextKeyMarker:      result.NextKeyMarker,
		NextUploadIDMarker: result.NextUploadIDMarker,
	}
	for _, u := range result.Upload {
		page.Uploads = append(page.Uploads, IncompleteUpload{
			Key:       u.Key,
			UploadID:  u.UploadID,
			Initiated: s3xml.ParseLastModified(u.Initiated),
		})
	}
	return page, nil
}

// RemoveIncompleteUpload locates the upload id via findUploadID, then
// DELETEs ?uploadId={id}. A no-op if no matching upload is pending.
func (c *Client) RemoveIncompleteUpload(ctx context.Context, bucket, object string) error {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return err
	}
	if err := c.validator.ValidObjectName(object); err != nil {
		return err
	}
	uploadID, err := c.findUploadID(ctx, bucket, object)
	if err != nil {
		return err
	}
	if uploadID == "" {
		return nil
	}

	q := url.Values{}
	q.Set("uploadId", uploadID)
	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodDelete, Bucket: bucket, Object: object, Query: q},
		sha256Hex:      s3signer.EmptyPayloadSHA256,
		expectedStatus: http.StatusNoContent,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func trimETag(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func addQuotes(s string) string {
	return `"` + s + `"`
}

type byteReader struct {
	data []byte
	off  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (b *byteReader) Read(p []byte) (int, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += n
	return n, nil
}
