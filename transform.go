package s3stream

import (
	"encoding/base64"
	"encoding/hex"
	"io"

	md5simd "github.com/minio/md5-simd"
	sha256simd "github.com/minio/sha256-simd"
)

// sizeVerifyReader wraps src so that the byte-stream chain handed to the
// chunker never sees more than declared bytes, the way a LimitReader
// would.
//
// Detecting an undersized source is handled by the caller comparing its
// own running tally (the sum of chunker part lengths) against declared
// once the chunker reports end-of-stream — not here. This reader only
// enforces the upper bound: io.ReadFull (used by chunkReader to assemble
// full minimumPartSize blocks) silently turns a short-but-exact read into
// a nil error whenever it happens to fill the requested buffer exactly,
// so an error returned from Read at precisely the n-bytes-requested
// boundary would be swallowed. Capping reads at the declared length and
// checking the underlying source afterward (verifyNoExcess) avoids
// depending on that swallowed-error path entirely.
type sizeVerifyReader struct {
	src      io.Reader
	declared int64
	read     int64
}

func newSizeVerifyReader(src io.Reader, declared int64) *sizeVerifyReader {
	return &sizeVerifyReader{src: src, declared: declared}
}

func (s *sizeVerifyReader) Read(p []byte) (int, error) {
	if s.declared >= 0 {
		remaining := s.declared - s.read
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err := s.src.Read(p)
	s.read += int64(n)
	return n, err
}

// verifyNoExcess reports a SizeMismatchError if src still has data beyond
// the declared boundary sizeVerifyReader capped reads at. Call once the
// chunker has reported end-of-stream.
func (s *sizeVerifyReader) verifyNoExcess() error {
	var probe [1]byte
	if n, _ := s.src.Read(probe[:]); n > 0 {
		return &SizeMismatchError{Declared: s.declared, Actual: s.read + int64(n)}
	}
	return nil
}

// chunkReader aggregates blocks of minimumPartSize from src into parts of
// exactly partSize bytes (the final part may be shorter). It uses
// io.ReadFull for every block read so a short read only ever means the
// source has genuinely ended, never a slow/partial upstream write: a
// part boundary is never mistaken for end-of-stream.
type chunkReader struct {
	src      io.Reader
	partSize int64
	blockBuf []byte
}

func newChunkReader(src io.Reader, partSize int64) *chunkReader {
	return &chunkReader{src: src, partSize: partSize, blockBuf: make([]byte, minimumPartSize)}
}

// next reads the next part (up to partSize bytes, aggregated in
// minimumPartSize blocks) and reports whether the source is now
// exhausted. An empty, non-final part is never returned: if the source
// ends exactly on a part boundary, the next call returns an empty slice
// with eof true and a nil error.
func (c *chunkReader) next() (data []byte, eof bool, err error) {
	buf := make([]byte, 0, c.partSize)
	for int64(len(buf)) < c.partSize {
		remaining := c.partSize - int64(len(buf))
		blockSize := int64(minimumPartSize)
		if remaining < blockSize {
			blockSize = remaining
		}
		n, rerr := io.ReadFull(c.src, c.blockBuf[:blockSize])
		if n > 0 {
			if int64(n) > blockSize {
				return nil, false, &AggregationError{PartSize: c.partSize, AggregatedSize: int64(len(buf)) + int64(n)}
			}
			buf = append(buf, c.blockBuf[:n]...)
		}
		switch rerr {
		case nil:
			continue
		case io.EOF, io.ErrUnexpectedEOF:
			return buf, true, nil
		default:
			return nil, false, rerr
		}
	}
	if int64(len(buf)) > c.partSize {
		return nil, false, &AggregationError{PartSize: c.partSize, AggregatedSize: int64(len(buf))}
	}
	return buf, false, nil
}

// chunkDigest carries the digests the multipart engine needs per part:
// hex+base64 MD5 for Content-MD5 and the resume-skip comparison, and hex
// SHA256 for x-amz-content-sha256.
type chunkDigest struct {
	md5Hex    string
	md5Base64 string
	sha256Hex string
}

var md5Server = md5simd.NewServer()

// digestChunk computes MD5 and SHA256 over data.
func digestChunk(data []byte) chunkDigest {
	h := md5Server.NewHash()
	defer h.Close()
	h.Write(data)
	md5Sum := h.Sum(nil)

	sha := sha256simd.Sum256(data)

	return chunkDigest{
		md5Hex:    hex.EncodeToString(md5Sum),
		md5Base64: base64.StdEncoding.EncodeToString(md5Sum),
		sha256Hex: hex.EncodeToString(sha[:]),
	}
}
