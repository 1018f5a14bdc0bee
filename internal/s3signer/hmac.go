package s3signer

import (
	"crypto/hmac"

	sha256simd "github.com/minio/sha256-simd"
)

// hmacSHA256 is split out from signv4.go so that tests can exercise the
// signing-key chain in isolation (kSecret -> kDate -> kRegion -> kService
// -> kSigning) without touching an *http.Request.
func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256simd.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
