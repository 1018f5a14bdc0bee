// Package s3utils provides the small, stateless helpers the request builder
// and signer need: path/query escaping and Amazon-endpoint/virtual-host
// detection, in the style of minio-go's own s3utils package and the
// getURLEncodedPath helper from its legacy v2 request.go.
package s3utils

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var amazonS3Host = regexp.MustCompile(`^s3[.-]([a-z0-9-]+\.)?amazonaws\.com(\.cn)?$`)

// IsAmazonEndpoint reports whether host is an *.amazonaws.com S3 endpoint.
func IsAmazonEndpoint(host string) bool {
	h, _, _ := splitHostPort(host)
	return amazonS3Host.MatchString(strings.ToLower(h))
}

func splitHostPort(host string) (h, port string, hasPort bool) {
	idx := strings.LastIndexByte(host, ':')
	if idx < 0 {
		return host, "", false
	}
	// Guard against IPv6 literals without a bracketed port.
	if strings.Contains(host[idx+1:], "]") {
		return host, "", false
	}
	return host[:idx], host[idx+1:], true
}

// IsVirtualHostSupported reports whether bucketName is safe to address as a
// DNS label under host (no dots, legal length, no uppercase, etc).
// Amazon and Google endpoints support virtual-host style for any
// DNS-compliant bucket name without dots; everything else is path-style
// only.
func IsVirtualHostSupported(host, bucketName string) bool {
	if bucketName == "" {
		return false
	}
	if !IsAmazonEndpoint(host) && !isGoogleEndpoint(host) {
		return false
	}
	if strings.Contains(bucketName, ".") {
		return false
	}
	return IsDNSCompliant(bucketName)
}

func isGoogleEndpoint(host string) bool {
	h, _, _ := splitHostPort(host)
	return strings.EqualFold(h, "storage.googleapis.com")
}

// IsDNSCompliant reports whether bucketName can be used as a single DNS
// label (lower-case, 3-63 chars, no consecutive dots, not IP-address
// shaped). It does not by itself decide legality for path-style requests.
func IsDNSCompliant(bucketName string) bool {
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return false
	}
	if strings.Contains(bucketName, "..") || strings.Contains(bucketName, ".-") || strings.Contains(bucketName, "-.") {
		return false
	}
	if net.ParseIP(bucketName) != nil {
		return false
	}
	for _, r := range bucketName {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return bucketName[0] != '.' && bucketName[0] != '-' &&
		bucketName[len(bucketName)-1] != '.' && bucketName[len(bucketName)-1] != '-'
}

// EncodePath escapes s the way S3 expects object keys to be escaped in both
// the URL path and in SigV4 canonical requests: every path segment is
// percent-escaped except for the unreserved characters and the segment
// separator '/', which is preserved.
func EncodePath(s string) string {
	var buf strings.Builder
	for _, r := range s {
		switch {
		case 'A' <= r && r <= 'Z', 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			buf.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == '~' || r == '/':
			buf.WriteRune(r)
		default:
			for _, b := range []byte(string(r)) {
				buf.WriteByte('%')
				buf.WriteString(strings.ToUpper(hexByte(b)))
			}
		}
	}
	return buf.String()
}

const hexDigits = "0123456789abcdef"

func hexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0f]})
}

// QueryEncode renders url.Values in sorted-key form with values fully
// percent-encoded, matching the canonical query string SigV4 requires.
func QueryEncode(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	return strings.ReplaceAll(v.Encode(), "+", "%20")
}
