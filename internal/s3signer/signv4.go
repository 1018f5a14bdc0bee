// Package s3signer implements AWS SigV4 request signing, presigned URLs,
// and POST-policy signatures, bound to an explicit Credentials value
// rather than package-level globals, using the SIMD-accelerated SHA256
// minio-go itself depends on.
package s3signer

import (
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	sha256simd "github.com/minio/sha256-simd"

	"github.com/nodalio/s3stream/internal/s3utils"
)

const (
	signAlgorithm     = "AWS4-HMAC-SHA256"
	iso8601DateFormat = "20060102T150405Z"
	yyyymmdd          = "20060102"
	// UnsignedPayload is the sentinel used in place of a body hash when the
	// caller opts out of payload hashing (presigned URLs, or secure
	// transports where integrity is covered by TLS).
	UnsignedPayload = "UNSIGNED-PAYLOAD"
	// EmptyPayloadSHA256 is sha256("") in hex, used for bodyless requests.
	EmptyPayloadSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// v4IgnoredHeaders are excluded from the canonical request per AWS's own
// guidance: User-Agent and Content-Length vary across proxies/pre-signed
// replay, Content-Type is mangled by browsers, Authorization is circular.
var v4IgnoredHeaders = map[string]bool{
	"Authorization":  true,
	"Content-Type":   true,
	"Content-Length": true,
	"User-Agent":     true,
}

// Credentials identifies the signing principal. Anonymous is true when
// either key is empty; callers must check Anonymous before invoking any
// Sign* function, which otherwise return the request unsigned.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Anonymous reports whether c carries no usable credentials.
func (c Credentials) Anonymous() bool {
	return c.AccessKeyID == "" || c.SecretAccessKey == ""
}

func sumHMAC(key, data []byte) []byte {
	return hmacSHA256(key, data)
}

func sum256Hex(data []byte) string {
	h := sha256simd.Sum256(data)
	return hex.EncodeToString(h[:])
}

func getSigningKey(secret, location string, t time.Time) []byte {
	dateKey := sumHMAC([]byte("AWS4"+secret), []byte(t.Format(yyyymmdd)))
	regionKey := sumHMAC(dateKey, []byte(location))
	serviceKey := sumHMAC(regionKey, []byte("s3"))
	return sumHMAC(serviceKey, []byte("aws4_request"))
}

func getSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(sumHMAC(signingKey, []byte(stringToSign)))
}

// Scope returns the SigV4 credential scope: YYYYMMDD/region/s3/aws4_request.
func Scope(location string, t time.Time) string {
	return strings.Join([]string{t.Format(yyyymmdd), location, "s3", "aws4_request"}, "/")
}

// CredentialString renders the Credential= value of an Authorization header
// or presigned query string.
func CredentialString(accessKeyID, location string, t time.Time) string {
	return accessKeyID + "/" + Scope(location, t)
}

func hashedPayload(req *http.Request) string {
	h := req.Header.Get("X-Amz-Content-Sha256")
	if h == "" {
		return UnsignedPayload
	}
	return h
}

func canonicalHeaders(req *http.Request, ignored map[string]bool) string {
	var keys []string
	vals := make(map[string][]string)
	for k, vv := range req.Header {
		if ignored[http.CanonicalHeaderKey(k)] {
			continue
		}
		lk := strings.ToLower(k)
		keys = append(keys, lk)
		vals[lk] = vv
	}
	keys = append(keys, "host")
	sort.Strings(keys)

	var buf strings.Builder
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(':')
		if k == "host" {
			buf.WriteString(req.Host)
			if req.Host == "" {
				buf.WriteString(req.URL.Host)
			}
		} else {
			for i, v := range vals[k] {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(strings.TrimSpace(v))
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

func signedHeaders(req *http.Request, ignored map[string]bool) string {
	var keys []string
	for k := range req.Header {
		if ignored[http.CanonicalHeaderKey(k)] {
			continue
		}
		keys = append(keys, strings.ToLower(k))
	}
	keys = append(keys, "host")
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func canonicalRequest(req *http.Request, ignored map[string]bool) string {
	rawQuery := strings.ReplaceAll(req.URL.Query().Encode(), "+", "%20")
	return strings.Join([]string{
		req.Method,
		s3utils.EncodePath(req.URL.Path),
		rawQuery,
		canonicalHeaders(req, ignored),
		signedHeaders(req, ignored),
		hashedPayload(req),
	}, "\n")
}

func stringToSign(t time.Time, location, canReq string) string {
	return signAlgorithm + "\n" + t.Format(iso8601DateFormat) + "\n" +
		Scope(location, t) + "\n" + sum256Hex([]byte(canReq))
}

// SignV4 computes and sets the Authorization header on req in place,
// deriving the signing key from creds and signing for (location, now).
// Anonymous credentials are a no-op: the caller is expected to have
// already skipped calling Sign at all, but this guards regardless.
func SignV4(req *http.Request, creds Credentials, location string) {
	if creds.Anonymous() {
		return
	}
	t := time.Now().UTC()
	req.Header.Set("X-Amz-Date", t.Format(iso8601DateFormat))
	if creds.SessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	canReq := canonicalRequest(req, v4IgnoredHeaders)
	sts := stringToSign(t, location, canReq)
	signingKey := getSigningKey(creds.SecretAccessKey, location, t)
	signature := getSignature(signingKey, sts)
	credential := CredentialString(creds.AccessKeyID, location, t)
	sh := signedHeaders(req, v4IgnoredHeaders)

	auth := strings.Join([]string{
		signAlgorithm + " Credential=" + credential,
		"SignedHeaders=" + sh,
		"Signature=" + signature,
	}, ", ")
	req.Header.Set("Authorization", auth)
}

// PreSignV4 returns req with SigV4 query-string auth parameters appended,
// valid for expires seconds from now. Unlike SignV4, the signature lives
// entirely in the query string; no Authorization header is set.
func PreSignV4(req *http.Request, creds Credentials, location string, expires int64) *http.Request {
	if creds.Anonymous() {
		return req
	}
	t := time.Now().UTC()
	credential := CredentialString(creds.AccessKeyID, location, t)
	sh := signedHeaders(req, v4IgnoredHeaders)

	q := req.URL.Query()
	q.Set("X-Amz-Algorithm", signAlgorithm)
	q.Set("X-Amz-Date", t.Format(iso8601DateFormat))
	q.Set("X-Amz-Expires", strconv.FormatInt(expires, 10))
	q.Set("X-Amz-SignedHeaders", sh)
	q.Set("X-Amz-Credential", credential)
	if creds.SessionToken != "" {
		q.Set("X-Amz-Security-Token", creds.SessionToken)
	}
	req.URL.RawQuery = q.Encode()

	canReq := canonicalRequest(req, v4IgnoredHeaders)
	sts := stringToSign(t, location, canReq)
	signingKey := getSigningKey(creds.SecretAccessKey, location, t)
	signature := getSignature(signingKey, sts)

	req.URL.RawQuery += "&X-Amz-Signature=" + signature
	return req
}

// PostPolicySignature returns the HMAC-SHA256 signature (hex) of a
// base64-encoded POST policy document, for (location, date) derived from t.
func PostPolicySignature(policyBase64 string, t time.Time, secretAccessKey, location string) string {
	signingKey := getSigningKey(secretAccessKey, location, t)
	return getSignature(signingKey, policyBase64)
}
