package s3stream

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/nodalio/s3stream/internal/s3utils"
)

// RequestSpec describes one request at the level the Object/Bucket API
// surface thinks in: method, optional bucket/object, query, headers.
// Header keys are lower-cased before insertion (SigV4 canonicalization
// requires stable casing) and bucket/object names are escaped per URI
// rules.
type RequestSpec struct {
	Method  string
	Bucket  string
	Object  string
	Query   url.Values
	Headers http.Header
}

// lowerHeaders returns a copy of h with every key lower-cased, the form
// SigV4 canonicalization expects.
func lowerHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		lk := strings.ToLower(k)
		out[lk] = append(out[lk], vv...)
	}
	return out
}

// buildRequest translates spec into a ready-to-sign *http.Request: host and
// path selection (virtual-host vs path-style), URI escaping, and the Host
// header. It does not sign the request or attach a body; execute does
// both after resolving region.
func (c *Client) buildRequest(spec RequestSpec, forcePathStyle bool) (*http.Request, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	host := c.cfg.hostHeader()
	isVirtualHost := !forcePathStyle && spec.Bucket != "" && s3utils.IsAmazonEndpoint(c.cfg.Endpoint)

	var path string
	var reqHost string
	switch {
	case isVirtualHost:
		reqHost = spec.Bucket + "." + host
		if spec.Object != "" {
			path = "/" + s3utils.EncodePath(spec.Object)
		} else {
			path = "/"
		}
	case spec.Bucket != "":
		reqHost = host
		path = "/" + s3utils.EncodePath(spec.Bucket)
		if spec.Object != "" {
			path += "/" + s3utils.EncodePath(spec.Object)
		} else {
			path += "/"
		}
	default:
		reqHost = host
		path = "/"
	}

	rawURL := c.cfg.scheme() + "://" + reqHost + path
	if len(spec.Query) > 0 {
		rawURL += "?" + s3utils.QueryEncode(spec.Query)
	}

	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return nil, &InvalidArgumentError{Message: "malformed request URL: " + err.Error()}
	}
	req.Host = reqHost
	req.Header = lowerHeaders(spec.Headers)
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set("user-agent", c.userAgent())
	return req, nil
}
