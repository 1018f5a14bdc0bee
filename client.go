// Package s3stream implements the request pipeline for an Amazon
// S3-compatible object-storage client: request construction, per-bucket
// region resolution and caching, SigV4 signing, streaming HTTP transport,
// XML/error decoding, and a multipart upload engine with digest-based
// resume. A Client is parameterized by an arbitrary S3-compatible
// endpoint rather than tied to Amazon S3 specifically.
package s3stream

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/nodalio/s3stream/internal/s3signer"
	"github.com/nodalio/s3stream/internal/s3utils"
)

const (
	libraryName    = "s3stream"
	libraryVersion = "1.0.0"
)

// ClientConfig is immutable after NewClient returns.
type ClientConfig struct {
	// Endpoint is the bare host (and optionally ":port") of the
	// S3-compatible service, e.g. "s3.amazonaws.com" or "minio.local".
	Endpoint string
	// Port overrides the port embedded in Endpoint, if any. Zero keeps
	// the port embedded in Endpoint, or, when there is none, means "use
	// the protocol default" (80 for http, 443 for https).
	Port int
	// Secure selects https (true) or http (false).
	Secure bool
	// AccessKey / SecretKey are the SigV4 credential pair. Both empty (or
	// either empty) means Anonymous.
	AccessKey string
	SecretKey string
	// Transport overrides the HTTP transport used for all requests; nil
	// selects a sane default (see defaultTransport).
	Transport http.RoundTripper
	// AppName / AppVersion are appended to the User-Agent string.
	AppName    string
	AppVersion string
}

// Anonymous reports whether cfg carries no usable SigV4 credentials.
func (cfg ClientConfig) Anonymous() bool {
	return cfg.AccessKey == "" || cfg.SecretKey == ""
}

func (cfg ClientConfig) validate() error {
	if cfg.Endpoint == "" {
		return &InvalidEndpointError{Endpoint: cfg.Endpoint}
	}
	host := cfg.Endpoint
	if h, _, err := net.SplitHostPort(cfg.Endpoint); err == nil {
		host = h
	}
	if strings.ContainsAny(host, " /\\") {
		return &InvalidEndpointError{Endpoint: cfg.Endpoint}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return &InvalidPortError{Port: cfg.Port}
	}
	return nil
}

// hostHeader returns the endpoint host as it appears in outgoing requests:
// ":port" is appended only when the effective port (Port, or else the port
// embedded in Endpoint) is set and differs from the protocol default.
func (cfg ClientConfig) hostHeader() string {
	host, port := cfg.Endpoint, 0
	if h, p, err := net.SplitHostPort(cfg.Endpoint); err == nil {
		host = h
		port, _ = strconv.Atoi(p)
	}
	if cfg.Port != 0 {
		port = cfg.Port
	}
	defaultPort := 80
	if cfg.Secure {
		defaultPort = 443
	}
	if port == 0 || port == defaultPort {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (cfg ClientConfig) scheme() string {
	if cfg.Secure {
		return "https"
	}
	return "http"
}

func (cfg ClientConfig) credentials() s3signer.Credentials {
	return s3signer.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey}
}

// Validator is the external collaborator responsible for bucket/object/
// prefix/ACL legality. The core consumes it by interface only;
// DefaultValidator is the shipped implementation so the module works
// without a caller-supplied one.
type Validator interface {
	ValidBucketName(name string) error
	ValidObjectName(name string) error
	ValidObjectPrefix(prefix string) error
	ValidACL(acl string) error
}

type defaultValidator struct{}

func (defaultValidator) ValidBucketName(name string) error { return s3utils.CheckValidBucketName(name) }
func (defaultValidator) ValidObjectName(name string) error { return s3utils.CheckValidObjectName(name) }
func (defaultValidator) ValidObjectPrefix(p string) error  { return s3utils.CheckValidObjectPrefix(p) }
func (defaultValidator) ValidACL(acl string) error         { return s3utils.CheckValidACL(acl) }

// DefaultValidator is the Validator s3stream uses unless overridden via
// Client.SetValidator.
var DefaultValidator Validator = defaultValidator{}

// Client is a process-wide handle bound to one ClientConfig. Concurrent
// calls are permitted; the region cache is the only mutable shared state.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	region     *regionCache
	validator  Validator
	trace      *traceSink
}

// NewClient constructs a Client, validating cfg before any I/O is
// attempted.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil {
		transport = defaultTransport(cfg.Secure)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		region:    newRegionCache(),
		validator: DefaultValidator,
	}, nil
}

// SetValidator overrides the Validator used for bucket/object/prefix/ACL
// legality checks.
func (c *Client) SetValidator(v Validator) {
	if v == nil {
		v = DefaultValidator
	}
	c.validator = v
}

// Anonymous reports whether the client was constructed without usable
// credentials.
func (c *Client) Anonymous() bool { return c.cfg.Anonymous() }

// userAgent renders the User-Agent string:
// "s3stream ({os}; {arch}) s3stream/{version}[ {appName}/{appVersion}]".
func (c *Client) userAgent() string {
	return buildUserAgent(c.cfg.AppName, c.cfg.AppVersion)
}

func buildUserAgent(appName, appVersion string) string {
	base := fmt.Sprintf("%s (%s; %s) %s/%s", libraryName, runtime.GOOS, runtime.GOARCH, libraryName, libraryVersion)
	if appName != "" && appVersion != "" {
		return base + " " + appName + "/" + appVersion
	}
	return base
}

func defaultTransport(secure bool) http.RoundTripper {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if secure {
		t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return t
}
