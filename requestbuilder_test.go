package s3stream

import (
	"net/http"
	"strings"
	"testing"
)

func TestBuildRequestPathStyle(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "minio.local", Port: 9000})
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.buildRequest(RequestSpec{Method: http.MethodGet, Bucket: "mybucket", Object: "my object.txt"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "minio.local:9000" {
		t.Errorf("Host = %q, want minio.local:9000", req.Host)
	}
	if !strings.HasPrefix(req.URL.Path, "/mybucket/") {
		t.Errorf("path-style request should put the bucket in the path, got %q", req.URL.Path)
	}
	if !strings.Contains(req.URL.Path, "my%20object.txt") {
		t.Errorf("expected the object key to be percent-encoded, got %q", req.URL.Path)
	}
}

func TestBuildRequestVirtualHostStyleOnAmazon(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "s3.amazonaws.com", Secure: true})
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.buildRequest(RequestSpec{Method: http.MethodGet, Bucket: "mybucket", Object: "key"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "mybucket.s3.amazonaws.com" {
		t.Errorf("Host = %q, want mybucket.s3.amazonaws.com", req.Host)
	}
	if req.URL.Path != "/key" {
		t.Errorf("virtual-host request path = %q, want /key", req.URL.Path)
	}
}

func TestBuildRequestForcePathStyleOverridesVirtualHost(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "s3.amazonaws.com", Secure: true})
	if err != nil {
		t.Fatal(err)
	}

	req, err := c.buildRequest(RequestSpec{Method: http.MethodGet, Bucket: "mybucket"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "s3.amazonaws.com" {
		t.Errorf("Host = %q, want s3.amazonaws.com", req.Host)
	}
	if !strings.HasPrefix(req.URL.Path, "/mybucket") {
		t.Errorf("expected path-style path, got %q", req.URL.Path)
	}
}

func TestBuildRequestNoBucket(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "s3.amazonaws.com"})
	if err != nil {
		t.Fatal(err)
	}
	req, err := c.buildRequest(RequestSpec{Method: http.MethodGet}, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.URL.Path != "/" {
		t.Errorf("bucket-less request path = %q, want /", req.URL.Path)
	}
}

func TestLowerHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("X-Amz-Acl", "public-read")

	lowered := lowerHeaders(h)
	if _, ok := lowered["content-type"]; !ok {
		t.Error("expected content-type key to be present in lowercase")
	}
	if _, ok := lowered["x-amz-acl"]; !ok {
		t.Error("expected x-amz-acl key to be present in lowercase")
	}
}
