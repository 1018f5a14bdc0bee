package s3utils

import "testing"

func TestIsAmazonEndpoint(t *testing.T) {
	cases := map[string]bool{
		"s3.amazonaws.com":            true,
		"s3.us-west-2.amazonaws.com":  true,
		"s3-us-west-2.amazonaws.com":  true,
		"s3.cn-north-1.amazonaws.com.cn": true,
		"minio.example.com":           false,
		"storage.googleapis.com":      false,
	}
	for host, want := range cases {
		if got := IsAmazonEndpoint(host); got != want {
			t.Errorf("IsAmazonEndpoint(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsDNSCompliant(t *testing.T) {
	cases := map[string]bool{
		"my-bucket":     true,
		"a":             false,
		"ab":            false,
		"My-Bucket":     false,
		"bucket..name":  false,
		"bucket-.name":  false,
		".bucket":       false,
		"bucket.":       false,
		"a-valid-bucket-name-123": true,
	}
	for name, want := range cases {
		if got := IsDNSCompliant(name); got != want {
			t.Errorf("IsDNSCompliant(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsVirtualHostSupported(t *testing.T) {
	if !IsVirtualHostSupported("s3.amazonaws.com", "my-bucket") {
		t.Error("expected virtual-host support on amazonaws.com for a DNS-compliant bucket")
	}
	if IsVirtualHostSupported("minio.local", "my-bucket") {
		t.Error("expected no virtual-host support on a non-Amazon, non-Google endpoint")
	}
	if IsVirtualHostSupported("s3.amazonaws.com", "bucket.with.dots") {
		t.Error("expected no virtual-host support for a bucket name containing dots under TLS-relevant addressing")
	}
}

func TestEncodePath(t *testing.T) {
	cases := map[string]string{
		"simple-key":        "simple-key",
		"a/b/c":             "a/b/c",
		"with space":        "with%20space",
		"special!@#$chars":  "special%21%40%23%24chars",
		"unicode-café": "unicode-caf%C3%A9",
	}
	for in, want := range cases {
		if got := EncodePath(in); got != want {
			t.Errorf("EncodePath(%q) = %q, want %q", in, got, want)
		}
	}
}
