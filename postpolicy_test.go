package s3stream

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPresignedPostPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"/>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	policy := NewPostPolicy("mybucket", time.Now().Add(time.Hour))
	policy.WithKeyStartsWith("uploads/")
	policy.WithContentType("image/png")
	policy.WithContentLengthRange(1, 10*1024*1024)

	form, err := c.PresignedPostPolicy(policy)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"policy", "x-amz-signature", "x-amz-credential", "x-amz-date", "x-amz-algorithm", "key", "Content-Type"} {
		if form[key] == "" {
			t.Errorf("expected form field %q to be set", key)
		}
	}
	if form["key"] != "uploads/" {
		t.Errorf("key = %q, want uploads/", form["key"])
	}
}

func TestPresignedPostPolicyRequiresCredentials(t *testing.T) {
	c, err := NewClient(ClientConfig{Endpoint: "s3.amazonaws.com"})
	if err != nil {
		t.Fatal(err)
	}
	policy := NewPostPolicy("mybucket", time.Now().Add(time.Hour))
	if _, err := c.PresignedPostPolicy(policy); err == nil {
		t.Error("expected an error for an anonymous client")
	}
}

func TestNewPostPolicyKeySuffixUnique(t *testing.T) {
	a := NewPostPolicyKeySuffix()
	b := NewPostPolicyKeySuffix()
	if a == "" || b == "" {
		t.Fatal("expected non-empty suffixes")
	}
	if a == b {
		t.Error("expected two calls to NewPostPolicyKeySuffix to differ")
	}
}

func TestConditionListIncludesBucketAndSize(t *testing.T) {
	p := NewPostPolicy("mybucket", time.Now().Add(time.Hour))
	p.WithKey("exact-key.txt")
	p.WithContentLengthRange(10, 100)

	conds := p.conditionList()
	if len(conds) < 2 {
		t.Fatalf("expected at least bucket and size conditions, got %d", len(conds))
	}
}
