package s3stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// multipartMockServer fakes just enough of the S3 multipart protocol to
// drive putObjectMultipart end to end: no prior upload, one initiate, N
// part uploads, one complete.
func multipartMockServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	partCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.Method == http.MethodGet && q.Has("uploads"):
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListMultipartUploadsResult><IsTruncated>false</IsTruncated></ListMultipartUploadsResult>`))
		case r.Method == http.MethodPost && q.Has("uploads"):
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<InitiateMultipartUploadResult><UploadId>test-upload-id</UploadId></InitiateMultipartUploadResult>`))
		case r.Method == http.MethodPut && q.Get("uploadId") != "":
			partCalls++
			w.Header().Set("ETag", fmt.Sprintf(`"part-etag-%s"`, q.Get("partNumber")))
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && q.Get("uploadId") != "":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "<PartNumber>1</PartNumber>") {
				t.Errorf("complete body missing part 1: %s", body)
			}
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUploadResult><ETag>"final-etag"</ETag></CompleteMultipartUploadResult>`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.String())
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	return srv, &partCalls
}

func TestPutObjectMultipartUploadsAllParts(t *testing.T) {
	srv, partCalls := multipartMockServer(t)
	defer srv.Close()

	c := newTestClient(t, srv)
	c.region.set("mybucket", defaultRegion)

	size := int64(minimumPartSize) + 100 // calculatePartSize gives minimumPartSize here: one full part plus a 100-byte tail
	data := bytes.Repeat([]byte{'a'}, int(size))

	stat, err := c.PutObjectStream(context.Background(), "mybucket", "bigfile.bin", bytes.NewReader(data), size, PutObjectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stat.ETag != "final-etag" {
		t.Errorf("ETag = %q, want final-etag", stat.ETag)
	}
	if stat.Size != size {
		t.Errorf("Size = %d, want %d", stat.Size, size)
	}
	if *partCalls != 2 {
		t.Errorf("expected 2 part upload calls, got %d", *partCalls)
	}
}

func TestPutObjectStreamSingleShotForSmallObjects(t *testing.T) {
	var gotMethod string
	var gotMD5 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotMD5 = r.Header.Get("Content-MD5")
		w.Header().Set("ETag", `"small-etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.region.set("mybucket", defaultRegion)

	data := []byte("small object body")
	stat, err := c.PutObjectStream(context.Background(), "mybucket", "small.txt", bytes.NewReader(data), int64(len(data)), PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotMD5 == "" {
		t.Error("expected a Content-MD5 header on the single-shot PUT")
	}
	if stat.ETag != "small-etag" {
		t.Errorf("ETag = %q, want small-etag", stat.ETag)
	}
}

func TestFindUploadIDExactMatchOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListMultipartUploadsResult>
  <IsTruncated>false</IsTruncated>
  <Upload><Key>report-2024.csv</Key><UploadId>wrong-upload</UploadId></Upload>
  <Upload><Key>report</Key><UploadId>right-upload</UploadId></Upload>
</ListMultipartUploadsResult>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.region.set("mybucket", defaultRegion)

	uploadID, err := c.findUploadID(context.Background(), "mybucket", "report")
	if err != nil {
		t.Fatal(err)
	}
	if uploadID != "right-upload" {
		t.Errorf("findUploadID = %q, want right-upload (exact Key match, not the report-2024.csv sibling)", uploadID)
	}
}

func TestPutObjectMultipartSizeMismatchUndersized(t *testing.T) {
	srv, _ := multipartMockServer(t)
	defer srv.Close()

	c := newTestClient(t, srv)
	c.region.set("mybucket", defaultRegion)

	declaredSize := int64(minimumPartSize) + 1000
	actualData := bytes.Repeat([]byte{'a'}, int(minimumPartSize)) // fewer bytes than declared

	_, err := c.PutObjectStream(context.Background(), "mybucket", "short.bin", bytes.NewReader(actualData), declaredSize, PutObjectOptions{})
	if err == nil {
		t.Fatal("expected an error when the source yields fewer bytes than declared")
	}
}
