package s3xml

import (
	"strings"
	"testing"
)

func TestDecodeError(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
  <Resource>/mybucket/myobject</Resource>
  <RequestId>4442587FB7D0A2F9</RequestId>
</Error>`
	er, err := DecodeError(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if er.Code != "NoSuchKey" {
		t.Errorf("Code = %q, want NoSuchKey", er.Code)
	}
	if er.RequestID != "4442587FB7D0A2F9" {
		t.Errorf("RequestID = %q, want 4442587FB7D0A2F9", er.RequestID)
	}
}

func TestDecodeLocationConstraint(t *testing.T) {
	cases := map[string]string{
		`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"/>`: "us-east-1",
		`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">EU</LocationConstraint>`: "eu-west-1",
		`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">ap-southeast-2</LocationConstraint>`: "ap-southeast-2",
	}
	for body, want := range cases {
		got, err := DecodeLocationConstraint(strings.NewReader(body))
		if err != nil {
			t.Fatalf("DecodeLocationConstraint(%q): %v", body, err)
		}
		if got != want {
			t.Errorf("DecodeLocationConstraint(%q) = %q, want %q", body, got, want)
		}
	}
}

func TestDecodeLocationConstraintEmptyBody(t *testing.T) {
	got, err := DecodeLocationConstraint(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if got != "us-east-1" {
		t.Errorf("expected empty body to default to us-east-1, got %q", got)
	}
}

func TestEncodeDecodeCompleteMultipartUpload(t *testing.T) {
	parts := []CompletePart{
		{PartNumber: 1, ETag: "aaa"},
		{PartNumber: 2, ETag: "bbb"},
	}
	body, err := EncodeCompleteMultipartUpload(parts)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<PartNumber>1</PartNumber>") {
		t.Errorf("encoded body missing part 1: %s", body)
	}
	if !strings.Contains(string(body), "<ETag>bbb</ETag>") {
		t.Errorf("encoded body missing part 2 etag: %s", body)
	}

	respBody := `<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUploadResult>
  <Location>https://mybucket.s3.amazonaws.com/myobject</Location>
  <Bucket>mybucket</Bucket>
  <Key>myobject</Key>
  <ETag>"3858f62230ac3c915f300c664312c11f-2"</ETag>
</CompleteMultipartUploadResult>`
	result, err := DecodeCompleteMultipartUpload(strings.NewReader(respBody))
	if err != nil {
		t.Fatal(err)
	}
	if result.ETag != `"3858f62230ac3c915f300c664312c11f-2"` {
		t.Errorf("ETag = %q, want quoted multipart etag", result.ETag)
	}
}

func TestDecodeListBucket(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>a.txt</Key>
    <LastModified>2024-01-02T03:04:05.000Z</LastModified>
    <ETag>"abc123"</ETag>
    <Size>42</Size>
  </Contents>
  <CommonPrefixes>
    <Prefix>subdir/</Prefix>
  </CommonPrefixes>
</ListBucketResult>`
	result, err := DecodeListBucket(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Contents) != 1 || result.Contents[0].Key != "a.txt" {
		t.Fatalf("unexpected Contents: %+v", result.Contents)
	}
	if result.Contents[0].Size != 42 {
		t.Errorf("Size = %d, want 42", result.Contents[0].Size)
	}
	if len(result.CommonPrefixes) != 1 || result.CommonPrefixes[0].Prefix != "subdir/" {
		t.Fatalf("unexpected CommonPrefixes: %+v", result.CommonPrefixes)
	}
}

func TestDecodeListParts(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<ListPartsResult>
  <UploadId>abc</UploadId>
  <IsTruncated>true</IsTruncated>
  <NextPartNumberMarker>3</NextPartNumberMarker>
  <Part>
    <PartNumber>1</PartNumber>
    <ETag>"etag1"</ETag>
    <Size>5242880</Size>
  </Part>
</ListPartsResult>`
	result, err := DecodeListParts(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsTruncated || result.NextPartNumberMarker != 3 {
		t.Fatalf("unexpected pagination fields: %+v", result)
	}
	if len(result.Part) != 1 || result.Part[0].PartNumber != 1 {
		t.Fatalf("unexpected Part: %+v", result.Part)
	}
}

func TestParseSize(t *testing.T) {
	if got := ParseSize("1024"); got != 1024 {
		t.Errorf("ParseSize(1024) = %d, want 1024", got)
	}
	if got := ParseSize("not-a-number"); got != -1 {
		t.Errorf("ParseSize(garbage) = %d, want -1", got)
	}
}
