package s3stream

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/nodalio/s3stream/internal/s3signer"
)

var postPolicyJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// PostPolicy builds the conditions for a browser-side POST upload. Each
// With* method appends one condition and records the matching form field
// so PresignedPostPolicy can emit both together.
type PostPolicy struct {
	bucket      string
	key         string
	keyExact    bool
	expiration  time.Time
	contentType string
	minSize     int64
	maxSize     int64
	conditions  []interface{}
	formData    map[string]string
}

// NewPostPolicy starts a policy for bucket that expires at expiration.
func NewPostPolicy(bucket string, expiration time.Time) *PostPolicy {
	return &PostPolicy{
		bucket:     bucket,
		expiration: expiration,
		formData:   map[string]string{},
	}
}

// WithKey pins the policy to an exact object key.
func (p *PostPolicy) WithKey(key string) {
	p.key = key
	p.keyExact = true
	p.formData["key"] = key
}

// WithKeyStartsWith restricts the uploaded key to one with the given
// prefix, letting the browser append a client-chosen suffix (e.g. a
// generated id) within the same form.
func (p *PostPolicy) WithKeyStartsWith(prefix string) {
	p.key = prefix
	p.keyExact = false
	p.formData["key"] = prefix
}

// WithContentType restricts the upload to an exact Content-Type.
func (p *PostPolicy) WithContentType(contentType string) {
	p.contentType = contentType
	p.formData["Content-Type"] = contentType
}

// WithContentLengthRange restricts the upload's size to [min, max] bytes.
func (p *PostPolicy) WithContentLengthRange(min, max int64) {
	p.minSize = min
	p.maxSize = max
}

func (p *PostPolicy) conditionList() []interface{} {
	conds := make([]interface{}, 0, len(p.conditions)+4)
	conds = append(conds, []interface{}{"eq", "$bucket", p.bucket})
	if p.key != "" {
		if p.keyExact {
			conds = append(conds, []interface{}{"eq", "$key", p.key})
		} else {
			conds = append(conds, []interface{}{"starts-with", "$key", p.key})
		}
	}
	if p.contentType != "" {
		conds = append(conds, []interface{}{"eq", "$Content-Type", p.contentType})
	}
	if p.maxSize > 0 {
		conds = append(conds, []interface{}{"content-length-range", p.minSize, p.maxSize})
	}
	return append(conds, p.conditions...)
}

// policyDocument is the JSON structure S3 expects as the POST policy,
// base64-encoded and signed as the literal string-to-sign.
type policyDocument struct {
	Expiration string        `json:"expiration"`
	Conditions []interface{} `json:"conditions"`
}

// PresignedPostPolicy renders p into the form fields a browser must POST
// alongside the file: x-amz-date, x-amz-algorithm and x-amz-credential are
// computed here and added as conditions before the policy is serialized,
// so the signature covers them; x-amz-signature is then computed over the
// base64-encoded policy.
func (c *Client) PresignedPostPolicy(p *PostPolicy) (map[string]string, error) {
	if c.cfg.Anonymous() {
		return nil, &AnonymousRequestError{Operation: "presigned post policy"}
	}
	if p.bucket == "" {
		return nil, &InvalidArgumentError{Message: "post policy requires a bucket"}
	}
	if p.expiration.IsZero() {
		return nil, &InvalidArgumentError{Message: "post policy requires an expiration"}
	}
	if !p.expiration.After(time.Now()) {
		return nil, &InvalidArgumentError{Message: "post policy expiration must be in the future"}
	}

	region, err := c.resolveRegion(p.bucket)
	if err != nil {
		return nil, err
	}

	t := time.Now().UTC()
	creds := c.cfg.credentials()
	credential := s3signer.CredentialString(creds.AccessKeyID, region, t)

	form := make(map[string]string, len(p.formData)+5)
	for k, v := range p.formData {
		form[k] = v
	}
	form["x-amz-date"] = t.Format("20060102T150405Z")
	form["x-amz-algorithm"] = "AWS4-HMAC-SHA256"
	form["x-amz-credential"] = credential
	if creds.SessionToken != "" {
		form["x-amz-security-token"] = creds.SessionToken
	}

	conds := p.conditionList()
	for k, v := range form {
		if _, fromPolicy := p.formData[k]; fromPolicy {
			// key and Content-Type already carry their own conditions.
			continue
		}
		conds = append(conds, []interface{}{"eq", "$" + k, v})
	}

	doc := policyDocument{
		Expiration: p.expiration.Format(time.RFC3339),
		Conditions: conds,
	}
	raw, err := postPolicyJSON.Marshal(doc)
	if err != nil {
		return nil, err
	}
	policyBase64 := base64.StdEncoding.EncodeToString(raw)

	form["policy"] = policyBase64
	form["x-amz-signature"] = s3signer.PostPolicySignature(policyBase64, t, creds.SecretAccessKey, region)
	return form, nil
}

// NewPostPolicyKeySuffix mints a random suffix a caller can append to a
// WithKeyStartsWith prefix, so concurrent browser uploads sharing one
// policy don't collide on the same key.
func NewPostPolicyKeySuffix() string {
	return uuid.New().String()
}
