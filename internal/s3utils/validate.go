package s3utils

import (
	"fmt"
	"regexp"
)

// Input-legality checks are an external collaborator per the core's scope
// (bucket/object/prefix/ACL validation is not part of the request
// pipeline), but s3stream ships this default implementation so the module
// is usable standalone. Callers may supply their own via
// s3stream.Client.SetValidator.

var validBucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// CheckValidBucketName returns a descriptive error if bucketName cannot be
// a legal S3 bucket name.
func CheckValidBucketName(bucketName string) error {
	if bucketName == "" {
		return fmt.Errorf("bucket name cannot be empty")
	}
	if !validBucketName.MatchString(bucketName) {
		return fmt.Errorf("bucket name %q is not valid", bucketName)
	}
	return nil
}

// CheckValidObjectName returns a descriptive error if objectName is illegal
// (empty, or exceeding the 1024-byte S3 key limit).
func CheckValidObjectName(objectName string) error {
	if objectName == "" {
		return fmt.Errorf("object name cannot be empty")
	}
	if len(objectName) > 1024 {
		return fmt.Errorf("object name longer than 1024 bytes")
	}
	return nil
}

// CheckValidObjectPrefix validates a listing prefix; S3 imposes the same
// length bound as object names and tolerates an empty prefix (match-all).
func CheckValidObjectPrefix(prefix string) error {
	if len(prefix) > 1024 {
		return fmt.Errorf("object prefix longer than 1024 bytes")
	}
	return nil
}

var cannedACLs = map[string]bool{
	"private":            true,
	"public-read":        true,
	"public-read-write":  true,
	"authenticated-read": true,
}

// CheckValidACL returns a descriptive error unless acl is one of the
// four canned ACL names.
func CheckValidACL(acl string) error {
	if !cannedACLs[acl] {
		return fmt.Errorf("acl %q is not a supported canned ACL", acl)
	}
	return nil
}
