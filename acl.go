package s3stream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nodalio/s3stream/internal/s3xml"
)

// Canned ACL names.
const (
	ACLPrivate           = "private"
	ACLPublicRead        = "public-read"
	ACLPublicReadWrite   = "public-read-write"
	ACLAuthenticatedRead = "authenticated-read"
	aclUnsupported       = "unsupported-acl"

	granteeAllUsers           = "http://acs.amazonaws.com/groups/global/AllUsers"
	granteeAuthenticatedUsers = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// GetBucketACL fetches bucket's ACL and reduces the grant list back to one
// of the four canned names:
//
//	AllUsers has WRITE (and READ)      -> public-read-write
//	AllUsers has READ only             -> public-read
//	AuthenticatedUsers has READ        -> authenticated-read
//	no public/authenticated grant      -> private
//	anything else (explicit per-user grants, custom permission sets)
//	                                    -> unsupported-acl
func (c *Client) GetBucketACL(ctx context.Context, bucket string) (string, error) {
	if err := c.validator.ValidBucketName(bucket); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("acl", "")
	resp, err := c.execute(ctx, requestInput{
		spec:           RequestSpec{Method: http.MethodGet, Bucket: bucket, Query: q},
		expectedStatus: http.StatusOK,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	policy, err := s3xml.DecodeAccessControlPolicy(resp.Body)
	if err != nil {
		return "", err
	}
	return reduceACL(policy), nil
}

func reduceACL(policy s3xml.AccessControlPolicy) string {
	allUsersRead, allUsersWrite, authUsersRead := false, false, false
	otherGrants := false

	for _, g := range policy.AccessControlList.Grant {
		switch g.Grantee.URI {
		case granteeAllUsers:
			switch g.Permission {
			case "READ":
				allUsersRead = true
			case "WRITE":
				allUsersWrite = true
			case "FULL_CONTROL":
				allUsersRead, allUsersWrite = true, true
			default:
				otherGrants = true
			}
		case granteeAuthenticatedUsers:
			if g.Permission == "READ" || g.Permission == "FULL_CONTROL" {
				authUsersRead = true
			} else {
				otherGrants = true
			}
		default:
			// Per-owner FULL_CONTROL grants are implicit on every bucket and
			// don't disqualify a canned reduction. Any FULL_CONTROL grant to
			// a grantee without a URI is taken to be that owner grant; every
			// other grant can't be expressed as a canned ACL.
			if g.Permission != "FULL_CONTROL" || g.Grantee.URI != "" {
				otherGrants = true
			}
		}
	}

	switch {
	case otherGrants:
		return aclUnsupported
	case allUsersRead && allUsersWrite && !authUsersRead:
		return ACLPublicReadWrite
	case allUsersRead && !allUsersWrite && !authUsersRead:
		return ACLPublicRead
	case authUsersRead && !allUsersRead && !allUsersWrite:
		return ACLAuthenticatedRead
	case !allUsersRead && !allUsersWrite && !authUsersRead:
		return ACLPrivate
	default:
		return aclUnsupported
	}
}
