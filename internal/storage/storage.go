// Package storage provides the object stores that hold published assets. The
// disk backend suits a single machine and tests; the GCS and S3 backends are
// for shared deployments. All of them satisfy Backend so the rest of the
// program is unaware of which one is in use.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrObjectNotExist is returned by Download when the object is absent.
var ErrObjectNotExist = errors.New("storage: object does not exist")

// Backend stores named objects.
type Backend interface {
	Upload(ctx context.Context, req *UploadRequest) error
	Download(ctx context.Context, objectName string) ([]byte, error)
	Exists(ctx context.Context, objectName string) (bool, error)

	// List returns the names of all objects whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, objectName string) error
}

// Signer is implemented by backends that can hand out time-limited URLs for
// uploading an object directly to the store.
type Signer interface {
	SignedUploadURL(ctx context.Context, objectName, contentType string, ttl time.Duration) (*SignedURL, error)
}

// SignedURL is a pre-authorised upload destination. Headers must be sent with
// the PUT request unchanged.
type SignedURL struct {
	URL       string
	Headers   http.Header
	ExpiresAt time.Time
}

type UploadRequest struct {
	// ObjectName is the slash separated object path within the store.
	ObjectName string

	// Content is the data to be uploaded.
	Content io.Reader

	// ContentType is the MIME type of the content, e.g. "image/png".
	ContentType string
}
