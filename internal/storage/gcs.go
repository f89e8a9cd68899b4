package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBackend stores objects in a Google Cloud Storage bucket, optionally
// beneath a name prefix.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBackend creates a GCSBackend for the given bucket. opts are passed
// through to the underlying GCS client, allowing credential injection.
func NewGCSBackend(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSBackend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: GCS bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *GCSBackend) object(objectName string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + objectName)
}

// Upload writes content to the bucket at objectName.
func (b *GCSBackend) Upload(ctx context.Context, req *UploadRequest) error {
	w := b.object(req.ObjectName).NewWriter(ctx)
	w.ContentType = req.ContentType

	if _, err := io.Copy(w, req.Content); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: upload write failed for %q: %w", req.ObjectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: upload close failed for %q: %w", req.ObjectName, err)
	}
	return nil
}

func (b *GCSBackend) Download(ctx context.Context, objectName string) ([]byte, error) {
	r, err := b.object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrObjectNotExist, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: download failed for %q: %w", objectName, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (b *GCSBackend) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := b.object(objectName).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: attrs failed for %q: %w", objectName, err)
	}
	return true, nil
}

func (b *GCSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.prefix + prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list failed for %q: %w", prefix, err)
		}
		names = append(names, strings.TrimPrefix(attrs.Name, b.prefix))
	}
	return names, nil
}

func (b *GCSBackend) Delete(ctx context.Context, objectName string) error {
	err := b.object(objectName).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete failed for %q: %w", objectName, err)
	}
	return nil
}

// SignedUploadURL returns a V4 signed URL that accepts a PUT of objectName
// with the given content type until ttl elapses.
func (b *GCSBackend) SignedUploadURL(_ context.Context, objectName, contentType string, ttl time.Duration) (*SignedURL, error) {
	expiresAt := time.Now().Add(ttl)
	signedURL, err := b.client.Bucket(b.bucket).SignedURL(b.prefix+objectName, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to sign URL for %q: %w", objectName, err)
	}

	return &SignedURL{
		URL:       signedURL,
		Headers:   http.Header{"Content-Type": {contentType}},
		ExpiresAt: expiresAt,
	}, nil
}

// Close closes the GCS client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}

var _ Signer = (*GCSBackend)(nil)
