package storage

import (
	"context"
	"fmt"
	"time"
)

// Type names a storage backend.
type Type string

const (
	TypeDisk Type = "fs"
	TypeGCS  Type = "gcs"
	TypeS3   Type = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type Type `yaml:"type"`

	// Dir is the base directory of the disk backend.
	Dir string `yaml:"dir"`

	// Bucket and Prefix apply to the GCS and S3 backends.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	// Region and Endpoint apply to the S3 backend.
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// SignedURLTTL is how long a signed upload URL stays valid on backends
	// that issue them.
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`

	// PublicURL is the base URL objects are served from.
	PublicURL string `yaml:"public_url"`
}

// DefaultSignedURLTTL applies when SignedURLTTL is zero.
const DefaultSignedURLTTL = 15 * time.Minute

// New creates the backend described by cfg. An empty type selects the disk
// backend.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeDisk, "":
		return NewDiskBackend(cfg.Dir)
	case TypeGCS:
		return NewGCSBackend(ctx, cfg.Bucket, cfg.Prefix)
	case TypeS3:
		return NewS3Backend(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported backend type %q", cfg.Type)
	}
}
