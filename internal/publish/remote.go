package publish

import (
	"context"
	"io"
)

// AssetStatus is the remote store's view of a single storage key.
type AssetStatus string

const (
	AssetStatusExists       AssetStatus = "EXISTS"
	AssetStatusDoesNotExist AssetStatus = "DOES_NOT_EXIST"
)

// AssetMetadata reports the status of one storage key.
type AssetMetadata struct {
	StorageKey string      `json:"storageKey"`
	Status     AssetStatus `json:"status"`
}

// UploadSpec is an opaque description of where and how to upload one file.
// Only the ObjectPutter that understands the remote interprets it.
type UploadSpec string

// Remote is the publishing service. Network-level retry is the
// implementation's concern.
type Remote interface {
	// SignedUploadSpecifications returns one spec per content type, in the
	// same order.
	SignedUploadSpecifications(ctx context.Context, contentTypes []string) ([]UploadSpec, error)

	// AssetMetadata reports whether each storage key exists. Results are
	// matched to keys by StorageKey.
	AssetMetadata(ctx context.Context, storageKeys []string) ([]AssetMetadata, error)

	// AssetLimitPerUpdateGroup returns the maximum number of distinct assets
	// the project may publish in one update group.
	AssetLimitPerUpdateGroup(ctx context.Context, projectID string) (int, error)

	// PublishUpdateGroup records an update group whose assets are all
	// visible and returns one update per platform.
	PublishUpdateGroup(ctx context.Context, input UpdateGroupInput) ([]PublishedUpdate, error)
}

// ObjectPutter uploads file bytes to the destination described by spec. An
// error is a permanent failure for that asset.
type ObjectPutter interface {
	PutObject(ctx context.Context, spec UploadSpec, content io.Reader, contentType string) error
}
