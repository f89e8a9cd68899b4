package publish

import (
	"errors"
	"fmt"

	"github.com/tomasbasham/assetpub/internal/asset"
)

// ErrSpecificationMismatch is returned when the remote returns a different
// number of upload specifications than were requested.
var ErrSpecificationMismatch = errors.New("publish: upload specification count does not match requested assets")

// AssetLimitExceededError is returned before any upload when an update group
// holds more distinct assets than the server allows.
type AssetLimitExceededError struct {
	Count int
	Limit int
}

func (e *AssetLimitExceededError) Error() string {
	return fmt.Sprintf("publish: update group has %d unique assets, which exceeds the limit of %d per update group; reduce the number of assets and publish again", e.Count, e.Limit)
}

// UploadFailedError wraps a permanent failure to upload a single asset.
type UploadFailedError struct {
	Asset asset.AddressedAsset
	Err   error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("publish: failed to upload asset %q (storage key %s): %v", e.Asset.Path, e.Asset.StorageKey, e.Err)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

// PollLimitExceededError is returned when assets are still not visible after
// the configured maximum number of polling rounds.
type PollLimitExceededError struct {
	Rounds    int
	Remaining int
}

func (e *PollLimitExceededError) Error() string {
	return fmt.Sprintf("publish: %d assets still not visible after %d polling rounds", e.Remaining, e.Rounds)
}
