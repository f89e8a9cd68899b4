package publish

import (
	"context"
	"fmt"

	"github.com/tomasbasham/assetpub/internal/asset"
)

// FilterMissing asks the remote about every asset in one batch and returns,
// in input order, those it does not have. A key the remote leaves out of its
// answer is treated as missing.
func FilterMissing(ctx context.Context, remote Remote, assets []asset.AddressedAsset) ([]asset.AddressedAsset, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	keys := make([]string, len(assets))
	for i, a := range assets {
		keys[i] = a.StorageKey
	}

	metadata, err := remote.AssetMetadata(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("publish: asset existence query failed: %w", err)
	}

	exists := make(map[string]bool, len(metadata))
	for _, m := range metadata {
		switch m.Status {
		case AssetStatusExists:
			exists[m.StorageKey] = true
		case AssetStatusDoesNotExist:
		default:
			return nil, fmt.Errorf("publish: unknown status %q for storage key %s", m.Status, m.StorageKey)
		}
	}

	var missing []asset.AddressedAsset
	for _, a := range assets {
		if !exists[a.StorageKey] {
			missing = append(missing, a)
		}
	}
	return missing, nil
}
