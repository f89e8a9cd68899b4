// Package updateinfo builds the addressed, per-platform description of an
// update from the files collected on disk.
package updateinfo

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomasbasham/assetpub/internal/asset"
)

// DefaultConcurrency bounds the number of files hashed at once when the
// caller does not choose.
const DefaultConcurrency = 8

// Group maps each platform to its addressed update info. It is built once per
// publish and never persisted.
type Group map[asset.Platform]PlatformUpdateInfo

// PlatformUpdateInfo holds the addressed launch asset and assets of one
// platform along with opaque metadata passed through to the server.
type PlatformUpdateInfo struct {
	LaunchAsset asset.AddressedAsset   `json:"launchAsset"`
	Assets      []asset.AddressedAsset `json:"assets"`
	Extra       map[string]any         `json:"extra,omitempty"`
}

// Build addresses every launch asset and asset in platformAssets. extras is
// attached verbatim to the matching platform. No deduplication happens here;
// identical files simply end up with identical storage keys.
//
// Files are hashed with at most concurrency readers in flight.
func Build(ctx context.Context, platformAssets map[asset.Platform]asset.PlatformAssets, extras map[asset.Platform]map[string]any, concurrency int) (Group, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	// Slots are allocated up front so each goroutine writes to its own
	// element and no locking is needed.
	launch := make(map[asset.Platform]*asset.AddressedAsset, len(platformAssets))
	addressed := make(map[asset.Platform][]asset.AddressedAsset, len(platformAssets))
	for platform, pa := range platformAssets {
		launch[platform] = new(asset.AddressedAsset)
		addressed[platform] = make([]asset.AddressedAsset, len(pa.Assets))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	address := func(a asset.Asset, dst *asset.AddressedAsset) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := asset.Address(a)
			if err != nil {
				return err
			}
			*dst = out
			return nil
		})
	}

	for platform, pa := range platformAssets {
		address(pa.LaunchAsset, launch[platform])
		for i, a := range pa.Assets {
			address(a, &addressed[platform][i])
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	group := make(Group, len(platformAssets))
	for platform := range platformAssets {
		group[platform] = PlatformUpdateInfo{
			LaunchAsset: *launch[platform],
			Assets:      addressed[platform],
			Extra:       extras[platform],
		}
	}
	return group, nil
}

// Platforms returns the platforms in g in a stable order.
func (g Group) Platforms() []asset.Platform {
	platforms := make([]asset.Platform, 0, len(g))
	for p := range g {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// Flatten lists every asset reference in g, launch asset first for each
// platform. References shared between platforms appear once per platform.
func (g Group) Flatten() []asset.AddressedAsset {
	var out []asset.AddressedAsset
	for _, p := range g.Platforms() {
		info := g[p]
		out = append(out, info.LaunchAsset)
		out = append(out, info.Assets...)
	}
	return out
}

// Deduplicate keeps the first asset seen for each storage key, preserving
// order.
func Deduplicate(assets []asset.AddressedAsset) []asset.AddressedAsset {
	seen := make(map[string]struct{}, len(assets))
	out := make([]asset.AddressedAsset, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.StorageKey]; ok {
			continue
		}
		seen[a.StorageKey] = struct{}{}
		out = append(out, a)
	}
	return out
}
