package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomasbasham/assetpub/internal/asset"
)

// Launch bundles are always served as JavaScript regardless of the file name
// the bundler chose.
const (
	launchAssetExtension   = ".bundle"
	launchAssetContentType = "application/javascript"
)

// ResolveInputDirectory returns dir unchanged if it exists, otherwise a
// *MissingInputDirectoryError.
func ResolveInputDirectory(dir string) (string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", &MissingInputDirectoryError{Path: dir}
	}
	if err != nil {
		return "", fmt.Errorf("manifest: failed to stat input directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("manifest: input path %q is not a directory", dir)
	}
	return dir, nil
}

// CollectAssets reads the metadata file in inputDir and resolves the launch
// bundle and assets of each requested platform to absolute paths.
func CollectAssets(inputDir string, platforms []asset.Platform) (map[asset.Platform]asset.PlatformAssets, error) {
	dir, err := ResolveInputDirectory(inputDir)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to resolve absolute path for %q: %w", dir, err)
	}

	metadataPath := filepath.Join(root, MetadataFile)
	b, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to read %q: %w", metadataPath, err)
	}

	metadata, err := ParseMetadata(b)
	if err != nil {
		return nil, &MalformedMetadataError{Path: metadataPath, Err: err}
	}

	out := make(map[asset.Platform]asset.PlatformAssets, len(platforms))
	for _, platform := range platforms {
		pm, ok := metadata.FileMetadata[platform]
		if !ok {
			return nil, &MalformedMetadataError{
				Path: metadataPath,
				Err:  fmt.Errorf("no file metadata for platform %q", platform),
			}
		}

		assets := make([]asset.Asset, 0, len(pm.Assets))
		for _, ref := range pm.Assets {
			a := asset.Asset{
				Path:        filepath.Join(root, filepath.FromSlash(ref.Path)),
				ContentType: asset.ContentTypeFromExtension(ref.Ext),
			}
			if ref.Ext != "" {
				a.FileExtension = "." + ref.Ext
			}
			assets = append(assets, a)
		}

		out[platform] = asset.PlatformAssets{
			LaunchAsset: asset.Asset{
				Path:          filepath.Join(root, filepath.FromSlash(pm.Bundle)),
				FileExtension: launchAssetExtension,
				ContentType:   launchAssetContentType,
			},
			Assets: assets,
		}
	}

	return out, nil
}
