package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/assetpub/internal/asset"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "well formed",
			doc: `{"version": 0, "bundler": "metro", "fileMetadata": {
				"android": {"bundle": "bundles/android.js", "assets": [{"path": "assets/3261e570d51777be1e99116562280926", "ext": "png"}]},
				"ios": {"bundle": "bundles/ios.js", "assets": [{"path": "assets/3261e570d51777be1e99116562280926", "ext": "png"}]}
			}}`,
		},
		{
			name: "no assets",
			doc: `{"version": 0, "bundler": "metro", "fileMetadata": {
				"android": {"bundle": "bundles/android.js", "assets": []},
				"ios": {"bundle": "bundles/ios.js", "assets": []}
			}}`,
		},
		{
			name: "missing bundle",
			doc: `{"version": 0, "bundler": "metro", "fileMetadata": {
				"android": {"bundle": "bundles/android.js", "assets": []},
				"ios": {"assets": []}
			}}`,
			wantErr: true,
		},
		{
			name:    "version is not a number",
			doc:     `{"version": "zero", "bundler": "metro", "fileMetadata": {}}`,
			wantErr: true,
		},
		{
			name:    "missing bundler",
			doc:     `{"version": 0, "fileMetadata": {}}`,
			wantErr: true,
		},
		{
			name: "asset without path",
			doc: `{"version": 0, "bundler": "metro", "fileMetadata": {
				"ios": {"bundle": "bundles/ios.js", "assets": [{"ext": "png"}]}
			}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			doc:     `version: 0`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMetadata([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "metro", m.Bundler)
		})
	}
}

func TestResolveInputDirectory(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveInputDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestResolveInputDirectoryMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "dist")

	_, err := ResolveInputDirectory(missing)

	var target *MissingInputDirectoryError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, missing, target.Path)
	assert.Contains(t, err.Error(), missing)
	assert.Contains(t, err.Error(), "--input-dir")
	assert.Contains(t, err.Error(), "bundler")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectAssets(t *testing.T) {
	inputDir := t.TempDir()
	writeFile(t, filepath.Join(inputDir, "bundles", "android.js"), "android-bundle-code")
	writeFile(t, filepath.Join(inputDir, "bundles", "ios.js"), "ios-bundle-code")
	writeFile(t, filepath.Join(inputDir, "assets", "md5-hash-of-jpg"), "dummy-file")
	writeFile(t, filepath.Join(inputDir, MetadataFile), `{
		"version": 0,
		"bundler": "metro",
		"fileMetadata": {
			"android": {"assets": [{"path": "assets/md5-hash-of-jpg", "ext": "jpg"}], "bundle": "bundles/android.js"},
			"ios": {"assets": [{"path": "assets/md5-hash-of-jpg", "ext": "jpg"}], "bundle": "bundles/ios.js"}
		}
	}`)

	userDefinedAssets := []asset.Asset{{
		Path:          filepath.Join(inputDir, "assets", "md5-hash-of-jpg"),
		FileExtension: ".jpg",
		ContentType:   "image/jpeg",
	}}

	got, err := CollectAssets(inputDir, asset.DefaultPlatforms)
	require.NoError(t, err)
	assert.Equal(t, map[asset.Platform]asset.PlatformAssets{
		asset.PlatformAndroid: {
			LaunchAsset: asset.Asset{
				Path:          filepath.Join(inputDir, "bundles", "android.js"),
				FileExtension: ".bundle",
				ContentType:   "application/javascript",
			},
			Assets: userDefinedAssets,
		},
		asset.PlatformIOS: {
			LaunchAsset: asset.Asset{
				Path:          filepath.Join(inputDir, "bundles", "ios.js"),
				FileExtension: ".bundle",
				ContentType:   "application/javascript",
			},
			Assets: userDefinedAssets,
		},
	}, got)

	got, err = CollectAssets(inputDir, []asset.Platform{asset.PlatformIOS})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, asset.PlatformIOS)
}

func TestCollectAssetsZeroAssets(t *testing.T) {
	inputDir := t.TempDir()
	writeFile(t, filepath.Join(inputDir, MetadataFile), `{
		"version": 0,
		"bundler": "metro",
		"fileMetadata": {"android": {"assets": [], "bundle": "bundles/android.js"}}
	}`)

	got, err := CollectAssets(inputDir, []asset.Platform{asset.PlatformAndroid})
	require.NoError(t, err)
	assert.Empty(t, got[asset.PlatformAndroid].Assets)
	assert.Equal(t, filepath.Join(inputDir, "bundles", "android.js"), got[asset.PlatformAndroid].LaunchAsset.Path)
}

func TestCollectAssetsErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := CollectAssets(filepath.Join(t.TempDir(), "nope"), asset.DefaultPlatforms)
		var target *MissingInputDirectoryError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("malformed metadata", func(t *testing.T) {
		inputDir := t.TempDir()
		writeFile(t, filepath.Join(inputDir, MetadataFile), `{"version": 0, "bundler": "metro", "fileMetadata": {"ios": {"assets": []}}}`)

		_, err := CollectAssets(inputDir, []asset.Platform{asset.PlatformIOS})
		var target *MalformedMetadataError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("platform not in metadata", func(t *testing.T) {
		inputDir := t.TempDir()
		writeFile(t, filepath.Join(inputDir, MetadataFile), `{"version": 0, "bundler": "metro", "fileMetadata": {"ios": {"assets": [], "bundle": "bundles/ios.js"}}}`)

		_, err := CollectAssets(inputDir, []asset.Platform{asset.PlatformAndroid})
		var target *MalformedMetadataError
		assert.ErrorAs(t, err, &target)
	})
}
