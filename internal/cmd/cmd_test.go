package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/cli-runtime/iooption"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/manifest"
	"github.com/tomasbasham/assetpub/internal/remote"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setup lays out a bundler output directory and a configuration file that
// stores assets on disk, both under a fresh temporary directory.
func setup(t *testing.T) (configPath, inputDir, storeDir string) {
	t.Helper()
	root := t.TempDir()
	inputDir = filepath.Join(root, "dist")
	storeDir = filepath.Join(root, "store")

	writeFile(t, filepath.Join(inputDir, manifest.MetadataFile), `{"version": 0, "bundler": "metro", "fileMetadata": {
		"android": {"bundle": "bundles/android.js", "assets": [{"path": "assets/icon", "ext": "png"}]},
		"ios": {"bundle": "bundles/ios.js", "assets": [{"path": "assets/icon", "ext": "png"}]}
	}}`)
	writeFile(t, filepath.Join(inputDir, "bundles/android.js"), "android bundle")
	writeFile(t, filepath.Join(inputDir, "bundles/ios.js"), "ios bundle")
	writeFile(t, filepath.Join(inputDir, "assets/icon"), "I am pretending to be a png")

	configPath = filepath.Join(root, "assetpub.yaml")
	writeFile(t, configPath, "project_id: test-project\ninput_dir: "+inputDir+"\nstorage:\n  type: fs\n  dir: "+storeDir+"\n")
	return configPath, inputDir, storeDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommandWithArgs(NewAssetpubOptions(iooption.IOStreams{
		In:     &bytes.Buffer{},
		Out:    &out,
		ErrOut: &errOut,
	}))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPublishCommand(t *testing.T) {
	configPath, _, storeDir := setup(t)

	out, err := execute(t, "publish", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploading assets: 3/3 missing")
	assert.Contains(t, out, "Uploading assets: 0/3 missing")
	assert.Contains(t, out, "Publish complete: 4 assets, 3 unique, 3 uploaded (limit 1400)")
	assert.Contains(t, out, "android update ")
	assert.Contains(t, out, "ios update ")

	updates, err := filepath.Glob(filepath.Join(storeDir, "updates", "*", "*.json"))
	require.NoError(t, err)
	assert.Len(t, updates, 2)

	icon := asset.AddressBytes(asset.Asset{ContentType: "image/png"}, []byte("I am pretending to be a png"))
	assert.FileExists(t, filepath.Join(storeDir, remote.AssetObjectName(icon.StorageKey)))

	out, err = execute(t, "publish", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Publish complete: 4 assets, 3 unique, 0 uploaded (limit 1400)")
}

func TestPublishCommandRecordsBranchAndMessage(t *testing.T) {
	configPath, _, storeDir := setup(t)

	_, err := execute(t, "publish", "--config", configPath, "--platform", "ios",
		"--branch", "preview", "--message", "Fix login", "--runtime-version", "1.0.0")
	require.NoError(t, err)

	docs, err := filepath.Glob(filepath.Join(storeDir, "updates", "*", "ios.json"))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	data, err := os.ReadFile(docs[0])
	require.NoError(t, err)
	var doc struct {
		Branch         string `json:"branch"`
		Message        string `json:"message"`
		RuntimeVersion string `json:"runtimeVersion"`
		ProjectID      string `json:"projectId"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "preview", doc.Branch)
	assert.Equal(t, "Fix login", doc.Message)
	assert.Equal(t, "1.0.0", doc.RuntimeVersion)
	assert.Equal(t, "test-project", doc.ProjectID)
}

func TestPublishCommandSinglePlatform(t *testing.T) {
	configPath, _, _ := setup(t)

	out, err := execute(t, "publish", "--config", configPath, "--platform", "ios")
	require.NoError(t, err)
	assert.Contains(t, out, "Publish complete: 2 assets, 2 unique, 2 uploaded")
}

func TestPublishCommandRequiresProjectID(t *testing.T) {
	configPath, _, _ := setup(t)
	t.Setenv("ASSETPUB_PROJECT_ID", "")

	_, err := execute(t, "publish", "--config", configPath, "--project-id", "")
	require.ErrorContains(t, err, "project ID is required")
}

func TestPublishCommandMissingInputDirectory(t *testing.T) {
	configPath, inputDir, _ := setup(t)

	_, err := execute(t, "publish", "--config", configPath, "--input-dir", filepath.Join(inputDir, "nope"))
	var missing *manifest.MissingInputDirectoryError
	require.ErrorAs(t, err, &missing)
}

func TestCollectCommand(t *testing.T) {
	configPath, _, storeDir := setup(t)

	out, err := execute(t, "collect", "--config", configPath)
	require.NoError(t, err)

	var group updateinfo.Group
	require.NoError(t, json.Unmarshal([]byte(out), &group))
	require.Len(t, group, 2)
	assert.Equal(t, ".bundle", group[asset.PlatformIOS].LaunchAsset.FileExtension)
	assert.Equal(t, group[asset.PlatformIOS].Assets[0].StorageKey, group[asset.PlatformAndroid].Assets[0].StorageKey)

	assert.NoDirExists(t, storeDir)
}
