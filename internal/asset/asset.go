// Package asset describes the files that make up a published update and the
// content addresses derived from their bytes.
//
// A storage key is a pure function of an asset's content type and SHA-256
// digest, so byte-identical files with the same content type always share a
// key. Publishing relies on this to deduplicate assets across platforms.
package asset

// Platform identifies a publish target, e.g. "android" or "ios".
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// DefaultPlatforms are published when the caller does not name any.
var DefaultPlatforms = []Platform{PlatformAndroid, PlatformIOS}

// Asset is a file on disk that belongs to an update. Assets are immutable once
// read.
type Asset struct {
	// Path is the location of the file on disk.
	Path string `json:"path"`

	// FileExtension includes the leading dot, e.g. ".png". Empty if unknown.
	FileExtension string `json:"fileExtension,omitempty"`

	// ContentType is the MIME type the asset is served with.
	ContentType string `json:"contentType"`
}

// AddressedAsset is an Asset together with the identifiers derived from its
// bytes. Path is carried so the bytes can be uploaded later but is not part of
// the serialised form.
type AddressedAsset struct {
	Path          string `json:"-"`
	FileExtension string `json:"fileExtension,omitempty"`
	ContentType   string `json:"contentType"`

	// FileSHA256 is the unpadded base64url SHA-256 of the file bytes.
	FileSHA256 string `json:"fileSHA256"`

	// StorageKey is the remote lookup key; see StorageKey.
	StorageKey string `json:"storageKey"`

	// BundleKey is the legacy MD5 identifier. It plays no part in dedup.
	BundleKey string `json:"bundleKey"`
}

// PlatformAssets is the launch bundle and supporting assets for one platform.
type PlatformAssets struct {
	LaunchAsset Asset   `json:"launchAsset"`
	Assets      []Asset `json:"assets"`
}
