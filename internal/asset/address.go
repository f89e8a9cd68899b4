package asset

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
)

// Digest returns the SHA-256 of b, base64url encoded without padding.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// StorageKey derives the content address for a file with the given content
// type and digest. The NUL separator keeps ("image/jpeg", "x") and
// ("image", "/jpegx") apart.
func StorageKey(contentType, digest string) string {
	h := sha256.New()
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write([]byte(digest))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// BundleKey returns the hex MD5 of b.
func BundleKey(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// AddressBytes computes the identifiers for an asset whose contents are b.
func AddressBytes(a Asset, b []byte) AddressedAsset {
	digest := Digest(b)
	return AddressedAsset{
		Path:          a.Path,
		FileExtension: a.FileExtension,
		ContentType:   a.ContentType,
		FileSHA256:    digest,
		StorageKey:    StorageKey(a.ContentType, digest),
		BundleKey:     BundleKey(b),
	}
}

// Address reads the asset from disk and computes its identifiers.
func Address(a Asset) (AddressedAsset, error) {
	b, err := os.ReadFile(a.Path)
	if err != nil {
		return AddressedAsset{}, fmt.Errorf("asset: failed to read %q: %w", a.Path, err)
	}
	return AddressBytes(a, b), nil
}
