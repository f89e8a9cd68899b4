package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// tempPrefix marks partially written files, which List skips.
const tempPrefix = ".upload-"

// DiskBackend stores objects as files under a directory on the local
// filesystem. Content types are not recorded.
type DiskBackend struct {
	baseDir string
}

// NewDiskBackend creates a DiskBackend that stores objects under baseDir. The
// directory is created if it does not already exist.
func NewDiskBackend(baseDir string) (*DiskBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &DiskBackend{baseDir: abs}, nil
}

func (b *DiskBackend) path(objectName string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectName))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: invalid object name %q", objectName)
	}
	return filepath.Join(b.baseDir, clean), nil
}

// Upload writes content to baseDir/objectName, creating any intermediate
// directories as needed. The file appears only once fully written.
func (b *DiskBackend) Upload(_ context.Context, req *UploadRequest) error {
	dest, err := b.path(req.ObjectName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("storage: failed to create directory for %q: %w", req.ObjectName, err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: failed to create file for %q: %w", req.ObjectName, err)
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, req.Content); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: failed to close file %q: %w", dest, err)
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		return fmt.Errorf("storage: failed to commit file %q: %w", dest, err)
	}
	return nil
}

func (b *DiskBackend) Download(_ context.Context, objectName string) ([]byte, error) {
	path, err := b.path(objectName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrObjectNotExist, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read file %q: %w", path, err)
	}
	return data, nil
}

func (b *DiskBackend) Exists(_ context.Context, objectName string) (bool, error) {
	path, err := b.path(objectName)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: failed to stat %q: %w", path, err)
	}
	return !info.IsDir(), nil
}

// List walks only the directory named by the part of prefix up to its last
// slash, so listing staged uploads does not visit stored assets.
func (b *DiskBackend) List(_ context.Context, prefix string) ([]string, error) {
	root := b.baseDir
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		dir, err := b.path(prefix[:i])
		if err != nil {
			return nil, err
		}
		root = dir
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list %q: %w", prefix, err)
	}
	return names, nil
}

func (b *DiskBackend) Delete(_ context.Context, objectName string) error {
	path, err := b.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %q: %w", path, err)
	}
	return nil
}
