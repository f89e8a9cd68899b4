package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewDiskBackend(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, b.Upload(ctx, &UploadRequest{
		ObjectName:  "assets/abc",
		Content:     strings.NewReader("hello"),
		ContentType: "text/plain",
	}))

	ok, err := b.Exists(ctx, "assets/abc")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := b.Download(ctx, "assets/abc")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, b.Delete(ctx, "assets/abc"))
	ok, err = b.Exists(ctx, "assets/abc")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Download(ctx, "assets/abc")
	assert.ErrorIs(t, err, ErrObjectNotExist)

	assert.NoError(t, b.Delete(ctx, "assets/abc"))
}

func TestDiskBackendList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewDiskBackend(dir)
	require.NoError(t, err)

	for _, name := range []string{"uploads/a/x", "uploads/b/y", "assets/z"} {
		require.NoError(t, b.Upload(ctx, &UploadRequest{ObjectName: name, Content: strings.NewReader(name)}))
	}
	// A half written upload must not be listed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads", tempPrefix+"123"), []byte("partial"), 0o644))

	names, err := b.List(ctx, "uploads/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"uploads/a/x", "uploads/b/y"}, names)
}

func TestDiskBackendRejectsEscapingNames(t *testing.T) {
	b, err := NewDiskBackend(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside", "/etc/passwd", ""} {
		err := b.Upload(context.Background(), &UploadRequest{ObjectName: name, Content: strings.NewReader("x")})
		assert.Error(t, err, name)
	}
}

func TestDiskBackendListPrefixes(t *testing.T) {
	ctx := context.Background()
	b, err := NewDiskBackend(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"uploads/a/x", "uploads/ab/y", "uploads/b/z", "assets/a"} {
		require.NoError(t, b.Upload(ctx, &UploadRequest{ObjectName: name, Content: strings.NewReader(name)}))
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"uploads/a", []string{"uploads/a/x", "uploads/ab/y"}},
		{"uploads/a/", []string{"uploads/a/x"}},
		{"uploads/missing/", nil},
		{"updates/", nil},
		{"", []string{"uploads/a/x", "uploads/ab/y", "uploads/b/z", "assets/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			names, err := b.List(ctx, tt.prefix)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names)
		})
	}

	_, err = b.List(ctx, "../escape/")
	assert.Error(t, err)
}
