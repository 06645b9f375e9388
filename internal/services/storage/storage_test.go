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

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Store(context.Background(), []byte("license scan"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	data, err := os.ReadFile(filepath.Join(store.baseDir, ref))
	require.NoError(t, err)
	assert.Equal(t, "license scan", string(data))

	require.NoError(t, store.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(store.baseDir, ref))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStoreDeleteMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never-stored.pdf"))
}

func TestDiskStoreDeleteRejectsPathEscape(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Delete(context.Background(), "../etc/passwd"))
	assert.Error(t, store.Delete(context.Background(), "sub/dir.pdf"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".pdf", extensionFor("application/pdf"))
	assert.Equal(t, "", extensionFor("application/zip"))
}
