package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/config"
)

func TestLocalStorageDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "videos", "a.mp4"), []byte("x"), 0644))

	ok, err := s.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "videos/a.mp4"))
	ok, err = s.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.False(t, ok)

	// 重复删除不报错
	assert.NoError(t, s.Delete(ctx, "videos/a.mp4"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Delete(context.Background(), "../etc/passwd"))
	assert.Error(t, s.Delete(context.Background(), ""))
}

func TestNew(t *testing.T) {
	s, err := New(config.StorageConfig{Type: "local", BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(config.StorageConfig{Type: "s3"})
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
