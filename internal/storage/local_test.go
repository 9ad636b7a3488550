package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/pkg/config"
	"github.com/sortbench/pkg/errors"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("CreatesBaseDir", func(t *testing.T) {
		tempDir := t.TempDir()
		basePath := filepath.Join(tempDir, "artifacts")

		store, err := NewLocalStorage(basePath)
		require.NoError(t, err)
		require.NotNil(t, store)

		info, err := os.Stat(basePath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("EmptyPathUsesDefault", func(t *testing.T) {
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		require.NoError(t, os.Chdir(t.TempDir()))

		store, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, "./storage", store.GetBasePath())
	})
}

func TestLocalStorage_Upload(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("UploadFromReader", func(t *testing.T) {
		content := []byte(`{"rid":"run-1"}`)

		err := store.Upload(context.Background(), RunKey("run-1", "report.json"), bytes.NewReader(content))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "runs", "run-1", "report.json"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadWithCanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Upload(ctx, "canceled.txt", bytes.NewReader([]byte("x")))
		assert.Error(t, err)
	})
}

func TestLocalStorage_UploadFile(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("UploadLocalFile", func(t *testing.T) {
		srcFile := filepath.Join(t.TempDir(), "chart.json.gz")
		content := []byte("gzipped chart")
		require.NoError(t, os.WriteFile(srcFile, content, 0644))

		err := store.UploadFile(context.Background(), RunKey("run-2", "chart.json.gz"), srcFile)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "runs", "run-2", "chart.json.gz"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadNonExistentFile", func(t *testing.T) {
		err := store.UploadFile(context.Background(), "dest.txt", "/nonexistent/path.txt")
		assert.Error(t, err)
	})
}

func TestLocalStorage_Download(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("DownloadExistingFile", func(t *testing.T) {
		content := []byte("stored artifact")
		require.NoError(t, store.Upload(context.Background(), "download/test.txt", bytes.NewReader(content)))

		reader, err := store.Download(context.Background(), "download/test.txt")
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("DownloadMissingIsNotFound", func(t *testing.T) {
		_, err := store.Download(context.Background(), "nonexistent.txt")
		assert.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestLocalStorage_DownloadFile(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("DownloadToLocalFile", func(t *testing.T) {
		content := []byte("dataset bytes")
		require.NoError(t, store.Upload(context.Background(), DatasetKey("random-1m.bin.zst"), bytes.NewReader(content)))

		destPath := filepath.Join(t.TempDir(), "local", "random-1m.bin.zst")
		err := store.DownloadFile(context.Background(), DatasetKey("random-1m.bin.zst"), destPath)
		require.NoError(t, err)

		data, err := os.ReadFile(destPath)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("DownloadMissingToFile", func(t *testing.T) {
		destPath := filepath.Join(t.TempDir(), "missing.txt")
		err := store.DownloadFile(context.Background(), "missing.txt", destPath)
		assert.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestLocalStorage_Delete(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("DeleteExistingFile", func(t *testing.T) {
		require.NoError(t, store.Upload(context.Background(), "delete/test.txt", bytes.NewReader([]byte("x"))))

		require.NoError(t, store.Delete(context.Background(), "delete/test.txt"))

		_, err = os.Stat(filepath.Join(tempDir, "delete", "test.txt"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("DeleteMissingIsIdempotent", func(t *testing.T) {
		assert.NoError(t, store.Delete(context.Background(), "nonexistent.txt"))
	})
}

func TestLocalStorage_Exists(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	t.Run("FileExists", func(t *testing.T) {
		require.NoError(t, store.Upload(context.Background(), "exists.txt", bytes.NewReader([]byte("x"))))

		exists, err := store.Exists(context.Background(), "exists.txt")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("FileNotExists", func(t *testing.T) {
		exists, err := store.Exists(context.Background(), "notexists.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestLocalStorage_GetURL(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	url := store.GetURL(RunKey("run-1", "report.txt"))
	assert.Equal(t, filepath.Join(tempDir, "runs", "run-1", "report.txt"), url)
}

func TestStorageKeys(t *testing.T) {
	assert.Equal(t, "runs/run-1/report.json", RunKey("run-1", "report.json"))
	assert.Equal(t, "datasets/sorted-64k.bin.zst", DatasetKey("sorted-64k.bin.zst"))
}

func TestNewStorage_Local(t *testing.T) {
	t.Run("CreateLocalStorage", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Type:      "local",
			LocalPath: t.TempDir(),
		}

		store, err := NewStorage(cfg)
		require.NoError(t, err)
		require.NotNil(t, store)

		_, ok := store.(*LocalStorage)
		assert.True(t, ok)
	})

	t.Run("UnsupportedTypeErrors", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Type:      "s3",
			LocalPath: t.TempDir(),
		}

		store, err := NewStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}
