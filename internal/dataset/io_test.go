package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortbench/pkg/errors"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	ctx := context.Background()
	data, err := Generate(ctx, Spec{Kind: KindRandom, Size: 4096, Seed: 11})
	require.NoError(t, err)

	names := []string{
		"data.bin",
		"data.bin.gz",
		"data.bin.zst",
		"data.json",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, data))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestSaveCompressedIsSmaller(t *testing.T) {
	// Sorted data compresses extremely well, so the zst file should be a
	// fraction of the raw binary encoding.
	data, err := Generate(context.Background(), Spec{Kind: KindSorted, Size: 1 << 14, Seed: 0})
	require.NoError(t, err)

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "data.bin")
	zstPath := filepath.Join(dir, "data.bin.zst")

	require.NoError(t, Save(rawPath, data))
	require.NoError(t, Save(zstPath, data))

	rawInfo, err := os.Stat(rawPath)
	require.NoError(t, err)
	zstInfo, err := os.Stat(zstPath)
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)*8), rawInfo.Size())
	assert.Less(t, zstInfo.Size(), rawInfo.Size())
}

func TestSaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "data.bin")
	require.NoError(t, Save(path, []int64{1, 2, 3}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, loaded)
}

func TestSaveEmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, Save(path, []int64{}))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadTruncatedBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatasetError, errors.GetErrorCode(err))
}

func TestLoadDetectsCompressionWithoutExtension(t *testing.T) {
	// A gzip payload saved under a plain name still loads: detection is by
	// magic bytes, not file name.
	dir := t.TempDir()
	gzPath := filepath.Join(dir, "data.bin.gz")
	require.NoError(t, Save(gzPath, []int64{5, 4, 3, 2, 1}))

	plainPath := filepath.Join(dir, "data.bin")
	raw, err := os.ReadFile(gzPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(plainPath, raw, 0644))

	loaded, err := Load(plainPath)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, loaded)
}

func TestDefaultFileName(t *testing.T) {
	spec := Spec{Kind: KindRandom, Size: 1 << 20, Seed: 3}
	assert.Equal(t, "random-1m.bin.zst", DefaultFileName(spec))
}
