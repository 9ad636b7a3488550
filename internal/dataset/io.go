package dataset

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sortbench/pkg/compression"
	"github.com/sortbench/pkg/errors"
	"github.com/sortbench/pkg/writer"
)

// Save writes a dataset to path. The extension picks the format:
//
//	.json              JSON array
//	.bin               little-endian int64 stream
//	.bin.gz / .bin.zst compressed little-endian int64 stream
//
// Parent directories are created as needed.
func Save(path string, data []int64) error {
	if strings.HasSuffix(path, ".json") {
		w := writer.NewJSONWriter[[]int64]()
		if err := w.WriteToFile(data, path); err != nil {
			return errors.Wrap(errors.CodeDatasetError, "failed to save dataset", err)
		}
		return nil
	}

	payload := encodeBinary(data)

	ct := compressionTypeForPath(path)
	comp, err := compression.New(ct, compression.LevelDefault)
	if err != nil {
		return errors.Wrap(errors.CodeDatasetError, "failed to init compressor", err)
	}
	defer compression.Close(comp)

	compressed, err := comp.Compress(payload)
	if err != nil {
		return errors.Wrap(errors.CodeDatasetError, "failed to compress dataset", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(errors.CodeDatasetError, "failed to create dataset directory", err)
		}
	}

	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return errors.Wrap(errors.CodeDatasetError, "failed to write dataset file", err)
	}
	return nil
}

// Load reads a dataset written by Save. Compression is detected from
// the file's magic bytes, so a .bin file that happens to be gzipped
// still loads. JSON is recognized by extension.
func Load(path string) ([]int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.CodeNotFound, "dataset file not found", err)
		}
		return nil, errors.Wrap(errors.CodeDatasetError, "failed to read dataset file", err)
	}

	data, err := compression.AutoDecompress(raw)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatasetError, "failed to decompress dataset", err)
	}

	if isJSONPath(path) {
		var values []int64
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, errors.Wrap(errors.CodeDatasetError, "failed to parse dataset JSON", err)
		}
		return values, nil
	}

	return decodeBinary(data)
}

// encodeBinary packs values as little-endian int64.
func encodeBinary(data []int64) []byte {
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return buf
}

// decodeBinary unpacks a little-endian int64 stream.
func decodeBinary(data []byte) ([]int64, error) {
	if len(data)%8 != 0 {
		return nil, errors.Newf(errors.CodeDatasetError, "truncated dataset: %d bytes is not a whole number of int64", len(data))
	}

	values := make([]int64, len(data)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return values, nil
}

// compressionTypeForPath maps the outermost extension to a compression
// type. Unknown extensions mean no compression.
func compressionTypeForPath(path string) compression.Type {
	switch filepath.Ext(path) {
	case ".gz":
		return compression.TypeGzip
	case ".zst":
		return compression.TypeZstd
	default:
		return compression.TypeNone
	}
}

// isJSONPath reports whether the path names a JSON dataset, compressed
// or not.
func isJSONPath(path string) bool {
	name := path
	switch filepath.Ext(name) {
	case ".gz", ".zst":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return filepath.Ext(name) == ".json"
}

// DefaultFileName returns the canonical on-disk name for a spec,
// zstd-compressed binary by default.
func DefaultFileName(spec Spec) string {
	return spec.CaseName() + ".bin.zst"
}
