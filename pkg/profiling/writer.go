package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Writer persists profile snapshots under a per-type directory layout
// and rotates old ones. Safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	outputDir  string
	maxFiles   int
	maxBytes   int64
	autoRotate bool
	seq        uint64
}

// NewWriter creates a Writer rooted at outputDir.
func NewWriter(outputDir string, maxFiles int, maxBytes int64, autoRotate bool) *Writer {
	return &Writer{
		outputDir:  outputDir,
		maxFiles:   maxFiles,
		maxBytes:   maxBytes,
		autoRotate: autoRotate,
	}
}

// EnsureDir creates the output directory and one subdirectory per
// profile type.
func (w *Writer) EnsureDir(profiles []ProfileType) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, pt := range profiles {
		dir := filepath.Join(w.outputDir, string(pt))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create profile directory %s: %w", pt, err)
		}
	}

	return nil
}

// Write stores one snapshot and returns the file path. File names carry
// a sequence number so snapshots taken within the same second do not
// overwrite each other.
func (w *Writer) Write(pt ProfileType, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	dir := filepath.Join(w.outputDir, string(pt))
	filename := fmt.Sprintf("%s_%s_%04d.pprof", pt, time.Now().Format("20060102_150405"), w.seq)
	filePath := filepath.Join(dir, filename)

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write profile file: %w", err)
	}

	if w.autoRotate {
		if err := w.rotate(dir); err != nil {
			fmt.Printf("Warning: failed to rotate profile files: %v\n", err)
		}
	}

	return filePath, nil
}

// WriteToFile stores snapshot data at an explicit path, creating parent
// directories as needed.
func (w *Writer) WriteToFile(filePath string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(filePath, data, 0600)
}

// rotate trims a profile directory to the configured file count and
// byte budget, oldest first. The newest snapshot is always kept.
func (w *Writer) rotate(dir string) error {
	if w.maxFiles <= 0 && w.maxBytes <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type fileInfo struct {
		name    string
		size    int64
		modTime time.Time
	}

	var files []fileInfo
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pprof" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			name:    entry.Name(),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	overCount := func() bool { return w.maxFiles > 0 && len(files) > w.maxFiles }
	overBytes := func() bool { return w.maxBytes > 0 && total > w.maxBytes }

	for (overCount() || overBytes()) && len(files) > 1 {
		oldest := files[0]
		if err := os.Remove(filepath.Join(dir, oldest.name)); err != nil {
			return fmt.Errorf("failed to remove old file %s: %w", oldest.name, err)
		}
		total -= oldest.size
		files = files[1:]
	}

	return nil
}

// OutputDir returns the writer's root directory.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// ListFiles returns the snapshot files stored for a profile type.
func (w *Writer) ListFiles(pt ProfileType) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.outputDir, string(pt))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".pprof" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Clean removes the output directory and everything under it.
func (w *Writer) Clean() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return os.RemoveAll(w.outputDir)
}
