// Package buffer provides a local file-based buffer for offline metric storage.
// Batches that could not be delivered are written as timestamped JSON files
// and drained oldest first once the ingestion API is reachable again. Data
// persists across crashes and reboots; a size cap drops the oldest batches.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/models"
)

const fileExt = ".json"

// entry is the on-disk form of one buffered batch.
type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Metrics  []models.Metric `json:"metrics"`
}

// Buffer stores undelivered batches in a directory, one file per batch.
type Buffer struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger

	mu  sync.Mutex
	seq uint64
}

// New creates a new file-based buffer at the given directory path.
// The directory is created if it does not exist. A non-positive maxSizeMB
// disables the size cap.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{
		dir:      dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger.Named("buffer"),
	}, nil
}

// Store saves a batch of metrics. While the buffer is over its size limit
// the oldest batches are dropped first.
func (b *Buffer) Store(metrics []models.Metric) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(entry{StoredAt: time.Now().UTC(), Metrics: metrics})
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	if b.maxBytes > 0 {
		for b.sizeLocked()+int64(len(data)) > b.maxBytes {
			if !b.dropOldestLocked() {
				break
			}
		}
	}

	b.seq++
	name := fmt.Sprintf("%s-%06d%s", time.Now().UTC().Format("20060102T150405.000000"), b.seq%1000000, fileExt)
	path := filepath.Join(b.dir, name)

	// Write to temp file first, then rename (atomic operation)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("writing buffer file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("committing buffer file: %w", err)
	}
	return nil
}

// Drain hands buffered batches to send, oldest first. A batch is removed
// once send accepts it; the first send error stops the drain and leaves the
// remaining batches in place. Corrupted files are removed and logged.
// It returns the number of batches delivered.
func (b *Buffer) Drain(send func([]models.Metric) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.filesLocked()
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, name := range names {
		path := filepath.Join(b.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Failed to read buffer file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			b.logger.Warn("Failed to parse buffer file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			_ = os.Remove(path)
			continue
		}

		if err := send(e.Metrics); err != nil {
			return delivered, err
		}
		if err := os.Remove(path); err != nil {
			b.logger.Warn("Failed to remove delivered buffer file",
				zap.String("file", path),
				zap.Error(err))
		}
		delivered++
	}
	return delivered, nil
}

// Count returns the number of buffered batches.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	names, err := b.filesLocked()
	if err != nil {
		return 0
	}
	return len(names)
}

// filesLocked lists batch files oldest first.
func (b *Buffer) filesLocked() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == fileExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *Buffer) sizeLocked() int64 {
	names, err := b.filesLocked()
	if err != nil {
		return 0
	}
	var total int64
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(b.dir, name)); err == nil {
			total += info.Size()
		}
	}
	return total
}

// dropOldestLocked removes the oldest batch. It reports false when there
// was nothing to remove.
func (b *Buffer) dropOldestLocked() bool {
	names, err := b.filesLocked()
	if err != nil || len(names) == 0 {
		return false
	}
	path := filepath.Join(b.dir, names[0])
	b.logger.Warn("Buffer full, dropping oldest batch", zap.String("file", path))
	if err := os.Remove(path); err != nil {
		b.logger.Warn("Failed to remove oldest buffer file",
			zap.String("file", path),
			zap.Error(err))
		return false
	}
	return true
}
