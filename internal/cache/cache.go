// Package cache provides the persistent artifact cache for fetched
// transcripts and generated notes, so repeat requests for the same
// lecture skip transcript fetches and LLM round trips.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Stats holds cache performance metrics.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
	LastEvict  time.Time
}

// Store is a disk-backed artifact cache with zstd compression and LRU
// eviction. Artifacts are keyed by opaque strings; files on disk are
// named by key hash.
type Store struct {
	basePath string
	capacity int64
	size     int64

	compressionLevel int
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder

	index map[string]*indexEntry

	mu sync.RWMutex

	stats Stats

	enableCompression bool
}

// indexEntry describes one cached artifact on disk.
type indexEntry struct {
	Key          string
	FilePath     string
	Size         int64 // Size on disk (compressed)
	OriginalSize int64
	Timestamp    time.Time
	LastAccess   time.Time
	Hits         int64
	Compressed   bool
}

// NewStore creates a cache rooted at basePath. A compressionLevel of zero
// disables compression.
func NewStore(basePath string, capacity int64, compressionLevel int) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &Store{
		basePath:          basePath,
		capacity:          capacity,
		compressionLevel:  compressionLevel,
		index:             make(map[string]*indexEntry),
		enableCompression: compressionLevel > 0,
		stats:             Stats{Capacity: capacity},
	}

	if s.enableCompression {
		var err error
		s.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}

		s.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	if err := s.loadIndex(); err != nil {
		// Non-fatal: start with an empty index
		s.index = make(map[string]*indexEntry)
	}
	s.recalculateSize()

	return s, nil
}

// Key derives a cache key from its parts. The same lecture with a
// different detail level or focus caches separately.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves an artifact from the cache.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		// File missing or unreadable, drop from index
		delete(s.index, key)
		s.size -= entry.Size
		s.stats.Misses++
		return nil, false
	}

	if entry.Compressed && s.enableCompression {
		decompressed, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			delete(s.index, key)
			os.Remove(entry.FilePath)
			s.size -= entry.Size
			s.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	entry.Hits++
	s.stats.Hits++
	s.stats.LastAccess = time.Now()

	return data, true
}

// Put stores an artifact, evicting least recently used entries as needed.
func (s *Store) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	originalSize := int64(len(value))

	var dataToWrite []byte
	var compressed bool
	if s.enableCompression && originalSize > 1024 {
		compressedData := s.encoder.EncodeAll(value, nil)
		// Only keep compression when it actually wins
		if len(compressedData) < len(value) {
			dataToWrite = compressedData
			compressed = true
		} else {
			dataToWrite = value
		}
	} else {
		dataToWrite = value
	}

	diskSize := int64(len(dataToWrite))

	if existing, ok := s.index[key]; ok {
		s.size -= existing.Size
		os.Remove(existing.FilePath)
	}

	if diskSize > s.capacity {
		return ErrItemTooLarge
	}

	for s.size+diskSize > s.capacity && len(s.index) > 0 {
		s.evictOldest()
	}

	filePath := s.filePathFor(key)
	if err := writeAtomic(filePath, dataToWrite); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	s.index[key] = &indexEntry{
		Key:          key,
		FilePath:     filePath,
		Size:         diskSize,
		OriginalSize: originalSize,
		Timestamp:    time.Now(),
		LastAccess:   time.Now(),
		Compressed:   compressed,
	}
	s.size += diskSize

	s.stats.Size = s.size
	s.stats.ItemCount = int64(len(s.index))

	return nil
}

// Delete removes an artifact from the cache.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[key]
	if !ok {
		return nil
	}

	os.Remove(entry.FilePath)
	delete(s.index, key)
	s.size -= entry.Size

	s.stats.Size = s.size
	s.stats.ItemCount = int64(len(s.index))

	return nil
}

// Clear removes all cached artifacts.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.index {
		os.Remove(entry.FilePath)
	}

	s.index = make(map[string]*indexEntry)
	s.size = 0
	s.stats.Size = 0
	s.stats.ItemCount = 0

	return s.saveIndex()
}

// Size returns the current cache size in bytes.
func (s *Store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Size = s.size
	stats.ItemCount = int64(len(s.index))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}

	return stats
}

// RemoveOlderThan removes entries cached before the cutoff.
func (s *Store) RemoveOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.index {
		if entry.Timestamp.Before(cutoff) {
			os.Remove(entry.FilePath)
			s.size -= entry.Size
			delete(s.index, key)
			removed++
		}
	}

	s.stats.Size = s.size
	s.stats.ItemCount = int64(len(s.index))

	return removed
}

// Close persists the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveIndex()
}

func (s *Store) filePathFor(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(s.basePath, hex.EncodeToString(hash[:16])+".cache")
}

func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range s.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}

	if oldestKey != "" {
		entry := s.index[oldestKey]
		os.Remove(entry.FilePath)
		s.size -= entry.Size
		delete(s.index, oldestKey)
		s.stats.Evictions++
		s.stats.LastEvict = time.Now()
	}
}

func (s *Store) loadIndex() error {
	file, err := os.Open(filepath.Join(s.basePath, "cache.index"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&s.index)
}

func (s *Store) saveIndex() error {
	indexPath := filepath.Join(s.basePath, "cache.index")
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(s.index)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, indexPath)
}

func (s *Store) recalculateSize() {
	s.size = 0
	for _, entry := range s.index {
		s.size += entry.Size
	}
	s.stats.Size = s.size
	s.stats.ItemCount = int64(len(s.index))
}

// writeAtomic writes data via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
