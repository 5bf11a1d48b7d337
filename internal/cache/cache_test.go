package cache

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T, capacity int64, level int) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), capacity, level)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := newTestStore(t, 1<<20, 3)

	key := Key("notes", "vid123", "Standard")
	value := []byte("generated notes body")

	if err := s.Put(key, value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := s.Get(key)
	if !ok {
		t.Fatal("Get() reported a miss for a stored key")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get() = %q, want %q", got, value)
	}

	if _, ok := s.Get(Key("notes", "other")); ok {
		t.Error("Get() reported a hit for an unknown key")
	}
}

func TestStoreCompressionRoundTrip(t *testing.T) {
	s := newTestStore(t, 1<<20, 3)

	// Repetitive payload above the compression threshold.
	value := bytes.Repeat([]byte("lecture transcript line\n"), 500)
	key := Key("transcript", "vid123")

	if err := s.Put(key, value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if s.Size() >= int64(len(value)) {
		t.Errorf("compressible payload stored at %d bytes, want under %d", s.Size(), len(value))
	}

	got, ok := s.Get(key)
	if !ok || !bytes.Equal(got, value) {
		t.Error("compressed artifact did not round-trip")
	}
}

func TestStoreCompressionDisabled(t *testing.T) {
	s := newTestStore(t, 1<<20, 0)

	value := bytes.Repeat([]byte("x"), 4096)
	if err := s.Put("k", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if s.Size() != int64(len(value)) {
		t.Errorf("Size() = %d, want %d with compression off", s.Size(), len(value))
	}
}

func TestStoreEviction(t *testing.T) {
	// Capacity for roughly three small items; incompressible values.
	s := newTestStore(t, 3072, 0)

	for i := 0; i < 4; i++ {
		key := Key("item", fmt.Sprint(i))
		if err := s.Put(key, bytes.Repeat([]byte{byte(i)}, 1024)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
		// LastAccess ordering needs distinct timestamps.
		time.Sleep(2 * time.Millisecond)
	}

	if _, ok := s.Get(Key("item", "0")); ok {
		t.Error("oldest item should have been evicted")
	}
	if _, ok := s.Get(Key("item", "3")); !ok {
		t.Error("newest item should survive eviction")
	}
	if s.Stats().Evictions == 0 {
		t.Error("Stats() should count evictions")
	}
}

func TestStoreItemTooLarge(t *testing.T) {
	s := newTestStore(t, 128, 0)

	err := s.Put("big", bytes.Repeat([]byte{1}, 1024))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() oversized error = %v, want ErrItemTooLarge", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Put("persist-key", []byte("survives restarts")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStore(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewStore() after reopen error = %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("persist-key")
	if !ok || string(got) != "survives restarts" {
		t.Errorf("reopened Get() = %q, %v; want stored value", got, ok)
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := newTestStore(t, 1<<20, 0)

	_ = s.Put("a", []byte("one"))
	_ = s.Put("b", []byte("two"))

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("deleted key still readable")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", s.Size())
	}
	if _, ok := s.Get("b"); ok {
		t.Error("cleared key still readable")
	}
}

func TestStoreRemoveOlderThan(t *testing.T) {
	s := newTestStore(t, 1<<20, 0)

	_ = s.Put("old", []byte("stale"))
	cutoff := time.Now().Add(time.Second)

	if removed := s.RemoveOlderThan(cutoff); removed != 1 {
		t.Errorf("RemoveOlderThan() = %d, want 1", removed)
	}
	if _, ok := s.Get("old"); ok {
		t.Error("expired key still readable")
	}
}

func TestKeyDistinguishesParts(t *testing.T) {
	// Part boundaries matter: ("ab", "c") and ("a", "bc") must differ.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("keys with shifted part boundaries must differ")
	}
	if Key("vid", "Standard") == Key("vid", "Exhaustive") {
		t.Error("detail level must change the key")
	}
	if Key("vid", "Standard") != Key("vid", "Standard") {
		t.Error("identical parts must produce identical keys")
	}
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(t, 1<<20, 0)

	_ = s.Put("k", []byte("v"))
	_, _ = s.Get("k")
	_, _ = s.Get("missing")

	stats := s.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", stats.ItemCount)
	}
}
