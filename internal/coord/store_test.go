package coord

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put(1, 10.0, 20.0)
	s.Put(-5, -33.9, 151.2)

	lat, lon, ok := s.Get(1)
	if !ok || lat != 10.0 || lon != 20.0 {
		t.Errorf("Get(1) = (%v, %v, %v), want (10, 20, true)", lat, lon, ok)
	}
	lat, lon, ok = s.Get(-5)
	if !ok || lat != -33.9 || lon != 151.2 {
		t.Errorf("Get(-5) = (%v, %v, %v)", lat, lon, ok)
	}
	if _, _, ok := s.Get(999); ok {
		t.Error("Get(999) should miss")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMemoryStoreNeverEvicts(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	const n = 10_000
	for i := int64(0); i < n; i++ {
		s.Put(i, float64(i)/1000, -float64(i)/1000)
	}
	for i := int64(0); i < n; i++ {
		if _, _, ok := s.Get(i); !ok {
			t.Fatalf("id %d evicted from memory store", i)
		}
	}
}

func TestMemoryStoreConcurrentInsert(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 1000
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < perWorker; i++ {
				id := base*perWorker + i
				s.Put(id, float64(id), float64(-id))
			}
		}(int64(w))
	}
	wg.Wait()

	if s.Len() != workers*perWorker {
		t.Errorf("Len() = %d, want %d", s.Len(), workers*perWorker)
	}
	lat, _, ok := s.Get(4321)
	if !ok || lat != 4321 {
		t.Errorf("Get(4321) = (%v, _, %v)", lat, ok)
	}
}

func TestLRUStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewLRUStore(1)
	defer s.Close()

	s.Put(1, 10.0, 20.0)
	s.Put(2, 30.0, 40.0)

	if _, _, ok := s.Get(1); ok {
		t.Error("id 1 should have been evicted by id 2")
	}
	lat, lon, ok := s.Get(2)
	if !ok || lat != 30.0 || lon != 40.0 {
		t.Errorf("Get(2) = (%v, %v, %v)", lat, lon, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestLRUStoreRecencyOrder(t *testing.T) {
	s := NewLRUStore(2)
	defer s.Close()

	s.Put(1, 1, 1)
	s.Put(2, 2, 2)
	// Touch 1 so that 2 becomes the eviction candidate.
	if _, _, ok := s.Get(1); !ok {
		t.Fatal("id 1 missing before capacity reached")
	}
	s.Put(3, 3, 3)

	if _, _, ok := s.Get(2); ok {
		t.Error("id 2 should have been evicted")
	}
	if _, _, ok := s.Get(1); !ok {
		t.Error("id 1 should have survived")
	}
	if _, _, ok := s.Get(3); !ok {
		t.Error("id 3 should be present")
	}
}

func TestLRUStoreUpdateExisting(t *testing.T) {
	s := NewLRUStore(4)
	defer s.Close()

	s.Put(1, 1, 1)
	s.Put(1, 9, 9)
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	lat, lon, ok := s.Get(1)
	if !ok || lat != 9 || lon != 9 {
		t.Errorf("Get(1) = (%v, %v, %v)", lat, lon, ok)
	}
}

func TestLevelStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "coords")
	s, err := NewLevelStore(dir, false)
	if err != nil {
		t.Fatalf("NewLevelStore: %v", err)
	}
	defer s.Close()

	s.Put(1, 60.1699, 24.9384)
	s.Put(-7, -1.5, 179.99)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lat, lon, ok := s.Get(1)
	if !ok || lat != 60.1699 || lon != 24.9384 {
		t.Errorf("Get(1) = (%v, %v, %v)", lat, lon, ok)
	}
	lat, lon, ok = s.Get(-7)
	if !ok || lat != -1.5 || lon != 179.99 {
		t.Errorf("Get(-7) = (%v, %v, %v)", lat, lon, ok)
	}
	if _, _, ok := s.Get(12345); ok {
		t.Error("Get(12345) should miss")
	}
}

func TestLevelStoreFlushMakesBatchVisible(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "coords")
	s, err := NewLevelStore(dir, false)
	if err != nil {
		t.Fatalf("NewLevelStore: %v", err)
	}
	defer s.Close()

	// Fewer puts than the batch threshold stay buffered until Flush.
	s.Put(42, 5.0, 6.0)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, _, ok := s.Get(42); !ok {
		t.Error("Get(42) should hit after Flush")
	}
}
