package store

import (
	"sync"
	"testing"
)

func TestAppendAndSnapshot(t *testing.T) {
	s := New[int]()
	if s.Snapshot().Len() != 0 {
		t.Fatal("new store should be empty")
	}

	snap := s.Append(1, 2)
	if snap.Len() != 2 || snap.At(0) != 1 || snap.At(1) != 2 {
		t.Fatalf("snapshot = %v", snap.Items())
	}
	if snap.Version() != 1 {
		t.Errorf("version = %d, want 1", snap.Version())
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestEmptyAppendKeepsVersion(t *testing.T) {
	s := New[string]()
	s.Append("a")
	snap := s.Append()
	if snap.Version() != 1 || snap.Len() != 1 {
		t.Errorf("empty append changed the store: version %d len %d", snap.Version(), snap.Len())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New[int]()
	s.Append(1, 2, 3)
	old := s.Snapshot()

	// Grow enough to exercise both in-place and reallocating appends.
	for i := 0; i < 100; i++ {
		s.Append(10 + i)
	}

	if old.Len() != 3 {
		t.Fatalf("old snapshot length changed to %d", old.Len())
	}
	for i, want := range []int{1, 2, 3} {
		if old.At(i) != want {
			t.Errorf("old.At(%d) = %d, want %d", i, old.At(i), want)
		}
	}
	if cap(old.Items()) != 3 {
		t.Errorf("snapshot capacity should be capped at its length, got %d", cap(old.Items()))
	}

	// Appending to a snapshot's slice must not leak into the store.
	_ = append(old.Items(), 99)
	if s.Snapshot().At(3) != 10 {
		t.Error("append through a snapshot slice modified the store")
	}
}

func TestZeroSnapshot(t *testing.T) {
	var snap Snapshot[int]
	if snap.Len() != 0 || snap.Items() != nil || snap.Version() != 0 {
		t.Error("zero snapshot should be empty")
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(w*1000 + i)
				snap := s.Snapshot()
				for j := 0; j < snap.Len(); j++ {
					_ = snap.At(j)
				}
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Len() != 200 {
		t.Errorf("Len = %d, want 200", snap.Len())
	}
	if snap.Version() != 200 {
		t.Errorf("Version = %d, want 200", snap.Version())
	}
}
