// Package store holds the append-only set of committed records and hands
// out read-only snapshots of it.
//
// A Snapshot is a length-capped view of the store's backing slice. Appends
// only ever write past the end of every outstanding view, so readers never
// observe a partial commit and never need to lock.
package store

import "sync"

// Store is an append-only list of records. It is safe for concurrent use.
type Store[T any] struct {
	mu      sync.Mutex
	items   []T
	version uint64
}

// New returns an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// Append adds items in order and returns the snapshot that includes them.
func (s *Store[T]) Append(items ...T) Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) > 0 {
		s.items = append(s.items, items...)
		s.version++
	}
	return s.snapshotLocked()
}

// Snapshot returns a read-only view of the records committed so far.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store[T]) snapshotLocked() Snapshot[T] {
	n := len(s.items)
	return Snapshot[T]{items: s.items[:n:n], version: s.version}
}

// Len returns the number of committed records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Snapshot is an immutable view of a store at one version. The zero value
// is an empty snapshot.
type Snapshot[T any] struct {
	items   []T
	version uint64
}

// Len returns the number of records in the snapshot.
func (s Snapshot[T]) Len() int {
	return len(s.items)
}

// At returns the i-th record in commit order.
func (s Snapshot[T]) At(i int) T {
	return s.items[i]
}

// Items returns the records in commit order. Callers must not modify the
// returned slice.
func (s Snapshot[T]) Items() []T {
	return s.items
}

// Version increases by one with every non-empty append, so two snapshots
// with the same version hold the same records.
func (s Snapshot[T]) Version() uint64 {
	return s.version
}
