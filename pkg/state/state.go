// Package state holds the committed controller value of a port.
package state

import (
	"sync/atomic"
	"time"
)

// Default is the value before the first commit: all bits set, no button pressed.
const Default uint16 = 0xFFFF

// Store is the committed state of one port.
// It has a single writer (the consensus filter of the port) and any number of readers.
type Store struct {
	value   atomic.Uint32
	writes  atomic.Uint64
	updated atomic.Int64
}

// New returns a store holding Default.
func New() *Store {
	s := &Store{}
	s.value.Store(uint32(Default))
	return s
}

// Load returns the committed value. It never blocks.
func (s *Store) Load() uint16 {
	return uint16(s.value.Load())
}

// Store commits v.
func (s *Store) Store(v uint16) {
	s.value.Store(uint32(v))
	s.updated.Store(time.Now().UnixNano())
	s.writes.Add(1)
}

// Writes returns the count of commits.
func (s *Store) Writes() uint64 {
	return s.writes.Load()
}

// Updated returns the time of the last commit, zero before the first one.
func (s *Store) Updated() time.Time {
	n := s.updated.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
