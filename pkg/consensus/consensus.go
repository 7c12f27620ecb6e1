// Package consensus is the debounce filter between the sampling engine and
// the committed state of a port.
//
// The line is noisy at these timing margins. A value is committed only if
// Window consecutive frames are bit for bit equal; otherwise the committed
// value stays as it is. Disagreement is expected and is not an error.
package consensus

import (
	"sync/atomic"

	"github.com/womat/debug"

	"snesio/pkg/sampler"
	"snesio/pkg/state"
)

// Window is the count of frames of a group.
const Window = 3

// Filter collects groups of Window frames and commits unanimous groups.
// TryCommit must be called from one goroutine only.
type Filter struct {
	store  *state.Store
	frames [Window]sampler.Frame
	n      int

	commits    atomic.Uint64
	rejections atomic.Uint64
}

// Stats are the counters of a filter.
type Stats struct {
	Commits    uint64
	Rejections uint64
}

// New returns a filter committing to store.
func New(store *state.Store) *Filter {
	return &Filter{store: store}
}

// TryCommit adds frame to the current group. When the group is complete it is
// evaluated and cleared; it returns true if the group was committed.
func (f *Filter) TryCommit(frame sampler.Frame) bool {
	f.frames[f.n] = frame
	f.n++
	if f.n < Window {
		return false
	}
	f.n = 0

	for _, x := range f.frames[1:] {
		if x != f.frames[0] {
			f.rejections.Add(1)
			debug.TraceLog.Printf("frames disagree: %v", f.frames)
			return false
		}
	}

	f.store.Store(uint16(f.frames[0]))
	f.commits.Add(1)
	return true
}

// Stats returns the counters of the filter.
func (f *Filter) Stats() Stats {
	return Stats{
		Commits:    f.commits.Load(),
		Rejections: f.rejections.Load(),
	}
}
