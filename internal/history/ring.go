package history

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/san-kum/attractors/internal/dynamo"
)

// ErrInvalidCapacity is returned for non-positive ring capacities.
var ErrInvalidCapacity = errors.New("history: capacity must be positive")

// FullPolicy decides what Append does once the ring holds Capacity samples.
type FullPolicy int

const (
	// Overwrite replaces the oldest sample (FIFO).
	Overwrite FullPolicy = iota
	// StopWhenFull turns every further Append into a rejected no-op.
	StopWhenFull
)

func (p FullPolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case StopWhenFull:
		return "stop"
	default:
		return fmt.Sprintf("FullPolicy(%d)", int(p))
	}
}

// slot is a seqlock-guarded sample. seq is odd while a write is in progress.
type slot struct {
	seq atomic.Uint64
	x   atomic.Uint64
	y   atomic.Uint64
	z   atomic.Uint64
}

func (s *slot) store(v dynamo.Sample) {
	s.seq.Add(1)
	s.x.Store(math.Float64bits(v.X))
	s.y.Store(math.Float64bits(v.Y))
	s.z.Store(math.Float64bits(v.Z))
	s.seq.Add(1)
}

func (s *slot) load() (dynamo.Sample, uint64, bool) {
	before := s.seq.Load()
	if before&1 == 1 {
		return dynamo.Sample{}, before, false
	}
	v := dynamo.Sample{
		X: math.Float64frombits(s.x.Load()),
		Y: math.Float64frombits(s.y.Load()),
		Z: math.Float64frombits(s.z.Load()),
	}
	return v, before, s.seq.Load() == before
}

// Ring is a fixed-capacity circular history of samples.
//
// Append must only be called from one goroutine at a time. Every other
// method is safe for concurrent use with Append.
type Ring struct {
	slots    []slot
	capacity uint64
	policy   FullPolicy
	written  atomic.Uint64
	rejected atomic.Uint64
}

func New(capacity int, policy FullPolicy) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Ring{
		slots:    make([]slot, capacity),
		capacity: uint64(capacity),
		policy:   policy,
	}, nil
}

// Append writes s into the slot after the cursor. It reports false when the
// ring is full under StopWhenFull.
func (r *Ring) Append(s dynamo.Sample) bool {
	n := r.written.Load()
	if r.policy == StopWhenFull && n >= r.capacity {
		r.rejected.Add(1)
		return false
	}
	r.slots[n%r.capacity].store(s)
	r.written.Store(n + 1)
	return true
}

// Current returns the most recent sample.
func (r *Ring) Current() (dynamo.Sample, bool) {
	return r.At(0)
}

// At returns the sample index positions behind the most recent one. The
// index is clamped into [0, Len()-1]; ok is false only when the ring is empty.
func (r *Ring) At(index int) (dynamo.Sample, bool) {
	for spins := 0; ; spins++ {
		n := r.written.Load()
		if n == 0 {
			return dynamo.Sample{}, false
		}
		size := min(n, r.capacity)
		idx := uint64(clamp(index, 0, int(size-1)))
		if v, ok := r.read(n - 1 - idx); ok {
			return v, true
		}
		// lapped by the writer: retry against the new cursor
		if spins > 16 {
			runtime.Gosched()
		}
	}
}

// read loads the sample at logical position pos. It reports false when the
// slot no longer holds pos, either lapped or mid-overwrite.
func (r *Ring) read(pos uint64) (dynamo.Sample, bool) {
	want := 2 * (pos/r.capacity + 1)
	v, seq, ok := r.slots[pos%r.capacity].load()
	return v, ok && seq == want
}

// Snapshot appends the retained samples to dst, oldest first. Samples lapped
// by the writer while copying are skipped, so every returned sample was
// written by Append and the order is preserved.
func (r *Ring) Snapshot(dst []dynamo.Sample) []dynamo.Sample {
	n := r.written.Load()
	var from uint64
	if n > r.capacity {
		from = n - r.capacity
	}
	dst, _ = r.Since(from, dst)
	return dst
}

// Since appends the samples written at logical positions >= mark, oldest
// first, and returns the write count it read up to. Positions already lapped
// by the writer are skipped.
func (r *Ring) Since(mark uint64, dst []dynamo.Sample) ([]dynamo.Sample, uint64) {
	n := r.written.Load()
	if mark >= n {
		return dst, n
	}
	if n-mark > r.capacity {
		mark = n - r.capacity
	}
	for pos := mark; pos < n; pos++ {
		if v, ok := r.read(pos); ok {
			dst = append(dst, v)
		}
	}
	return dst, n
}

// Each calls fn for every sample at logical position >= mark, oldest first,
// and returns the write count it read up to. Like Since, positions lapped
// by the writer are skipped.
func (r *Ring) Each(mark uint64, fn func(pos uint64, s dynamo.Sample)) uint64 {
	n := r.written.Load()
	if mark >= n {
		return n
	}
	if n-mark > r.capacity {
		mark = n - r.capacity
	}
	for pos := mark; pos < n; pos++ {
		if v, ok := r.read(pos); ok {
			fn(pos, v)
		}
	}
	return n
}

// Len is the number of valid samples, at most Capacity.
func (r *Ring) Len() int {
	return int(min(r.written.Load(), r.capacity))
}

func (r *Ring) Capacity() int { return int(r.capacity) }

// QueueSize is the ring capacity, used for camera interpolation math.
func (r *Ring) QueueSize() int { return int(r.capacity) }

// Written is the logical number of completed appends. It never decreases.
func (r *Ring) Written() uint64 { return r.written.Load() }

// Rejected counts appends refused by StopWhenFull.
func (r *Ring) Rejected() uint64 { return r.rejected.Load() }

func (r *Ring) Full() bool { return r.written.Load() >= r.capacity }

func (r *Ring) Policy() FullPolicy { return r.policy }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
