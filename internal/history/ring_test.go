package history

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func sampleN(i int) dynamo.Sample {
	f := float64(i)
	return dynamo.Sample{X: f, Y: 2 * f, Z: 3 * f}
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		_, err := New(c, Overwrite)
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) err = %v, want ErrInvalidCapacity", c, err)
		}
	}
}

func TestRing_Empty(t *testing.T) {
	r, err := New(8, Overwrite)
	require.NoError(t, err)

	_, ok := r.Current()
	assert.False(t, ok)
	_, ok = r.At(3)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot(nil))
	assert.Equal(t, 8, r.QueueSize())
}

func TestRing_RetainsLastCapacitySamples(t *testing.T) {
	tests := []struct {
		capacity, appends int
	}{
		{1, 5},
		{7, 20},
		{100, 101},
		{64, 1000},
	}

	for _, tt := range tests {
		r, err := New(tt.capacity, Overwrite)
		require.NoError(t, err)
		for i := 0; i < tt.appends; i++ {
			require.True(t, r.Append(sampleN(i)))
		}

		cur, ok := r.Current()
		require.True(t, ok)
		assert.Equal(t, sampleN(tt.appends-1), cur)

		at0, _ := r.At(0)
		assert.Equal(t, cur, at0)

		assert.Equal(t, tt.capacity, r.Len())
		assert.Equal(t, uint64(tt.appends), r.Written())

		snap := r.Snapshot(nil)
		require.Len(t, snap, tt.capacity)
		for i, s := range snap {
			assert.Equal(t, sampleN(tt.appends-tt.capacity+i), s, "snapshot[%d]", i)
		}
		for k := 0; k < tt.capacity; k++ {
			got, _ := r.At(k)
			assert.Equal(t, sampleN(tt.appends-1-k), got, "At(%d)", k)
		}
	}
}

func TestRing_AtClamping(t *testing.T) {
	r, err := New(10, Overwrite)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		r.Append(sampleN(i))
	}

	clamped := func(i int) int { return clamp(i, 0, r.Len()-1) }
	for _, idx := range []int{-100, -1, 0, 1, 3, 4, 9, 10, 1 << 20} {
		got, ok := r.At(idx)
		require.True(t, ok)
		want, _ := r.At(clamped(idx))
		assert.Equal(t, want, got, "At(%d)", idx)
	}

	// uninitialized slots are never returned as fresh
	oldest, _ := r.At(9)
	assert.Equal(t, sampleN(0), oldest)
}

func TestRing_StopWhenFull(t *testing.T) {
	r, err := New(100, StopWhenFull)
	require.NoError(t, err)

	accepted := 0
	for i := 0; i < 150; i++ {
		if r.Append(sampleN(i)) {
			accepted++
		}
	}

	assert.Equal(t, 100, accepted)
	assert.Equal(t, 100, r.Len())
	assert.Equal(t, uint64(100), r.Written())
	assert.Equal(t, uint64(50), r.Rejected())
	assert.True(t, r.Full())

	cur, _ := r.Current()
	assert.Equal(t, sampleN(99), cur)
}

func TestRing_OverwriteFIFO(t *testing.T) {
	r, err := New(100, Overwrite)
	require.NoError(t, err)
	for i := 0; i < 150; i++ {
		require.True(t, r.Append(sampleN(i)))
	}

	snap := r.Snapshot(nil)
	require.Len(t, snap, 100)
	assert.Equal(t, sampleN(50), snap[0])
	assert.Equal(t, sampleN(149), snap[99])
	assert.Equal(t, uint64(0), r.Rejected())
}

func TestRing_Since(t *testing.T) {
	r, err := New(10, Overwrite)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		r.Append(sampleN(i))
	}

	got, mark := r.Since(2, nil)
	assert.Equal(t, []dynamo.Sample{sampleN(2), sampleN(3), sampleN(4)}, got)
	assert.Equal(t, uint64(5), mark)

	got, mark = r.Since(mark, nil)
	assert.Empty(t, got)
	assert.Equal(t, uint64(5), mark)

	for i := 5; i < 30; i++ {
		r.Append(sampleN(i))
	}
	got, mark = r.Since(mark, nil)
	require.Len(t, got, 10, "lapped positions are skipped")
	assert.Equal(t, sampleN(20), got[0])
	assert.Equal(t, uint64(30), mark)
}

func TestRing_Each(t *testing.T) {
	r, err := New(4, Overwrite)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		r.Append(sampleN(i))
	}

	var positions []uint64
	next := r.Each(0, func(pos uint64, s dynamo.Sample) {
		positions = append(positions, pos)
		assert.Equal(t, sampleN(int(pos)), s)
	})
	assert.Equal(t, []uint64{6, 7, 8, 9}, positions)
	assert.Equal(t, uint64(10), next)

	called := false
	assert.Equal(t, uint64(10), r.Each(next, func(uint64, dynamo.Sample) { called = true }))
	assert.False(t, called)
}

func TestFullPolicy_String(t *testing.T) {
	assert.Equal(t, "overwrite", Overwrite.String())
	assert.Equal(t, "stop", StopWhenFull.String())
	assert.Equal(t, "FullPolicy(9)", FullPolicy(9).String())
}

// Every sample satisfies Y == 2X and Z == 3X, so a torn read would break the
// relation.
func TestRing_ConcurrentReadersNeverTear(t *testing.T) {
	r, err := New(257, Overwrite)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, wctx := errgroup.WithContext(ctx)
	writer.Go(func() error {
		for i := 0; ; i++ {
			select {
			case <-wctx.Done():
				return nil
			default:
			}
			r.Append(sampleN(i))
		}
	})

	check := func(s dynamo.Sample) error {
		if s.Y != 2*s.X || s.Z != 3*s.X {
			return errors.New("torn sample observed")
		}
		return nil
	}

	readers, _ := errgroup.WithContext(ctx)
	for g := 0; g < 4; g++ {
		readers.Go(func() error {
			var last uint64
			var buf []dynamo.Sample
			for i := 0; i < 10000; i++ {
				w := r.Written()
				if w < last {
					return errors.New("write count went backwards")
				}
				last = w

				if s, ok := r.Current(); ok {
					if err := check(s); err != nil {
						return err
					}
				}
				if s, ok := r.At(i % 400); ok {
					if err := check(s); err != nil {
						return err
					}
				}
				if i%100 == 0 {
					buf = r.Snapshot(buf[:0])
					for k := 1; k < len(buf); k++ {
						if buf[k].X <= buf[k-1].X {
							return errors.New("snapshot out of order")
						}
						if err := check(buf[k]); err != nil {
							return err
						}
					}
				}
			}
			return nil
		})
	}

	require.NoError(t, readers.Wait())
	cancel()
	require.NoError(t, writer.Wait())
}

func BenchmarkRing_Append(b *testing.B) {
	r, _ := New(1<<16, Overwrite)
	s := sampleN(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Append(s)
	}
}
