package project

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalesces(t *testing.T) {
	t.Parallel()

	d := NewDebouncer(20 * time.Millisecond)

	var a, b atomic.Int32

	for i := 0; i < 10; i++ {
		d.Schedule("a", func() { a.Add(1) })
	}

	d.Schedule("b", func() { b.Add(1) })

	require.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return a.Load() > 1 }, 60*time.Millisecond, 10*time.Millisecond)
	require.False(t, d.Pending("a"))
}

func TestDebouncerFlushAndStop(t *testing.T) {
	t.Parallel()

	d := NewDebouncer(time.Hour)

	var calls atomic.Int32

	d.Schedule("a", func() { calls.Add(1) })
	d.Schedule("b", func() { calls.Add(10) })

	d.Flush("a")
	require.Equal(t, int32(1), calls.Load())
	require.False(t, d.Pending("a"))
	require.True(t, d.Pending("b"))

	d.Flush("a")
	require.Equal(t, int32(1), calls.Load())

	d.FlushAll()
	require.Equal(t, int32(11), calls.Load())

	d.Schedule("c", func() { calls.Add(100) })
	d.Stop()
	require.False(t, d.Pending("c"))

	d.Schedule("d", func() { calls.Add(1000) })
	require.False(t, d.Pending("d"))
	require.Equal(t, int32(11), calls.Load())
}
