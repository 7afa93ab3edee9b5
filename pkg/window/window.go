// Package window provides a fixed-depth sliding window over recent samples,
// used to smooth noisy per-tick measurements (encoder deltas, battery
// voltage readings).
package window

// Accumulator remembers the last N samples pushed into it.  PushBack returns
// the sample that fell out of the window (the zero value while the window is
// still filling), so callers can maintain a running sum over the window
// without ever rescanning it.
type Accumulator[T any] struct {
	samples []T
	head    int
	count   int
}

func NewAccumulator[T any](capacity int) *Accumulator[T] {
	if capacity < 1 {
		panic("window: capacity must be at least 1")
	}
	return &Accumulator[T]{
		samples: make([]T, capacity),
	}
}

func (a *Accumulator[T]) PushBack(sample T) (evicted T) {
	if a.count == len(a.samples) {
		evicted = a.samples[a.head]
	} else {
		a.count++
	}
	a.samples[a.head] = sample
	a.head = (a.head + 1) % len(a.samples)
	return evicted
}

// Len returns the number of samples currently held, at most the capacity.
func (a *Accumulator[T]) Len() int {
	return a.count
}

func (a *Accumulator[T]) Reset() {
	var zero T
	for i := range a.samples {
		a.samples[i] = zero
	}
	a.head = 0
	a.count = 0
}
