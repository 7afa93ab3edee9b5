package window

import "testing"

func TestRunningSumMatchesWindowContents(t *testing.T) {
	const capacity = 10
	acc := NewAccumulator[int](capacity)
	var recent []int
	sum := 0

	for i := 1; i <= capacity+25; i++ {
		sum += i
		sum -= acc.PushBack(i)

		recent = append(recent, i)
		if len(recent) > capacity {
			recent = recent[1:]
		}
		expected := 0
		for _, v := range recent {
			expected += v
		}
		if sum != expected {
			t.Fatalf("after push %d: running sum %d, window sum %d", i, sum, expected)
		}
	}
}

func TestEvictsZeroWhileFilling(t *testing.T) {
	acc := NewAccumulator[int](3)
	for i := 0; i < 3; i++ {
		if old := acc.PushBack(i + 100); old != 0 {
			t.Errorf("push %d evicted %d before window was full", i, old)
		}
	}
	if old := acc.PushBack(200); old != 100 {
		t.Errorf("expected oldest sample 100 back, got %d", old)
	}
	if acc.Len() != 3 {
		t.Errorf("expected window to hold 3 samples, got %d", acc.Len())
	}
}

func TestCapacityOne(t *testing.T) {
	acc := NewAccumulator[int](1)
	if old := acc.PushBack(7); old != 0 {
		t.Errorf("first push evicted %d", old)
	}
	if old := acc.PushBack(8); old != 7 {
		t.Errorf("expected 7 back, got %d", old)
	}
}

func TestReset(t *testing.T) {
	acc := NewAccumulator[int](4)
	for i := 0; i < 6; i++ {
		acc.PushBack(i)
	}
	acc.Reset()
	if acc.Len() != 0 {
		t.Errorf("expected empty window after reset, got %d samples", acc.Len())
	}
	if old := acc.PushBack(1); old != 0 {
		t.Errorf("push after reset evicted %d", old)
	}
}

func TestZeroCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero capacity")
		}
	}()
	NewAccumulator[int](0)
}
