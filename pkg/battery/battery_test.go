package battery

import (
	"errors"
	"math"
	"testing"
)

type fakeSource struct {
	volts float64
	err   error
}

func (f *fakeSource) BattVolts() (float64, error) { return f.volts, f.err }

func TestAverageTracksWindow(t *testing.T) {
	src := &fakeSource{volts: 12.0}
	m := NewMonitor(src, 10.0)

	for i := 0; i < BufferSize; i++ {
		if err := m.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.Averaged(); math.Abs(got-12.0) > 1e-9 {
		t.Errorf("average %g, want 12.0", got)
	}

	// A full window of lower readings must pull the average all the way
	// down, with the old samples fully evicted.
	src.volts = 11.0
	for i := 0; i < BufferSize; i++ {
		if err := m.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.Averaged(); math.Abs(got-11.0) > 1e-9 {
		t.Errorf("average %g, want 11.0", got)
	}
	if m.Voltage() != 11.0 {
		t.Errorf("raw voltage %g, want 11.0", m.Voltage())
	}
}

func TestPartialWindowAverage(t *testing.T) {
	src := &fakeSource{volts: 12.0}
	m := NewMonitor(src, 10.0)

	// The average must divide by the number of samples actually taken,
	// not the window capacity.
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}
	if got := m.Averaged(); math.Abs(got-12.0) > 1e-9 {
		t.Errorf("average after one sample: %g, want 12.0", got)
	}
}

func TestLowFlag(t *testing.T) {
	src := &fakeSource{volts: 12.0}
	m := NewMonitor(src, 10.0)

	if m.Low() {
		t.Error("low before any sample")
	}
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}
	if m.Low() {
		t.Error("low at 12V with 10V threshold")
	}

	src.volts = 9.0
	for i := 0; i < BufferSize; i++ {
		if err := m.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if !m.Low() {
		t.Error("not low at 9V with 10V threshold")
	}
}

func TestUpdatePropagatesErrors(t *testing.T) {
	src := &fakeSource{volts: 12.0}
	m := NewMonitor(src, 10.0)
	if err := m.Update(); err != nil {
		t.Fatal(err)
	}

	src.err = errors.New("i2c read failed")
	if err := m.Update(); err == nil {
		t.Error("expected error from failed read")
	}
	// The last good reading survives a failed sample.
	if m.Voltage() != 12.0 {
		t.Errorf("voltage %g after failed read, want 12.0", m.Voltage())
	}
}
