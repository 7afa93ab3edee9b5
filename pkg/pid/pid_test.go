package pid

import (
	"math"
	"testing"
)

const dtMs = 10

func TestOutputSaturation(t *testing.T) {
	var reg Regulator
	reg.SetCoeffs(1.0, 0.5, 0.01)
	reg.SetRange(1000)

	for _, err := range []float64{0, 1, -1, 500, -500, 1e6, -1e6, 1e12} {
		out := reg.Update(err, dtMs)
		if out > 1000 || out < -1000 {
			t.Errorf("error %g produced out-of-range output %g", err, out)
		}
	}

	// Wind the integral up well past the clamp, then check the output is
	// still pinned to the limit.
	reg.Reset()
	for i := 0; i < 10000; i++ {
		reg.Update(-100, dtMs)
	}
	if out := reg.Update(-100, dtMs); out != 1000 {
		t.Errorf("expected output pinned at 1000, got %g", out)
	}
}

func TestOutputOpposesError(t *testing.T) {
	var reg Regulator
	reg.SetCoeffs(1.0, 0, 0)
	reg.SetRange(100)

	// Measured below target (negative error) must push power up.
	if out := reg.Update(-5, dtMs); out <= 0 {
		t.Errorf("negative error gave non-positive output %g", out)
	}
	reg.Reset()
	if out := reg.Update(5, dtMs); out >= 0 {
		t.Errorf("positive error gave non-negative output %g", out)
	}
}

func TestIntegralAccumulates(t *testing.T) {
	var reg Regulator
	reg.SetCoeffs(0, 0.005, 0)
	reg.SetRange(1000)

	// Constant error of -100 ticks/s for one simulated second.
	var out float64
	for i := 0; i < 100; i++ {
		out = reg.Update(-100, dtMs)
	}
	expected := 0.005 * 100 * 1.0 // ki * |error| * seconds
	if math.Abs(out-expected) > 1e-9 {
		t.Errorf("integral after 1s: got %g, want %g", out, expected)
	}
}

func TestResetClearsState(t *testing.T) {
	var reg Regulator
	reg.SetCoeffs(0.5, 0.1, 0.05)
	reg.SetRange(1000)

	for i := 0; i < 50; i++ {
		reg.Update(-30, dtMs)
	}
	reg.Reset()

	// With zero error after a reset there must be nothing left to act on.
	if out := reg.Update(0, dtMs); out != 0 {
		t.Errorf("expected zero output after reset, got %g", out)
	}
}

func TestConvergesOnFirstOrderPlant(t *testing.T) {
	var reg Regulator
	reg.SetCoeffs(0, 0.05, 0)
	reg.SetRange(1000)

	target := 500.0 // ticks/s
	measured := 0.0
	for i := 0; i < 20000; i++ {
		power := reg.Update(measured-target, dtMs)
		// Crude motor model: velocity proportional to power with some lag.
		measured += (power*0.8 - measured) * 0.1
	}
	if math.Abs(measured-target) > 1.0 {
		t.Errorf("loop failed to converge: measured %g, target %g", measured, target)
	}
}
