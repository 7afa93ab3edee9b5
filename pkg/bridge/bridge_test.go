package bridge

import (
	"math"
	"testing"
)

type fakeDrive struct {
	linear, angular float64
	resets          int
	enables         int
	disables        int
	wheelEnables    [4]int
	wheelDisables   [4]int
}

func (f *fakeDrive) SetSpeed(linear, angular float64) {
	f.linear, f.angular = linear, angular
}

func (f *fakeDrive) ResetOdom() error { f.resets++; return nil }

func (f *fakeDrive) Enable() { f.enables++ }

func (f *fakeDrive) Disable() error { f.disables++; return nil }

func (f *fakeDrive) EnableWheel(i int) { f.wheelEnables[i]++ }

func (f *fakeDrive) DisableWheel(i int) error { f.wheelDisables[i]++; return nil }

func TestParseCmdVel(t *testing.T) {
	for _, c := range []struct {
		payload         string
		linear, angular float64
	}{
		{"0.5 0.0", 0.5, 0},
		{"-0.25 1.2", -0.25, 1.2},
		{"0 -3", 0, -3},
	} {
		linear, angular, err := parseCmdVel(c.payload)
		if err != nil {
			t.Errorf("%q: %v", c.payload, err)
			continue
		}
		if math.Abs(linear-c.linear) > 1e-9 || math.Abs(angular-c.angular) > 1e-9 {
			t.Errorf("%q parsed to (%g, %g), want (%g, %g)",
				c.payload, linear, angular, c.linear, c.angular)
		}
	}

	for _, bad := range []string{"", "0.5", "0.5 0.1 0.2", "x y", "0.5 y"} {
		if _, _, err := parseCmdVel(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestServeRequest(t *testing.T) {
	drive := &fakeDrive{}
	b := &Bridge{
		drive:         drive,
		info:          BoardInfo{Type: "roverbot", FirmwareVersion: "1.0.0"},
		resetRequests: make(chan struct{}, 1),
	}

	if got := b.serveRequest("reset_odometry"); got != "ok" {
		t.Errorf("reset_odometry: %q", got)
	}
	if drive.resets != 1 {
		t.Errorf("reset count %d, want 1", drive.resets)
	}

	if got := b.serveRequest("enable"); got != "ok" || drive.enables != 1 {
		t.Errorf("enable: %q, count %d", got, drive.enables)
	}
	if got := b.serveRequest("disable"); got != "ok" || drive.disables != 1 {
		t.Errorf("disable: %q, count %d", got, drive.disables)
	}

	if got := b.serveRequest("enable rl"); got != "ok" || drive.wheelEnables[1] != 1 {
		t.Errorf("enable rl: %q, count %d", got, drive.wheelEnables[1])
	}
	if got := b.serveRequest("disable fr"); got != "ok" || drive.wheelDisables[2] != 1 {
		t.Errorf("disable fr: %q, count %d", got, drive.wheelDisables[2])
	}
	if got := b.serveRequest("disable hub"); got == "ok" {
		t.Errorf("unknown wheel accepted: %q", got)
	}

	if got := b.serveRequest("get_firmware_version"); got != "1.0.0" {
		t.Errorf("get_firmware_version: %q", got)
	}
	if got := b.serveRequest("get_board_type"); got != "roverbot" {
		t.Errorf("get_board_type: %q", got)
	}

	b.serveRequest("reset_board")
	select {
	case <-b.resetRequests:
	default:
		t.Error("reset_board did not queue a reset request")
	}

	// A second pending reset must not block the request handler.
	b.serveRequest("reset_board")
	b.serveRequest("reset_board")

	if got := b.serveRequest("bogus"); got == "ok" {
		t.Errorf("unknown request accepted: %q", got)
	}
}
