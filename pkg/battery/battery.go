// Package battery smooths the pack-voltage readings coming off the driver
// board and flags when the pack runs low.
package battery

import (
	"github.com/roverbot-team/roverbot/go-controller/pkg/window"
)

// BufferSize is the number of readings averaged, one reading per control
// tick.
const BufferSize = 100

type VoltageSource interface {
	BattVolts() (float64, error)
}

type Monitor struct {
	source     VoltageSource
	buf        *window.Accumulator[float64]
	sum        float64
	vNow       float64
	minVoltage float64
}

func NewMonitor(source VoltageSource, minVoltage float64) *Monitor {
	return &Monitor{
		source:     source,
		buf:        window.NewAccumulator[float64](BufferSize),
		minVoltage: minVoltage,
	}
}

// Update takes one voltage sample.  Called once per control tick.
func (m *Monitor) Update() error {
	v, err := m.source.BattVolts()
	if err != nil {
		return err
	}
	m.vNow = v
	m.sum += v
	m.sum -= m.buf.PushBack(v)
	return nil
}

// Voltage returns the latest raw reading.
func (m *Monitor) Voltage() float64 {
	return m.vNow
}

// Averaged returns the window-averaged voltage.
func (m *Monitor) Averaged() float64 {
	if m.buf.Len() == 0 {
		return 0
	}
	return m.sum / float64(m.buf.Len())
}

// Low reports whether the averaged voltage has dropped below the configured
// minimum.
func (m *Monitor) Low() bool {
	return m.buf.Len() > 0 && m.Averaged() < m.minVoltage
}
