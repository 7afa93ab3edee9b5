package motor

import (
	"math"
	"sync"
)

// Sim is a stand-in for the real driver board: each channel drives a
// first-order motor model instead of hardware.  It backs the closed-loop
// tests and lets the controller run on a dev machine without the board
// attached.
type Sim struct {
	mu       sync.Mutex
	channels [NumMotors]simChannelState
}

type simChannelState struct {
	power           int16
	velocity        float64 // ticks/s at the motor shaft
	encoder         float64 // fractional ticks
	motorReversed   bool
	encoderReversed bool
}

const (
	// Full power spins the simulated motor at 2000 ticks/s.
	simGain = 2000.0 / PWMRange
	// Velocity settles with a 200ms time constant.
	simTimeConstant = 0.2
	// Stall current at full power.
	simStallAmps = 2.4
)

func NewSim() *Sim {
	return &Sim{}
}

func (s *Sim) Channel(n int) Channel {
	if n < 0 || n >= NumMotors {
		panic("motor: no such sim channel")
	}
	return &simChannel{sim: s, n: n}
}

// Advance steps every motor model by dtMs.  The owner calls this once per
// control tick, before the wheel controllers read their encoders.
func (s *Sim) Advance(dtMs uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := float64(dtMs) * 0.001
	for i := range s.channels {
		ch := &s.channels[i]
		target := float64(ch.power) * simGain
		if ch.motorReversed {
			target = -target
		}
		ch.velocity += (target - ch.velocity) * math.Min(1, dt/simTimeConstant)

		delta := ch.velocity * dt
		if ch.encoderReversed {
			delta = -delta
		}
		ch.encoder += delta
	}
}

func (s *Sim) BattVolts() (float64, error) {
	return 11.7, nil
}

func (s *Sim) CheckFaults() (faulted [NumMotors]bool) {
	return faulted
}

func (s *Sim) Close() error {
	return nil
}

var _ Driver = (*Sim)(nil)

type simChannel struct {
	sim *Sim
	n   int
}

func (c *simChannel) state() *simChannelState {
	return &c.sim.channels[c.n]
}

func (c *simChannel) Init() error {
	return c.SetPower(0)
}

func (c *simChannel) ResetEncoderCnt() error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.state().encoder = 0
	return nil
}

func (c *simChannel) EncoderCnt() (int32, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return int32(int64(c.state().encoder)), nil
}

func (c *simChannel) SetPower(power int16) error {
	if power > PWMRange {
		power = PWMRange
	} else if power < -PWMRange {
		power = -PWMRange
	}
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.state().power = power
	return nil
}

func (c *simChannel) WindingCurrent() (float64, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return math.Abs(float64(c.state().power)) / PWMRange * simStallAmps, nil
}

func (c *simChannel) SetMotorPolarity(p Polarity) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.state().motorReversed = p == PolarityReversed
}

func (c *simChannel) SetEncoderPolarity(p Polarity) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.state().encoderReversed = p == PolarityReversed
}

var _ Channel = (*simChannel)(nil)
