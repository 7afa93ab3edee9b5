// Package wheel closes a velocity loop around one motor channel using
// quadrature-encoder feedback.
package wheel

import (
	"math"

	"github.com/roverbot-team/roverbot/go-controller/pkg/motor"
	"github.com/roverbot-team/roverbot/go-controller/pkg/params"
	"github.com/roverbot-team/roverbot/go-controller/pkg/pid"
	"github.com/roverbot-team/roverbot/go-controller/pkg/window"
)

// EncoderBufferSize is the number of encoder readings remembered when
// estimating the wheel velocity.
const EncoderBufferSize = 10

type encoderSample struct {
	ticks int32
	dtMs  uint32
}

// Controller owns one motor channel, one PID regulator and one sliding
// window of encoder samples.  It is not safe for concurrent use: the owning
// drive controller serializes every call.
type Controller struct {
	channel motor.Channel
	vReg    pid.Regulator
	buf     *window.Accumulator[encoderSample]
	prm     *params.Parameters

	ticksNow int32
	ticksSum int64
	dtSumMs  uint64

	vNow    float64 // measured, ticks/s
	vTarget float64 // ticks/s
	power   int16
	enabled bool
}

type Config struct {
	Channel motor.Channel
	Params  *params.Parameters

	// ReversePolarity flips both the drive direction and the encoder
	// count direction, for motors mounted mirror-image on the chassis.
	ReversePolarity bool
}

func New(cfg Config) *Controller {
	c := &Controller{
		channel: cfg.Channel,
		buf:     window.NewAccumulator[encoderSample](EncoderBufferSize),
		prm:     cfg.Params,
	}
	if cfg.ReversePolarity {
		c.channel.SetMotorPolarity(motor.PolarityReversed)
		c.channel.SetEncoderPolarity(motor.PolarityReversed)
	}
	return c
}

// Init loads the regulator tunables and zeroes the hardware encoder.  Must
// run exactly once before the first Update.
func (c *Controller) Init() error {
	c.vReg.SetCoeffs(c.prm.MotorPIDP, c.prm.MotorPIDI, c.prm.MotorPIDD)
	c.vReg.SetRange(math.Min(motor.PWMRange, c.prm.MotorPowerLimit))
	if err := c.channel.Init(); err != nil {
		return err
	}
	return c.channel.ResetEncoderCnt()
}

// Update advances the velocity loop by one tick of dtMs milliseconds.  A
// counter that wraps between ticks still yields the right delta: the
// subtraction is done in the counter's own 32-bit signed width.
func (c *Controller) Update(dtMs uint32) error {
	ticksPrev := c.ticksNow
	ticksNow, err := c.channel.EncoderCnt()
	if err != nil {
		// Leave the window untouched; the velocity estimate goes stale
		// for one tick rather than absorbing a bogus delta.
		return err
	}
	c.ticksNow = ticksNow

	newTicks := ticksNow - ticksPrev

	old := c.buf.PushBack(encoderSample{ticks: newTicks, dtMs: dtMs})

	c.ticksSum += int64(newTicks)
	c.dtSumMs += uint64(dtMs)
	c.ticksSum -= int64(old.ticks)
	c.dtSumMs -= uint64(old.dtMs)

	c.vNow = float64(c.ticksSum) / (float64(c.dtSumMs) * 0.001)

	if !c.enabled {
		return nil
	}

	if c.vNow == 0.0 && c.vTarget == 0.0 {
		// True standstill: keep the regulator empty so no integral
		// creep builds up while we sit still.
		c.vReg.Reset()
		c.power = 0
	} else {
		vErr := c.vNow - c.vTarget
		c.power = int16(c.vReg.Update(vErr, dtMs))
	}
	return c.channel.SetPower(c.power)
}

// SetTargetVelocity sets the wheel angular velocity target in rad/s.  Pure
// state write, consumed on the next Update.
func (c *Controller) SetTargetVelocity(speed float64) {
	c.vTarget = (speed / (2.0 * math.Pi)) * c.prm.MotorEncoderResolution
}

// TargetVelocity returns the current target in rad/s.
func (c *Controller) TargetVelocity() float64 {
	return (c.vTarget / c.prm.MotorEncoderResolution) * (2.0 * math.Pi)
}

// Velocity returns the measured wheel angular velocity in rad/s.
func (c *Controller) Velocity() float64 {
	return (c.vNow / c.prm.MotorEncoderResolution) * (2.0 * math.Pi)
}

// Distance returns the wheel rotation since the last encoder reset, in
// radians.
func (c *Controller) Distance() float64 {
	return (float64(c.ticksNow) / c.prm.MotorEncoderResolution) * (2.0 * math.Pi)
}

// Torque estimates the shaft torque in Nm from the winding current.
func (c *Controller) Torque() (float64, error) {
	current, err := c.channel.WindingCurrent()
	if err != nil {
		return 0, err
	}
	return current * c.prm.MotorTorqueConstant, nil
}

// PWMDutyCycle returns the current drive output as a percentage.
func (c *Controller) PWMDutyCycle() float64 {
	return (float64(c.power) / float64(motor.PWMRange)) * 100.0
}

func (c *Controller) ResetDistance() error {
	if err := c.channel.ResetEncoderCnt(); err != nil {
		return err
	}
	c.ticksNow = 0
	return nil
}

// Enable turns regulation on.  Only a disabled->enabled transition resets
// the regulator; redundant calls keep the integral state.
func (c *Controller) Enable() {
	if !c.enabled {
		c.vReg.Reset()
		c.enabled = true
	}
}

// Disable unconditionally stops regulating and cuts power.
func (c *Controller) Disable() error {
	c.enabled = false
	c.power = 0
	return c.channel.SetPower(0)
}

func (c *Controller) Enabled() bool {
	return c.enabled
}
