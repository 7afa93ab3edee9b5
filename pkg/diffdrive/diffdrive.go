// Package diffdrive turns body-frame velocity commands into per-wheel
// setpoints and integrates the measured wheel velocities into a dead
// reckoned pose.
package diffdrive

import (
	"math"
	"sync"
	"time"

	"github.com/roverbot-team/roverbot/go-controller/pkg/motor"
	"github.com/roverbot-team/roverbot/go-controller/pkg/params"
	"github.com/roverbot-team/roverbot/go-controller/pkg/wheel"
)

// Wheel slot indices, also the order used in WheelStates telemetry.
const (
	WheelFL = iota
	WheelRL
	WheelFR
	WheelRR
	NumWheels
)

type Odom struct {
	VelocityLinear  float64 // m/s
	VelocityAngular float64 // rad/s
	PoseX           float64 // m
	PoseY           float64 // m
	PoseYaw         float64 // rad, [0, 2pi)
}

type WheelStates struct {
	Position     [NumWheels]float64 // rad
	Velocity     [NumWheels]float64 // rad/s
	Torque       [NumWheels]float64 // Nm
	PWMDutyCycle [NumWheels]float64 // percent
	Enabled      [NumWheels]bool
}

// Controller owns the four wheel controllers.  A single mutex serializes the
// control tick against the asynchronous command path (redis callbacks), so
// no field is ever torn between cores.
type Controller struct {
	mu     sync.Mutex
	wheels [NumWheels]*wheel.Controller
	prm    *params.Parameters

	odom        Odom
	lastCommand time.Time
}

type Config struct {
	// Channels in WheelFL..WheelRR order.
	Channels [NumWheels]motor.Channel
	Params   *params.Parameters
}

func New(cfg Config) *Controller {
	c := &Controller{prm: cfg.Params}
	for i := range c.wheels {
		c.wheels[i] = wheel.New(wheel.Config{
			Channel: cfg.Channels[i],
			Params:  cfg.Params,
			// Left-side motors are mounted mirror-image.
			ReversePolarity: i == WheelFL || i == WheelRL,
		})
	}
	return c
}

// Init brings up all four wheels and enables regulation.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range c.wheels {
		if err := w.Init(); err != nil {
			return err
		}
	}
	for _, w := range c.wheels {
		w.Enable()
	}
	return nil
}

// SetSpeed accepts a body-frame velocity command: linear m/s forward,
// angular rad/s counter-clockwise.  May be called from any goroutine; it
// only writes target state, consumed on the next Update.
func (c *Controller) SetSpeed(linear, angular float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The multiplier corrects for skid between the fixed wheel pairs when
	// turning; it applies to the rotational component only.
	angularCorrected := angular * c.prm.AngularVelocityMultiplier
	linVelL := linear - angularCorrected*c.prm.WheelSeparation/2
	linVelR := linear + angularCorrected*c.prm.WheelSeparation/2
	angVelL := linVelL / c.prm.WheelRadius
	angVelR := linVelR / c.prm.WheelRadius

	c.wheels[WheelFL].SetTargetVelocity(angVelL)
	c.wheels[WheelRL].SetTargetVelocity(angVelL)
	c.wheels[WheelFR].SetTargetVelocity(angVelR)
	c.wheels[WheelRR].SetTargetVelocity(angVelR)

	c.lastCommand = time.Now()
}

// Update runs one control tick: fail-safe staleness check, per-wheel
// velocity loops, then odometry integration from the measured (not
// commanded) wheel velocities.
func (c *Controller) Update(dtMs uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := time.Duration(c.prm.InputTimeoutMs) * time.Millisecond
	if time.Since(c.lastCommand) > timeout {
		for _, w := range c.wheels {
			w.SetTargetVelocity(0)
		}
	}

	var firstErr error
	for _, w := range c.wheels {
		if err := w.Update(dtMs); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	angVelL := (c.wheels[WheelFL].Velocity() + c.wheels[WheelRL].Velocity()) / 2
	angVelR := (c.wheels[WheelFR].Velocity() + c.wheels[WheelRR].Velocity()) / 2

	c.odom.VelocityLinear = (angVelL + angVelR) / 2 * c.prm.WheelRadius
	c.odom.VelocityAngular = (angVelR - angVelL) * c.prm.WheelRadius /
		(c.prm.WheelSeparation * c.prm.AngularVelocityMultiplier)

	dt := float64(dtMs) * 0.001
	c.odom.PoseYaw += c.odom.VelocityAngular * dt
	if c.odom.PoseYaw >= 2*math.Pi {
		c.odom.PoseYaw -= 2 * math.Pi
	} else if c.odom.PoseYaw < 0 {
		c.odom.PoseYaw += 2 * math.Pi
	}
	c.odom.PoseX += c.odom.VelocityLinear * math.Cos(c.odom.PoseYaw) * dt
	c.odom.PoseY += c.odom.VelocityLinear * math.Sin(c.odom.PoseYaw) * dt

	return firstErr
}

// Odom returns the current pose and body velocity.
func (c *Controller) Odom() Odom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.odom
}

// WheelStates fills the per-wheel telemetry snapshot.
func (c *Controller) WheelStates(out *WheelStates) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for i, w := range c.wheels {
		out.Position[i] = w.Distance()
		out.Velocity[i] = w.Velocity()
		out.PWMDutyCycle[i] = w.PWMDutyCycle()
		out.Enabled[i] = w.Enabled()

		torque, err := w.Torque()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out.Torque[i] = torque
	}
	return firstErr
}

// TargetVelocities returns the per-wheel angular velocity setpoints in
// rad/s, in WheelFL..WheelRR order.
func (c *Controller) TargetVelocities() [NumWheels]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var targets [NumWheels]float64
	for i, w := range c.wheels {
		targets[i] = w.TargetVelocity()
	}
	return targets
}

// ResetOdom zeroes the pose and every wheel's accumulated distance.
func (c *Controller) ResetOdom() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.odom = Odom{}
	var firstErr error
	for _, w := range c.wheels {
		if err := w.ResetDistance(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Controller) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.wheels {
		w.Enable()
	}
}

func (c *Controller) EnableWheel(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wheels[i].Enable()
}

func (c *Controller) DisableWheel(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wheels[i].Disable()
}

func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, w := range c.wheels {
		if err := w.Disable(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
