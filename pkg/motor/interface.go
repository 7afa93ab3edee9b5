// Package motor talks to the quad brushed-DC driver board.  Each physical
// motor is exposed as a Channel: encoder counter access, signed power
// output, polarity inversion and winding-current sense.  The control loops
// in pkg/wheel only ever see the Channel contract, so they run unchanged
// against the real board or the simulator.
package motor

// PWMRange is the power command magnitude corresponding to 100% PWM duty
// cycle.  SetPower accepts values in [-PWMRange, PWMRange].
const PWMRange = 1000

// NumMotors is the number of channels on the driver board.
const NumMotors = 4

type Polarity int

const (
	PolarityNormal Polarity = iota
	PolarityReversed
)

// Driver is a whole driver board: four channels plus the board-level
// sensing shared between them.
type Driver interface {
	Channel(n int) Channel
	BattVolts() (float64, error)
	CheckFaults() [NumMotors]bool
	Close() error
}

type Channel interface {
	// Init powers up the channel with zero output and applies the
	// configured polarities.  Must be called before any other method.
	Init() error

	ResetEncoderCnt() error
	EncoderCnt() (int32, error)

	// SetPower sets the drive output.  Values outside [-PWMRange,
	// PWMRange] are clamped.
	SetPower(power int16) error

	// WindingCurrent returns the motor winding current in amps.
	WindingCurrent() (float64, error)

	// Polarity setters take effect at Init.
	SetMotorPolarity(p Polarity)
	SetEncoderPolarity(p Polarity)
}
