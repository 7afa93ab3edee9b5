// Package params holds the process-wide tunables for the rover controller.
// They are loaded once at startup, before any controller Init, and are
// read-only from then on.
package params

import (
	"fmt"
	"io/ioutil"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

type Parameters struct {
	// Motor.
	MotorEncoderResolution float64 `yaml:"motor_encoder_resolution"`
	MotorTorqueConstant    float64 `yaml:"motor_torque_constant"`
	MotorPIDP              float64 `yaml:"motor_pid_p"`
	MotorPIDI              float64 `yaml:"motor_pid_i"`
	MotorPIDD              float64 `yaml:"motor_pid_d"`
	MotorPowerLimit        float64 `yaml:"motor_power_limit"`

	// Differential drive.
	WheelRadius               float64 `yaml:"wheel_radius"`
	WheelSeparation           float64 `yaml:"wheel_separation"`
	AngularVelocityMultiplier float64 `yaml:"angular_velocity_multiplier"`
	InputTimeoutMs            uint32  `yaml:"input_timeout_ms"`

	// Battery.
	BatteryMinVoltage float64 `yaml:"battery_min_voltage"`
}

// Defaults returns the stock tunables for the standard chassis.
func Defaults() Parameters {
	return Parameters{
		MotorEncoderResolution: 878.4,
		MotorTorqueConstant:    1.17647,
		MotorPIDP:              0.0,
		MotorPIDI:              0.005,
		MotorPIDD:              0.0,
		MotorPowerLimit:        1000.0,

		WheelRadius:               0.0625,
		WheelSeparation:           0.33,
		AngularVelocityMultiplier: 1.91,
		InputTimeoutMs:            500,

		BatteryMinVoltage: 10.0,
	}
}

// Load reads overrides from a YAML file on top of the defaults and writes
// back an "-in-use" copy of what we ended up with.  A missing file is not an
// error; the defaults are used as-is.
func Load(path string) (Parameters, error) {
	p := Defaults()

	raw, err := ioutil.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("params: failed to parse %s: %v", path, err)
		}
	} else {
		fmt.Printf("PARAMS: no config at %s, using defaults\n", path)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	fmt.Printf("PARAMS: using %+v\n", p)
	if out, err := yaml.Marshal(&p); err == nil {
		inUse := strings.TrimSuffix(path, ".yaml") + "-in-use.yaml"
		if err := ioutil.WriteFile(inUse, out, 0666); err != nil {
			fmt.Println("PARAMS: failed to write in-use copy:", err)
		}
	}
	return p, nil
}

// Validate rejects tunables that can never drive a real robot.  These are
// configuration mistakes, caught at startup rather than recovered at
// runtime.
func (p Parameters) Validate() error {
	if p.MotorEncoderResolution <= 0 {
		return fmt.Errorf("params: motor_encoder_resolution must be positive, got %g", p.MotorEncoderResolution)
	}
	if p.WheelRadius <= 0 {
		return fmt.Errorf("params: wheel_radius must be positive, got %g", p.WheelRadius)
	}
	if p.WheelSeparation <= 0 {
		return fmt.Errorf("params: wheel_separation must be positive, got %g", p.WheelSeparation)
	}
	if p.MotorPowerLimit <= 0 {
		return fmt.Errorf("params: motor_power_limit must be positive, got %g", p.MotorPowerLimit)
	}
	return nil
}
