// Package pid implements the velocity regulator used by the wheel
// controllers.
package pid

// Regulator is a PID controller with symmetric output saturation.  The error
// fed to Update is measured minus target, so the summed correction is
// negated before clamping: positive gains always drive the measurement
// toward the target.
//
// Not safe for concurrent use; the control tick is the only caller of
// Update, and SetCoeffs/SetRange must only be called while the tick is not
// running.
type Regulator struct {
	kp, ki, kd float64
	limit      float64

	iSum      float64
	lastError float64
}

func (r *Regulator) SetCoeffs(kp, ki, kd float64) {
	r.kp = kp
	r.ki = ki
	r.kd = kd
}

// SetRange fixes the output clamp to [-limit, limit].
func (r *Regulator) SetRange(limit float64) {
	r.limit = limit
}

// Reset clears the integral accumulator and previous-error memory.  Must be
// called on every disabled->enabled transition and whenever the loop sits at
// a true standstill, so stale state cannot produce a derivative spike or
// integral creep.
func (r *Regulator) Reset() {
	r.iSum = 0
	r.lastError = 0
}

// Update advances the regulator by one tick of dtMs milliseconds and returns
// the new output.  The integral term accumulates unclamped; saturation is
// applied to the output sum only.
func (r *Regulator) Update(err float64, dtMs uint32) float64 {
	dt := float64(dtMs) * 0.001

	r.iSum += r.ki * err * dt
	dTerm := r.kd * (err - r.lastError) / dt
	r.lastError = err

	output := -(r.kp*err + r.iSum + dTerm)

	if output > r.limit {
		output = r.limit
	} else if output < -r.limit {
		output = -r.limit
	}
	return output
}
