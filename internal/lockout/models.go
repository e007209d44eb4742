// Package lockout tracks failed operator authentication and applies a hard
// lock after repeated failures.
package lockout

import "time"

// Policy controls the failure window and the hard lock.
type Policy struct {
	// MaxFailures is the failure count that triggers a hard lock.
	MaxFailures int
	// Window is how long failures accumulate before the counter resets.
	Window time.Duration
	// LockDuration is how long an identifier stays hard-locked.
	LockDuration time.Duration
}

// DefaultPolicy locks after 5 failures in 15 minutes, for 15 minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailures:  5,
		Window:       15 * time.Minute,
		LockDuration: 15 * time.Minute,
	}
}
