// Package blinds is the control core of a two-relay curtain motor.
//
// The motor has no position sensor. Position is the time the motor has
// run toward the "max" end minus the time it has run back, clamped to
// [0, MaxPos]. Drift is only corrected by driving past an end, which the
// clamp absorbs.
//
// A Controller is owned by a single control loop and is not safe for
// concurrent use. Each loop iteration must call, in order:
//
//	HandleSwitches  (physical inputs)
//	Supervise       (movement timeout)
//	HandleCommand   (remote commands, zero or more)
//
// so that a switch press seen in a tick always pre-empts a remote command
// evaluated in the same tick.
package blinds
