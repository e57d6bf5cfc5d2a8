package project

import "errors"

var (
	errInvalidLockInterval = errors.New("dev lock interval must be positive")
	errInvalidLaunchTS     = errors.New("static pool launch timestamp must be set")
)

// Invariant errors for stage transitions and identity assignment. No
// function in this repository returns them at present: internal/store
// reports a lost stage compare-and-swap as its own ErrStaleStage.
var (
	// ErrBackwardTransition describes an attempt to move a
	// project to a stage that does not come after its current stage in
	// the lifecycle graph (invariant I4).
	ErrBackwardTransition = errors.New("stage transitions may not move backward or skip the lifecycle graph")

	// ErrCurvePoolKeypairImmutable describes an attempt to
	// reassign a project's curve pool keypair once set (invariant I2).
	ErrCurvePoolKeypairImmutable = errors.New("curve pool keypair is immutable once assigned")

	// ErrStaticPoolPubkeyImmutable describes an attempt to
	// reassign a project's static pool pubkey once set (invariant I1).
	ErrStaticPoolPubkeyImmutable = errors.New("static pool pubkey is immutable once assigned")

	// ErrDevLockKeypairImmutable describes an attempt to
	// reassign a project's dev lock keypair once set (invariant I3).
	ErrDevLockKeypairImmutable = errors.New("dev lock keypair is immutable once assigned")
)
