package multisig

import (
	"github.com/custodia-net/custodia/errors"
)

// Error codes 1030-1049 are reserved for the multisig extension.
var (
	// ErrInvalidOwner is returned when an actor claims owner privilege
	// but is not in the current owner set.
	ErrInvalidOwner = errors.Register(1030, "not an owner of this multisig")

	// ErrNotEnoughOwners is returned on an attempt to configure an
	// empty owner set.
	ErrNotEnoughOwners = errors.Register(1031, "owner set cannot be empty")

	// ErrTooManyOwners is returned when a rotation would grow the
	// owner set. Proposals size their signer bitmaps against the owner
	// count at proposal time, so the set must never grow.
	ErrTooManyOwners = errors.Register(1032, "owner set cannot grow")

	// ErrNotEnoughSigners is returned when execution is attempted
	// below quorum.
	ErrNotEnoughSigners = errors.Register(1033, "not enough owners approved")

	// ErrInvalidThreshold is returned when a threshold is zero or
	// exceeds the owner count.
	ErrInvalidThreshold = errors.Register(1034, "threshold out of range")

	// ErrInvalidExecutor is returned when cancel or execute is
	// attempted by a principal outside the current owner set.
	ErrInvalidExecutor = errors.Register(1035, "executor is not an owner")

	// ErrMissingInstructions is returned when a proposal carries no
	// instructions.
	ErrMissingInstructions = errors.Register(1036, "proposal carries no instructions")

	// ErrStaleOwnerSet is returned when a proposal references an owner
	// set generation that is no longer current.
	ErrStaleOwnerSet = errors.Register(1037, "owner set changed since proposal")

	// ErrInvalidNonce is returned when a nonce derives no valid
	// signing identity for the multisig.
	ErrInvalidNonce = errors.Register(1038, "nonce derives no valid signing identity")

	// ErrDuplicateOwner is returned when the same key appears twice in
	// an owner set.
	ErrDuplicateOwner = errors.Register(1039, "owners must be unique")

	// ErrInvalidInstruction is returned when a stored instruction
	// cannot be decoded or dispatched.
	ErrInvalidInstruction = errors.Register(1040, "instruction cannot be dispatched")
)
