package multisig

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

const (
	pathCreateMultisigMsg              = "multisig/create"
	pathCreateProposalMsg              = "multisig/propose"
	pathApproveMsg                     = "multisig/approve"
	pathCancelMsg                      = "multisig/cancel"
	pathExecuteMsg                     = "multisig/execute"
	pathSetOwnersMsg                   = "multisig/set_owners"
	pathChangeThresholdMsg             = "multisig/change_threshold"
	pathSetOwnersAndChangeThresholdMsg = "multisig/set_owners_and_change_threshold"

	creationCost  int64 = 300
	proposalCost  int64 = 300
	approvalCost  int64 = 100
	terminateCost int64 = 150
	updateCost    int64 = 150
)

// CreateMultisigMsg creates a new multisig record.
type CreateMultisigMsg struct {
	Owners    []custodia.Address
	Threshold uint64
	Nonce     uint8
}

var _ custodia.Msg = (*CreateMultisigMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (CreateMultisigMsg) Path() string {
	return pathCreateMultisigMsg
}

// Validate enforces owners and threshold boundaries
func (m *CreateMultisigMsg) Validate() error {
	if len(m.Owners) > maxOwnersAllowed {
		return errors.Wrap(errors.ErrMsg, "too many owners")
	}
	if err := validateOwners(m.Owners); err != nil {
		return err
	}
	return ValidateThreshold(m.Threshold, len(m.Owners))
}

func (m *CreateMultisigMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *CreateMultisigMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// CreateProposalMsg stages a new instruction batch on a multisig. The
// proposer approves implicitly. Refundee is optional and defaults to
// the proposer.
type CreateProposalMsg struct {
	MultisigID   []byte
	Instructions []Instruction
	Refundee     custodia.Address
}

var _ custodia.Msg = (*CreateProposalMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (CreateProposalMsg) Path() string {
	return pathCreateProposalMsg
}

// Validate ensures the staged batch makes sense
func (m *CreateProposalMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.Instructions) == 0 {
		return errors.Wrap(ErrMissingInstructions, "empty batch")
	}
	for i, ix := range m.Instructions {
		if err := ix.Validate(); err != nil {
			return errors.Wrapf(err, "instruction #%d", i)
		}
	}
	if m.Refundee != nil {
		if err := m.Refundee.Validate(); err != nil {
			return errors.Wrap(err, "refundee")
		}
	}
	return nil
}

func (m *CreateProposalMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *CreateProposalMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// ApproveMsg records the approval of one owner on a live proposal.
type ApproveMsg struct {
	MultisigID []byte
	ProposalID []byte
}

var _ custodia.Msg = (*ApproveMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (ApproveMsg) Path() string {
	return pathApproveMsg
}

// Validate ensures references are set
func (m *ApproveMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal reference")
	}
	return nil
}

func (m *ApproveMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *ApproveMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// CancelMsg closes a live proposal without executing it. Any current
// owner can cancel, also when the proposal was staged against an older
// owner set. Refundee is optional and overrides the nomination captured
// at proposal time.
type CancelMsg struct {
	MultisigID []byte
	ProposalID []byte
	Refundee   custodia.Address
}

var _ custodia.Msg = (*CancelMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (CancelMsg) Path() string {
	return pathCancelMsg
}

// Validate ensures references are set
func (m *CancelMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal reference")
	}
	if m.Refundee != nil {
		if err := m.Refundee.Validate(); err != nil {
			return errors.Wrap(err, "refundee")
		}
	}
	return nil
}

func (m *CancelMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *CancelMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// ExecuteMsg dispatches a staged batch that reached quorum. Refundee is
// optional and overrides the nomination captured at proposal time.
type ExecuteMsg struct {
	MultisigID []byte
	ProposalID []byte
	Refundee   custodia.Address
}

var _ custodia.Msg = (*ExecuteMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (ExecuteMsg) Path() string {
	return pathExecuteMsg
}

// Validate ensures references are set
func (m *ExecuteMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal reference")
	}
	if m.Refundee != nil {
		if err := m.Refundee.Validate(); err != nil {
			return errors.Wrap(err, "refundee")
		}
	}
	return nil
}

func (m *ExecuteMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *ExecuteMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// SetOwnersMsg replaces the owner set of a multisig. Only the signing
// identity of the same multisig can authorize this, so the only way to
// deliver it is a recursive dispatch from an executed proposal.
type SetOwnersMsg struct {
	MultisigID []byte
	Owners     []custodia.Address
}

var _ custodia.Msg = (*SetOwnersMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (SetOwnersMsg) Path() string {
	return pathSetOwnersMsg
}

// Validate enforces owner set boundaries
func (m *SetOwnersMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.Owners) > maxOwnersAllowed {
		return errors.Wrap(errors.ErrMsg, "too many owners")
	}
	return validateOwners(m.Owners)
}

func (m *SetOwnersMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *SetOwnersMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// ChangeThresholdMsg changes the approval threshold of a multisig.
// Callable only under the signing identity, like SetOwnersMsg.
type ChangeThresholdMsg struct {
	MultisigID []byte
	Threshold  uint64
}

var _ custodia.Msg = (*ChangeThresholdMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (ChangeThresholdMsg) Path() string {
	return pathChangeThresholdMsg
}

// Validate rejects the values that can never pass. The upper bound
// check needs the current owner count and is done by the handler.
func (m *ChangeThresholdMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if m.Threshold == 0 {
		return errors.Wrap(ErrInvalidThreshold, "threshold cannot be zero")
	}
	return nil
}

func (m *ChangeThresholdMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *ChangeThresholdMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// SetOwnersAndChangeThresholdMsg atomically replaces the owner set and
// the threshold. Callable only under the signing identity.
type SetOwnersAndChangeThresholdMsg struct {
	MultisigID []byte
	Owners     []custodia.Address
	Threshold  uint64
}

var _ custodia.Msg = (*SetOwnersAndChangeThresholdMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (SetOwnersAndChangeThresholdMsg) Path() string {
	return pathSetOwnersAndChangeThresholdMsg
}

// Validate enforces owner set boundaries and that the new threshold
// fits the new owner set
func (m *SetOwnersAndChangeThresholdMsg) Validate() error {
	if len(m.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(m.Owners) > maxOwnersAllowed {
		return errors.Wrap(errors.ErrMsg, "too many owners")
	}
	if err := validateOwners(m.Owners); err != nil {
		return err
	}
	return ValidateThreshold(m.Threshold, len(m.Owners))
}

func (m *SetOwnersAndChangeThresholdMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

func (m *SetOwnersAndChangeThresholdMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}
