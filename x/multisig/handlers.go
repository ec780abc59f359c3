package multisig

import (
	"bytes"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/x"
	"github.com/custodia-net/custodia/x/cash"
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
//
// The dispatch handler receives the instructions of executed proposals.
// It is usually the application router itself, so that proposals can
// call back into this package and rotate their own configuration. The
// enc codec must know every message type that proposals may stage;
// always use the same codec for staging and executing.
func RegisterRoutes(r custodia.Registry, auth x.Authenticator, control cash.Controller, dispatch custodia.Deliverer, enc InstructionCodec) {
	msigs := NewMultisigBucket()
	props := NewProposalBucket()

	r.Handle(pathCreateMultisigMsg, CreateMultisigHandler{auth: auth, msigs: msigs})
	r.Handle(pathCreateProposalMsg, CreateProposalHandler{auth: auth, msigs: msigs, props: props, control: control})
	r.Handle(pathApproveMsg, ApproveHandler{auth: auth, msigs: msigs, props: props})
	r.Handle(pathCancelMsg, CancelHandler{auth: auth, msigs: msigs, props: props, control: control})
	r.Handle(pathExecuteMsg, ExecuteHandler{auth: auth, msigs: msigs, props: props, control: control, dispatch: dispatch, enc: enc})
	r.Handle(pathSetOwnersMsg, SetOwnersHandler{auth: auth, msigs: msigs})
	r.Handle(pathChangeThresholdMsg, ChangeThresholdHandler{auth: auth, msigs: msigs})
	r.Handle(pathSetOwnersAndChangeThresholdMsg, SetOwnersAndChangeThresholdHandler{auth: auth, msigs: msigs})
}

// CreateMultisigHandler creates new multisig records.
type CreateMultisigHandler struct {
	auth  x.Authenticator
	msigs MultisigBucket
}

var _ custodia.Handler = CreateMultisigHandler{}

func (h CreateMultisigHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: creationCost}, nil
}

func (h CreateMultisigHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	m := &Multisig{
		Owners:        msg.Owners,
		Threshold:     msg.Threshold,
		Nonce:         msg.Nonce,
		OwnerSetSeqno: 0,
	}
	id, err := h.msigs.Create(db, m)
	if err != nil {
		return nil, err
	}
	// The signing identity must be derivable or the record is unusable.
	// An error here aborts the whole transaction, so nothing persists.
	if _, err := SealCondition(id, msg.Nonce); err != nil {
		return nil, err
	}
	return &custodia.DeliverResult{Data: id}, nil
}

func (h CreateMultisigHandler) validate(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*CreateMultisigMsg, error) {
	var msg CreateMultisigMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if x.MainSigner(ctx, h.auth) == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, nil
}

// CreateProposalHandler stages instruction batches.
type CreateProposalHandler struct {
	auth    x.Authenticator
	msigs   MultisigBucket
	props   ProposalBucket
	control cash.Controller
}

var _ custodia.Handler = CreateProposalHandler{}

func (h CreateProposalHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: proposalCost}, nil
}

func (h CreateProposalHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, m, proposer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// The proposer approves implicitly.
	idx, ok := OwnerIndex(m.Owners, proposer)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidOwner, "proposer %s", proposer)
	}
	signers := newSigners(len(m.Owners))
	signers.Set(idx)

	refundee := msg.Refundee
	if refundee == nil {
		refundee = proposer
	}

	t := &Transaction{
		MultisigID:    msg.MultisigID,
		Instructions:  msg.Instructions,
		DidExecute:    false,
		OwnerSetSeqno: m.OwnerSetSeqno,
		Refundee:      refundee,
	}
	if err := t.SetSignerSet(signers); err != nil {
		return nil, err
	}

	id, err := h.props.Create(db, t)
	if err != nil {
		return nil, err
	}

	// The proposer backs the storage with a rent deposit, held in the
	// proposal escrow until the proposal is closed.
	conf, err := loadConfiguration(db)
	if err != nil {
		return nil, err
	}
	raw, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	if rent := rentFor(conf, len(raw)); rent > 0 {
		escrow := ProposalCondition(id).Address()
		if err := h.control.MoveCoins(db, proposer, escrow, rent); err != nil {
			return nil, errors.Wrap(err, "rent deposit")
		}
	}

	return &custodia.DeliverResult{Data: id}, nil
}

func (h CreateProposalHandler) validate(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*CreateProposalMsg, *Multisig, custodia.Address, error) {
	var msg CreateProposalMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}
	m, err := h.msigs.GetMultisig(db, msg.MultisigID)
	if err != nil {
		return nil, nil, nil, err
	}
	proposer := x.MainSigner(ctx, h.auth)
	if proposer == nil {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	addr := proposer.Address()
	if _, ok := OwnerIndex(m.Owners, addr); !ok {
		return nil, nil, nil, errors.Wrapf(ErrInvalidOwner, "proposer %s", addr)
	}
	return &msg, m, addr, nil
}

// ApproveHandler records owner approvals.
type ApproveHandler struct {
	auth  x.Authenticator
	msigs MultisigBucket
	props ProposalBucket
}

var _ custodia.Handler = ApproveHandler{}

func (h ApproveHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: approvalCost}, nil
}

func (h ApproveHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, t, idx, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	signers, err := t.SignerSet()
	if err != nil {
		return nil, err
	}
	// Approving twice is a no-op success.
	if !signers.Test(idx) {
		signers.Set(idx)
		if err := t.SetSignerSet(signers); err != nil {
			return nil, err
		}
		if err := h.props.SaveProposal(db, msg.ProposalID, t); err != nil {
			return nil, err
		}
	}
	return &custodia.DeliverResult{Data: msg.ProposalID}, nil
}

func (h ApproveHandler) validate(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*ApproveMsg, *Transaction, uint, error) {
	var msg ApproveMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, errors.Wrap(err, "load msg")
	}
	m, err := h.msigs.GetMultisig(db, msg.MultisigID)
	if err != nil {
		return nil, nil, 0, err
	}
	t, err := h.props.GetProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, 0, err
	}
	if !bytes.Equal(t.MultisigID, msg.MultisigID) {
		return nil, nil, 0, errors.Wrap(errors.ErrInput, "proposal belongs to another multisig")
	}
	if t.OwnerSetSeqno != m.OwnerSetSeqno {
		return nil, nil, 0, errors.Wrapf(ErrStaleOwnerSet,
			"proposal generation %d, multisig generation %d", t.OwnerSetSeqno, m.OwnerSetSeqno)
	}
	owner := x.MainSigner(ctx, h.auth)
	if owner == nil {
		return nil, nil, 0, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	idx, ok := OwnerIndex(m.Owners, owner.Address())
	if !ok {
		return nil, nil, 0, errors.Wrapf(ErrInvalidOwner, "approver %s", owner.Address())
	}
	return &msg, t, idx, nil
}

// CancelHandler closes live proposals without executing them.
type CancelHandler struct {
	auth    x.Authenticator
	msigs   MultisigBucket
	props   ProposalBucket
	control cash.Controller
}

var _ custodia.Handler = CancelHandler{}

func (h CancelHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: terminateCost}, nil
}

func (h CancelHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, t, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	refundee := msg.Refundee
	if refundee == nil {
		refundee = t.Refundee
	}
	if err := closeProposal(db, h.props, h.control, msg.ProposalID, refundee); err != nil {
		return nil, err
	}
	res := custodia.DeliverResult{
		Data: msg.ProposalID,
		Tags: closeTags("cancel", msg.ProposalID),
	}
	return &res, nil
}

// validate authorizes the cancellation against the current owner set,
// not the snapshot the proposal was staged against. After an owner
// rotation new owners can clean up stale proposals.
func (h CancelHandler) validate(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*CancelMsg, *Transaction, error) {
	var msg CancelMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	m, err := h.msigs.GetMultisig(db, msg.MultisigID)
	if err != nil {
		return nil, nil, err
	}
	t, err := h.props.GetProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(t.MultisigID, msg.MultisigID) {
		return nil, nil, errors.Wrap(errors.ErrInput, "proposal belongs to another multisig")
	}
	executor := x.MainSigner(ctx, h.auth)
	if executor == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	if _, ok := OwnerIndex(m.Owners, executor.Address()); !ok {
		return nil, nil, errors.Wrapf(ErrInvalidExecutor, "canceller %s", executor.Address())
	}
	return &msg, t, nil
}

//--- configuration handlers
//
// These are not direct entry points: they accept only calls authorized
// by the signing identity of the very multisig they modify, so the only
// way in is a recursive dispatch from an executed proposal.

// SetOwnersHandler rotates the owner set.
type SetOwnersHandler struct {
	auth  x.Authenticator
	msigs MultisigBucket
}

var _ custodia.Handler = SetOwnersHandler{}

func (h SetOwnersHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	var msg SetOwnersMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if _, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: updateCost}, nil
}

func (h SetOwnersHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	var msg SetOwnersMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	m, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID)
	if err != nil {
		return nil, err
	}
	if err := rotateOwners(m, msg.Owners); err != nil {
		return nil, err
	}
	if err := h.msigs.SaveMultisig(db, msg.MultisigID, m); err != nil {
		return nil, err
	}
	return &custodia.DeliverResult{Data: msg.MultisigID}, nil
}

// ChangeThresholdHandler retunes the approval threshold.
type ChangeThresholdHandler struct {
	auth  x.Authenticator
	msigs MultisigBucket
}

var _ custodia.Handler = ChangeThresholdHandler{}

func (h ChangeThresholdHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	var msg ChangeThresholdMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if _, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: updateCost}, nil
}

func (h ChangeThresholdHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	var msg ChangeThresholdMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	m, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID)
	if err != nil {
		return nil, err
	}
	if err := retuneThreshold(m, msg.Threshold); err != nil {
		return nil, err
	}
	if err := h.msigs.SaveMultisig(db, msg.MultisigID, m); err != nil {
		return nil, err
	}
	return &custodia.DeliverResult{Data: msg.MultisigID}, nil
}

// SetOwnersAndChangeThresholdHandler rotates the owner set and retunes
// the threshold in one step.
type SetOwnersAndChangeThresholdHandler struct {
	auth  x.Authenticator
	msigs MultisigBucket
}

var _ custodia.Handler = SetOwnersAndChangeThresholdHandler{}

func (h SetOwnersAndChangeThresholdHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	var msg SetOwnersAndChangeThresholdMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if _, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: updateCost}, nil
}

func (h SetOwnersAndChangeThresholdHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	var msg SetOwnersAndChangeThresholdMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	m, err := sealAuthorized(ctx, db, h.auth, h.msigs, msg.MultisigID)
	if err != nil {
		return nil, err
	}
	if err := rotateOwners(m, msg.Owners); err != nil {
		return nil, err
	}
	if err := retuneThreshold(m, msg.Threshold); err != nil {
		return nil, err
	}
	if err := h.msigs.SaveMultisig(db, msg.MultisigID, m); err != nil {
		return nil, err
	}
	return &custodia.DeliverResult{Data: msg.MultisigID}, nil
}

// sealAuthorized loads the multisig and ensures the call is authorized
// by its signing identity.
func sealAuthorized(ctx custodia.Context, db custodia.KVStore, auth x.Authenticator, msigs MultisigBucket, multisigID []byte) (*Multisig, error) {
	m, err := msigs.GetMultisig(db, multisigID)
	if err != nil {
		return nil, err
	}
	seal, err := SealCondition(multisigID, m.Nonce)
	if err != nil {
		return nil, err
	}
	if !auth.HasAddress(ctx, seal.Address()) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signing identity required")
	}
	return m, nil
}

// rotateOwners replaces the owner set, clamping the threshold when the
// set shrinks below it and bumping the owner set generation. Static
// owner checks (non empty, unique, well formed) happened at message
// validation.
func rotateOwners(m *Multisig, owners []custodia.Address) error {
	if len(owners) > len(m.Owners) {
		return errors.Wrapf(ErrTooManyOwners,
			"%d owners exceed current %d", len(owners), len(m.Owners))
	}
	if uint64(len(owners)) < m.Threshold {
		// Clamp instead of leaving the record unusable.
		m.Threshold = uint64(len(owners))
	}
	m.Owners = owners
	m.OwnerSetSeqno++
	return nil
}

// retuneThreshold revalidates the threshold against the current owner
// set and applies it. The owner set generation does not change: all
// approval bitmaps keep their meaning.
func retuneThreshold(m *Multisig, threshold uint64) error {
	if err := ValidateThreshold(threshold, len(m.Owners)); err != nil {
		return err
	}
	m.Threshold = threshold
	return nil
}
