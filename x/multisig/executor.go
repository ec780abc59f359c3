package multisig

import (
	"bytes"
	"fmt"

	"github.com/tendermint/tendermint/libs/common"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/x"
	"github.com/custodia-net/custodia/x/cash"
)

const executeCost int64 = 500

// ExecuteHandler dispatches staged batches that reached quorum.
//
// All instructions, the executed mark and the storage release run inside
// one cache wrap. A failing instruction discards the wrap: nothing of
// the batch applies and the proposal stays live.
type ExecuteHandler struct {
	auth     x.Authenticator
	msigs    MultisigBucket
	props    ProposalBucket
	control  cash.Controller
	dispatch custodia.Deliverer
	enc      InstructionCodec
}

var _ custodia.Handler = ExecuteHandler{}

func (h ExecuteHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{GasAllocated: executeCost}, nil
}

func (h ExecuteHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	msg, m, t, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	seal, err := SealCondition(msg.MultisigID, m.Nonce)
	if err != nil {
		return nil, err
	}

	// Accounts flagged as signers need a signature. The one of the
	// signing identity is synthesized during dispatch; every other one
	// must come with the outer transaction.
	for _, a := range flattenAccounts(t.Instructions, seal.Address()) {
		if a.Signer && !h.auth.HasAddress(ctx, a.Address) {
			return nil, errors.Wrapf(errors.ErrUnauthorized,
				"missing signature for account %s", a.Address)
		}
	}

	// Everything below is all-or-nothing.
	cache, flush, discard := isolate(db)

	logger := custodia.GetLogger(ctx).With(
		"multisig", fmt.Sprintf("%X", msg.MultisigID),
		"proposal", fmt.Sprintf("%X", msg.ProposalID),
	)

	sealCtx := withSeal(ctx, seal)
	var tags []common.KVPair
	for i, ix := range t.Instructions {
		res, err := h.deliverInstruction(sealCtx, cache, ix)
		if err != nil {
			discard()
			logger.Error("instruction failed", "index", i, "err", err)
			return nil, errors.Wrapf(err, "instruction #%d", i)
		}
		logger.Debug("instruction delivered", "index", i, "program", ix.Program)
		tags = append(tags, res.Tags...)
	}

	// Mark, release storage and refund the deposit within the same
	// envelope as the instructions.
	t.DidExecute = true
	refundee := msg.Refundee
	if refundee == nil {
		refundee = t.Refundee
	}
	if err := closeProposal(cache, h.props, h.control, msg.ProposalID, refundee); err != nil {
		discard()
		return nil, err
	}

	if err := flush(); err != nil {
		return nil, errors.Wrap(err, "cannot commit batch")
	}

	res := custodia.DeliverResult{
		Data: msg.ProposalID,
		Tags: append(tags, closeTags("execute", msg.ProposalID)...),
	}
	return &res, nil
}

// validate runs every gate of the execution path: executor authority,
// liveness, owner set generation and quorum.
func (h ExecuteHandler) validate(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*ExecuteMsg, *Multisig, *Transaction, error) {
	var msg ExecuteMsg
	if err := custodia.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}
	m, err := h.msigs.GetMultisig(db, msg.MultisigID)
	if err != nil {
		return nil, nil, nil, err
	}
	executor := x.MainSigner(ctx, h.auth)
	if executor == nil {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	if _, ok := OwnerIndex(m.Owners, executor.Address()); !ok {
		return nil, nil, nil, errors.Wrapf(ErrInvalidExecutor, "executor %s", executor.Address())
	}
	// A closed proposal, executed or cancelled, is gone. Both paths end
	// in the same not found failure here.
	t, err := h.props.GetProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(t.MultisigID, msg.MultisigID) {
		return nil, nil, nil, errors.Wrap(errors.ErrInput, "proposal belongs to another multisig")
	}
	if t.OwnerSetSeqno != m.OwnerSetSeqno {
		return nil, nil, nil, errors.Wrapf(ErrStaleOwnerSet,
			"proposal generation %d, multisig generation %d", t.OwnerSetSeqno, m.OwnerSetSeqno)
	}
	signers, err := t.SignerSet()
	if err != nil {
		return nil, nil, nil, err
	}
	if !MeetsThreshold(signers, m.Threshold) {
		return nil, nil, nil, errors.Wrapf(ErrNotEnoughSigners,
			"%d of %d", CountApprovals(signers), m.Threshold)
	}
	if t.DidExecute {
		// Close-on-execute makes this unreachable, the record would be
		// gone. Kept as a safety net against storage corruption.
		return nil, nil, nil, errors.Wrap(errors.ErrState, "already executed")
	}
	return &msg, m, t, nil
}

// deliverInstruction decodes one instruction and routes it.
func (h ExecuteHandler) deliverInstruction(ctx custodia.Context, db custodia.KVStore, ix Instruction) (*custodia.DeliverResult, error) {
	msg, err := h.enc.UnmarshalInstructionData(ix.Data)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInstruction, err.Error())
	}
	if msg.Path() != ix.Program {
		return nil, errors.Wrapf(ErrInvalidInstruction,
			"program %q does not handle %q", ix.Program, msg.Path())
	}
	return h.dispatch.Deliver(ctx, db, &innerTx{msg: msg})
}

// isolate returns a scratch store, a commit function and a discard
// function. When the
// backing store cannot cache wrap, the caller is already running inside
// an isolating envelope and writes go straight through.
func isolate(db custodia.KVStore) (custodia.KVStore, func() error, func()) {
	cstore, ok := db.(custodia.CacheableKVStore)
	if !ok {
		return db, func() error { return nil }, func() {}
	}
	cache := cstore.CacheWrap()
	return cache, cache.Write, cache.Discard
}

// closeProposal releases the proposal storage and refunds the full
// escrow deposit to the refundee. After this, every reference to the
// proposal resolves to not found.
func closeProposal(db custodia.KVStore, props ProposalBucket, control cash.Controller, proposalID []byte, refundee custodia.Address) error {
	if err := props.Delete(db, proposalID); err != nil {
		return errors.Wrap(err, "cannot release storage")
	}
	escrow := ProposalCondition(proposalID).Address()
	deposit, err := control.Balance(db, escrow)
	if err != nil {
		return errors.Wrap(err, "escrow lookup")
	}
	if deposit > 0 {
		if err := control.MoveCoins(db, escrow, refundee, deposit); err != nil {
			return errors.Wrap(err, "cannot refund deposit")
		}
	}
	return nil
}

// closeTags labels a proposal termination for the hosting block.
func closeTags(action string, proposalID []byte) []common.KVPair {
	return []common.KVPair{
		{Key: []byte("multisig:" + action), Value: proposalID},
	}
}

// flattenAccounts joins the account metadata of all instructions in
// order, deduplicating by address: each address keeps the position of
// its first occurrence, and the signer and writable flags of later
// occurrences are merged into it. Accounts equal to the signing identity are downgraded to
// non signers, as that signature is synthesized during dispatch.
func flattenAccounts(instructions []Instruction, seal custodia.Address) []AccountMeta {
	var out []AccountMeta
	seen := make(map[string]int)
	for _, ix := range instructions {
		for _, a := range ix.Accounts {
			meta := AccountMeta{
				Address:  a.Address,
				Signer:   a.Signer && !a.Address.Equals(seal),
				Writable: a.Writable,
			}
			if i, ok := seen[string(a.Address)]; ok {
				out[i].Signer = out[i].Signer || meta.Signer
				out[i].Writable = out[i].Writable || meta.Writable
				continue
			}
			seen[string(a.Address)] = len(out)
			out = append(out, meta)
		}
	}
	return out
}

// innerTx wraps a decoded instruction message for dispatch.
type innerTx struct {
	msg custodia.Msg
}

var _ custodia.Tx = (*innerTx)(nil)

func (tx *innerTx) GetMsg() (custodia.Msg, error) {
	return tx.msg, nil
}

func (tx *innerTx) Marshal() ([]byte, error) {
	return tx.msg.Marshal()
}

func (tx *innerTx) Unmarshal([]byte) error {
	return errors.Wrap(errors.ErrHuman, "inner transactions are never deserialized")
}
