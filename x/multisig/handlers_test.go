package multisig

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/app"
	"github.com/custodia-net/custodia/custodiatest"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/store"
	"github.com/custodia-net/custodia/x"
	"github.com/custodia-net/custodia/x/cash"
	"github.com/custodia-net/custodia/x/utils"
)

// testFixture wires a complete application stack: the multisig routes,
// the cash routes, a savepoint decorator and a context based
// authenticator. The router doubles as the dispatch target, so executed
// proposals can call back into the multisig configuration.
type testFixture struct {
	db      custodia.CacheableKVStore
	ctxAuth *custodiatest.CtxAuth
	ctrl    cash.CashController
	enc     InstructionCodec
	stack   custodia.Handler
	msigs   MultisigBucket
	props   ProposalBucket
}

func newTestFixture(t testing.TB) *testFixture {
	t.Helper()

	db := store.MemStore()
	ctxAuth := &custodiatest.CtxAuth{Key: "auth"}
	auth := x.ChainAuth(Authenticate{}, ctxAuth)
	ctrl := cash.NewController()
	enc := NewAminoCodec(cash.RegisterAmino)

	r := app.NewRouter()
	cash.RegisterRoutes(r, auth, ctrl)
	RegisterRoutes(r, auth, ctrl, r, enc)

	stack := app.ChainDecorators(
		utils.NewRecovery(),
		utils.NewSavepoint().OnDeliver(),
	).WithHandler(r)

	return &testFixture{
		db:      db,
		ctxAuth: ctxAuth,
		ctrl:    ctrl,
		enc:     enc,
		stack:   stack,
		msigs:   NewMultisigBucket(),
		props:   NewProposalBucket(),
	}
}

// deliver runs one message through the full stack, authorized by the
// given signer.
func (f *testFixture) deliver(signer custodia.Condition, msg custodia.Msg) (*custodia.DeliverResult, error) {
	ctx := context.Background()
	if signer != nil {
		ctx = f.ctxAuth.SetConditions(ctx, signer)
	}
	return f.stack.Deliver(ctx, f.db, &custodiatest.Tx{Msg: msg})
}

// enableRent configures the rent pricing through the genesis loader.
func (f *testFixture) enableRent(t testing.TB, base, perByte int64) {
	t.Helper()
	var ini Initializer
	opts := custodia.Options{
		"multisig": []byte(`{"base_rent": ` + strconv.FormatInt(base, 10) +
			`, "rent_per_byte": ` + strconv.FormatInt(perByte, 10) + `}`),
	}
	require.NoError(t, ini.FromGenesis(opts, f.db))
}

func ownerAddrs(conds ...custodia.Condition) []custodia.Address {
	addrs := make([]custodia.Address, len(conds))
	for i, c := range conds {
		addrs[i] = c.Address()
	}
	return addrs
}

// createMultisig delivers a create message and returns the record ID
// together with the derived signing identity.
func (f *testFixture) createMultisig(t testing.TB, creator custodia.Condition, owners []custodia.Address, threshold uint64, nonce uint8) ([]byte, custodia.Condition) {
	t.Helper()
	res, err := f.deliver(creator, &CreateMultisigMsg{
		Owners:    owners,
		Threshold: threshold,
		Nonce:     nonce,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Data)

	seal, err := SealCondition(res.Data, nonce)
	require.NoError(t, err)
	return res.Data, seal
}

// transferInstruction stages a cash transfer as an instruction.
func (f *testFixture) transferInstruction(t testing.TB, src, dest custodia.Address, amount int64) Instruction {
	t.Helper()
	data, err := f.enc.MarshalInstructionData(&cash.SendMsg{
		Source:      src,
		Destination: dest,
		Amount:      amount,
	})
	require.NoError(t, err)
	return Instruction{
		Program: "cash/send",
		Accounts: []AccountMeta{
			{Address: src, Signer: true, Writable: true},
			{Address: dest, Writable: true},
		},
		Data: data,
	}
}

// configInstruction stages a call back into the multisig configuration.
func (f *testFixture) configInstruction(t testing.TB, seal custodia.Address, msg custodia.Msg) Instruction {
	t.Helper()
	data, err := f.enc.MarshalInstructionData(msg)
	require.NoError(t, err)
	return Instruction{
		Program: msg.Path(),
		Accounts: []AccountMeta{
			{Address: seal, Signer: true, Writable: true},
		},
		Data: data,
	}
}

func TestCreateMultisigHandler(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()
	c := custodiatest.NewCondition()

	cases := map[string]struct {
		signer    custodia.Condition
		owners    []custodia.Address
		threshold uint64
		wantErr   *errors.Error
	}{
		"two of three": {
			signer:    a,
			owners:    ownerAddrs(a, b, c),
			threshold: 2,
		},
		"creator needs no owner seat": {
			signer:    custodiatest.NewCondition(),
			owners:    ownerAddrs(a, b),
			threshold: 1,
		},
		"threshold zero": {
			signer:    a,
			owners:    ownerAddrs(a, b, c),
			threshold: 0,
			wantErr:   ErrInvalidThreshold,
		},
		"threshold above owner count": {
			signer:    a,
			owners:    ownerAddrs(a, b, c),
			threshold: 4,
			wantErr:   ErrInvalidThreshold,
		},
		"no signer": {
			owners:    ownerAddrs(a, b, c),
			threshold: 2,
			wantErr:   errors.ErrUnauthorized,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newTestFixture(t)
			res, err := f.deliver(tc.signer, &CreateMultisigMsg{
				Owners:    tc.owners,
				Threshold: tc.threshold,
				Nonce:     1,
			})
			if tc.wantErr != nil {
				assert.True(t, tc.wantErr.Is(err), "got %+v", err)
				return
			}
			require.NoError(t, err)

			m, err := f.msigs.GetMultisig(f.db, res.Data)
			require.NoError(t, err)
			assert.Equal(t, tc.owners, m.Owners)
			assert.Equal(t, tc.threshold, m.Threshold)
			assert.Equal(t, uint32(0), m.OwnerSetSeqno)
		})
	}
}

func TestProposeSetsProposerApproval(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()
	c := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, seal := f.createMultisig(t, a, ownerAddrs(a, b, c), 2, 1)

	res, err := f.deliver(b, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)

	prop, err := f.props.GetProposal(f.db, res.Data)
	require.NoError(t, err)

	signers, err := prop.SignerSet()
	require.NoError(t, err)
	assert.True(t, signers.Test(1), "proposer approves implicitly")
	assert.False(t, signers.Test(0))
	assert.False(t, signers.Test(2))
	assert.Equal(t, uint64(1), CountApprovals(signers))

	assert.False(t, prop.DidExecute)
	assert.Equal(t, uint32(0), prop.OwnerSetSeqno)
	assert.Equal(t, b.Address(), prop.Refundee, "refundee defaults to the proposer")
}

func TestProposeByNonOwner(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, seal := f.createMultisig(t, a, ownerAddrs(a, b), 1, 1)

	_, err := f.deliver(custodiatest.NewCondition(), &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	assert.True(t, ErrInvalidOwner.Is(err), "got %+v", err)
}

func TestProposeChargesRent(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()

	f := newTestFixture(t)
	f.enableRent(t, 100, 1)
	require.NoError(t, f.ctrl.CoinMint(f.db, a.Address(), 10000))

	id, seal := f.createMultisig(t, a, ownerAddrs(a, b), 1, 1)
	res, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)

	escrow := ProposalCondition(res.Data).Address()
	deposit, err := f.ctrl.Balance(f.db, escrow)
	require.NoError(t, err)
	assert.True(t, deposit > 100, "deposit %d must cover base rent plus size", deposit)

	remaining, err := f.ctrl.Balance(f.db, a.Address())
	require.NoError(t, err)
	assert.Equal(t, int64(10000)-deposit, remaining)
}

func TestProposeRentRequiresFunds(t *testing.T) {
	a := custodiatest.NewCondition()

	f := newTestFixture(t)
	f.enableRent(t, 100, 1)

	id, seal := f.createMultisig(t, a, ownerAddrs(a), 1, 1)
	_, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	assert.True(t, errors.ErrEmpty.Is(err), "unfunded proposer must fail, got %+v", err)
}

func TestApproveIsIdempotent(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()
	c := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, seal := f.createMultisig(t, a, ownerAddrs(a, b, c), 2, 1)

	res, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)
	propID := res.Data

	_, err = f.deliver(b, &ApproveMsg{MultisigID: id, ProposalID: propID})
	require.NoError(t, err)

	first, err := f.props.GetProposal(f.db, propID)
	require.NoError(t, err)

	// Approving again is a no-op success.
	_, err = f.deliver(b, &ApproveMsg{MultisigID: id, ProposalID: propID})
	require.NoError(t, err)

	second, err := f.props.GetProposal(f.db, propID)
	require.NoError(t, err)
	assert.Equal(t, first.Signers, second.Signers)

	signers, err := second.SignerSet()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), CountApprovals(signers))
}

func TestApproveGates(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, seal := f.createMultisig(t, a, ownerAddrs(a, b), 2, 1)
	otherID, _ := f.createMultisig(t, a, ownerAddrs(a, b), 2, 2)

	res, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)
	propID := res.Data

	// Outsiders cannot approve.
	_, err = f.deliver(custodiatest.NewCondition(), &ApproveMsg{MultisigID: id, ProposalID: propID})
	assert.True(t, ErrInvalidOwner.Is(err), "got %+v", err)

	// The proposal is bound to its multisig.
	_, err = f.deliver(b, &ApproveMsg{MultisigID: otherID, ProposalID: propID})
	assert.True(t, errors.ErrInput.Is(err), "got %+v", err)

	// Unknown proposals are not found.
	_, err = f.deliver(b, &ApproveMsg{MultisigID: id, ProposalID: []byte("missing")})
	assert.True(t, errors.ErrNotFound.Is(err), "got %+v", err)
}

func TestCancelGates(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, seal := f.createMultisig(t, a, ownerAddrs(a, b), 2, 1)

	res, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)
	propID := res.Data

	_, err = f.deliver(custodiatest.NewCondition(), &CancelMsg{MultisigID: id, ProposalID: propID})
	assert.True(t, ErrInvalidExecutor.Is(err), "got %+v", err)

	// Any current owner can close, also below quorum.
	_, err = f.deliver(b, &CancelMsg{MultisigID: id, ProposalID: propID})
	require.NoError(t, err)

	_, err = f.props.GetProposal(f.db, propID)
	assert.True(t, errors.ErrNotFound.Is(err), "got %+v", err)
}

func TestCancelRefundsDeposit(t *testing.T) {
	a := custodiatest.NewCondition()
	refundee := custodiatest.NewAddress()

	f := newTestFixture(t)
	f.enableRent(t, 100, 1)
	require.NoError(t, f.ctrl.CoinMint(f.db, a.Address(), 10000))

	id, seal := f.createMultisig(t, a, ownerAddrs(a), 1, 1)
	res, err := f.deliver(a, &CreateProposalMsg{
		MultisigID:   id,
		Instructions: []Instruction{f.transferInstruction(t, seal.Address(), custodiatest.NewAddress(), 5)},
	})
	require.NoError(t, err)
	propID := res.Data

	escrow := ProposalCondition(propID).Address()
	deposit, err := f.ctrl.Balance(f.db, escrow)
	require.NoError(t, err)
	require.True(t, deposit > 0)

	_, err = f.deliver(a, &CancelMsg{MultisigID: id, ProposalID: propID, Refundee: refundee})
	require.NoError(t, err)

	got, err := f.ctrl.Balance(f.db, refundee)
	require.NoError(t, err)
	assert.Equal(t, deposit, got, "the nominated refundee collects the deposit")

	left, err := f.ctrl.Balance(f.db, escrow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), left)
}

func TestConfigHandlersRejectDirectCalls(t *testing.T) {
	a := custodiatest.NewCondition()
	b := custodiatest.NewCondition()

	f := newTestFixture(t)
	id, _ := f.createMultisig(t, a, ownerAddrs(a, b), 1, 1)

	msgs := []custodia.Msg{
		&SetOwnersMsg{MultisigID: id, Owners: ownerAddrs(a)},
		&ChangeThresholdMsg{MultisigID: id, Threshold: 1},
		&SetOwnersAndChangeThresholdMsg{MultisigID: id, Owners: ownerAddrs(a), Threshold: 1},
	}
	for _, msg := range msgs {
		// Even an owner signature is not enough: configuration accepts
		// only the signing identity.
		_, err := f.deliver(a, msg)
		assert.True(t, errors.ErrUnauthorized.Is(err), "%s: got %+v", msg.Path(), err)
	}
}

func TestRotateOwnersClampsThreshold(t *testing.T) {
	a := custodiatest.NewAddress()
	b := custodiatest.NewAddress()
	c := custodiatest.NewAddress()

	m := &Multisig{Owners: []custodia.Address{a, b, c}, Threshold: 3, Nonce: 1}
	require.NoError(t, rotateOwners(m, []custodia.Address{a}))

	assert.Equal(t, []custodia.Address{a}, m.Owners)
	assert.Equal(t, uint64(1), m.Threshold, "threshold clamps to the new owner count")
	assert.Equal(t, uint32(1), m.OwnerSetSeqno)
}

func TestRotateOwnersCannotGrow(t *testing.T) {
	a := custodiatest.NewAddress()
	b := custodiatest.NewAddress()

	m := &Multisig{Owners: []custodia.Address{a}, Threshold: 1, Nonce: 1}
	err := rotateOwners(m, []custodia.Address{a, b})
	assert.True(t, ErrTooManyOwners.Is(err), "got %+v", err)
	assert.Equal(t, uint32(0), m.OwnerSetSeqno)
}

func TestRetuneThresholdKeepsGeneration(t *testing.T) {
	a := custodiatest.NewAddress()
	b := custodiatest.NewAddress()

	m := &Multisig{Owners: []custodia.Address{a, b}, Threshold: 1, Nonce: 1}
	require.NoError(t, retuneThreshold(m, 2))
	assert.Equal(t, uint64(2), m.Threshold)
	assert.Equal(t, uint32(0), m.OwnerSetSeqno,
		"threshold-only changes keep every approval bitmap meaningful")

	err := retuneThreshold(m, 3)
	assert.True(t, ErrInvalidThreshold.Is(err), "got %+v", err)
}
