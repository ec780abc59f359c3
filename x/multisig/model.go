package multisig

import (
	"github.com/willf/bitset"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/orm"
)

const (
	// BucketName is where we store the multisig records
	BucketName = "msigs"
	// ProposalBucketName is where we store the staged proposals
	ProposalBucketName = "props"
	// SequenceName is an auto-increment ID counter
	SequenceName = "id"

	// To avoid burning CPU, this is the maximum number of owners
	// allowed to be part of a single multisig.
	maxOwnersAllowed = 100
)

// Multisig is the configuration record: an ordered owner set, the
// approval threshold and the nonce the signing identity is derived
// from. OwnerSetSeqno counts the owner set generations; it grows on
// every membership change and never on a threshold-only change.
type Multisig struct {
	Owners        []custodia.Address
	Threshold     uint64
	Nonce         uint8
	OwnerSetSeqno uint32
}

var _ orm.CloneableData = (*Multisig)(nil)

// Marshal serializes the record with the package codec.
func (m *Multisig) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

// Unmarshal restores the record from its serialized form.
func (m *Multisig) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

// Validate ensures the record can be persisted.
func (m *Multisig) Validate() error {
	if len(m.Owners) > maxOwnersAllowed {
		return errors.Wrap(errors.ErrModel, "too many owners")
	}
	if err := validateOwners(m.Owners); err != nil {
		return err
	}
	return ValidateThreshold(m.Threshold, len(m.Owners))
}

// Copy produces a new independent copy of this record.
func (m *Multisig) Copy() orm.CloneableData {
	owners := make([]custodia.Address, 0, len(m.Owners))
	for _, o := range m.Owners {
		owners = append(owners, o.Clone())
	}
	return &Multisig{
		Owners:        owners,
		Threshold:     m.Threshold,
		Nonce:         m.Nonce,
		OwnerSetSeqno: m.OwnerSetSeqno,
	}
}

// Transaction is a staged proposal: the instruction batch awaiting
// quorum, the approval bitmap, the owner set generation it was staged
// against and the refundee nominated for the rent deposit.
type Transaction struct {
	MultisigID    []byte
	Instructions  []Instruction
	Signers       []byte
	DidExecute    bool
	OwnerSetSeqno uint32
	Refundee      custodia.Address
}

var _ orm.CloneableData = (*Transaction)(nil)

// Marshal serializes the record with the package codec.
func (t *Transaction) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(t)
}

// Unmarshal restores the record from its serialized form.
func (t *Transaction) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, t)
}

// Validate ensures the record can be persisted.
func (t *Transaction) Validate() error {
	if len(t.MultisigID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "multisig reference")
	}
	if len(t.Instructions) == 0 {
		return errors.Wrap(ErrMissingInstructions, "empty batch")
	}
	for i, ix := range t.Instructions {
		if err := ix.Validate(); err != nil {
			return errors.Wrapf(err, "instruction #%d", i)
		}
	}
	if _, err := t.SignerSet(); err != nil {
		return err
	}
	if err := t.Refundee.Validate(); err != nil {
		return errors.Wrap(err, "refundee")
	}
	return nil
}

// Copy produces a new independent copy of this record.
func (t *Transaction) Copy() orm.CloneableData {
	instructions := make([]Instruction, len(t.Instructions))
	for i, ix := range t.Instructions {
		instructions[i] = ix.Copy()
	}
	return &Transaction{
		MultisigID:    append([]byte(nil), t.MultisigID...),
		Instructions:  instructions,
		Signers:       append([]byte(nil), t.Signers...),
		DidExecute:    t.DidExecute,
		OwnerSetSeqno: t.OwnerSetSeqno,
		Refundee:      t.Refundee.Clone(),
	}
}

// SignerSet deserializes the approval bitmap.
func (t *Transaction) SignerSet() (*bitset.BitSet, error) {
	signers := new(bitset.BitSet)
	if err := signers.UnmarshalBinary(t.Signers); err != nil {
		return nil, errors.Wrap(errors.ErrModel, "signers bitmap")
	}
	return signers, nil
}

// SetSignerSet serializes the approval bitmap onto the record.
func (t *Transaction) SetSignerSet(signers *bitset.BitSet) error {
	raw, err := signers.MarshalBinary()
	if err != nil {
		return errors.Wrap(errors.ErrModel, "signers bitmap")
	}
	t.Signers = raw
	return nil
}

// Instruction is one unit of downstream work: the path of the handler
// that executes it, the metadata of every account it touches and the
// serialized message consumed by the handler.
type Instruction struct {
	Program  string
	Accounts []AccountMeta
	Data     []byte
}

// Validate ensures the instruction can be persisted.
func (ix Instruction) Validate() error {
	if len(ix.Program) == 0 {
		return errors.Wrap(errors.ErrEmpty, "program")
	}
	if len(ix.Data) == 0 {
		return errors.Wrap(errors.ErrEmpty, "data")
	}
	for i, a := range ix.Accounts {
		if err := a.Address.Validate(); err != nil {
			return errors.Wrapf(err, "account #%d", i)
		}
	}
	return nil
}

// Copy produces a new independent copy of this instruction.
func (ix Instruction) Copy() Instruction {
	accounts := make([]AccountMeta, len(ix.Accounts))
	for i, a := range ix.Accounts {
		accounts[i] = AccountMeta{
			Address:  a.Address.Clone(),
			Signer:   a.Signer,
			Writable: a.Writable,
		}
	}
	return Instruction{
		Program:  ix.Program,
		Accounts: accounts,
		Data:     append([]byte(nil), ix.Data...),
	}
}

// AccountMeta describes one account an instruction touches and whether
// the handler expects its signature or will write to it.
type AccountMeta struct {
	Address  custodia.Address
	Signer   bool
	Writable bool
}

//--- type-safe buckets

// MultisigBucket is a type-safe wrapper around orm.Bucket
type MultisigBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

// NewMultisigBucket initializes a MultisigBucket with default name
func NewMultisigBucket() MultisigBucket {
	bucket := orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Multisig)))
	return MultisigBucket{
		Bucket: bucket,
		idSeq:  bucket.Sequence(SequenceName),
	}
}

// Create persists a new multisig record and returns its ID.
func (b MultisigBucket) Create(db custodia.KVStore, m *Multisig) ([]byte, error) {
	id, err := b.idSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire ID")
	}
	obj := orm.NewSimpleObj(id, m)
	if err := b.Save(db, obj); err != nil {
		return nil, err
	}
	return id, nil
}

// GetMultisig returns the multisig with given ID, or ErrNotFound.
func (b MultisigBucket) GetMultisig(db custodia.ReadOnlyKVStore, multisigID []byte) (*Multisig, error) {
	obj, err := b.Get(db, multisigID)
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil || obj.Value() == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "multisig %X", multisigID)
	}
	m, ok := obj.Value().(*Multisig)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return m, nil
}

// SaveMultisig persists an updated multisig record under its ID.
func (b MultisigBucket) SaveMultisig(db custodia.KVStore, multisigID []byte, m *Multisig) error {
	return b.Save(db, orm.NewSimpleObj(multisigID, m))
}

// ProposalBucket is a type-safe wrapper around orm.Bucket
type ProposalBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

// NewProposalBucket initializes a ProposalBucket with default name
func NewProposalBucket() ProposalBucket {
	bucket := orm.NewBucket(ProposalBucketName, orm.NewSimpleObj(nil, new(Transaction)))
	return ProposalBucket{
		Bucket: bucket,
		idSeq:  bucket.Sequence(SequenceName),
	}
}

// Create persists a new proposal record and returns its ID. Creation is
// a one-shot operation: writing over an existing record fails.
func (b ProposalBucket) Create(db custodia.KVStore, t *Transaction) ([]byte, error) {
	id, err := b.idSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "cannot acquire ID")
	}
	switch taken, err := b.Has(db, id); {
	case err != nil:
		return nil, errors.Wrap(err, "bucket lookup")
	case taken:
		return nil, errors.Wrapf(errors.ErrDuplicate, "proposal %X", id)
	}
	obj := orm.NewSimpleObj(id, t)
	if err := b.Save(db, obj); err != nil {
		return nil, err
	}
	return id, nil
}

// GetProposal returns the live proposal with given ID. Closed and never
// created proposals are indistinguishable: both return ErrNotFound.
func (b ProposalBucket) GetProposal(db custodia.ReadOnlyKVStore, proposalID []byte) (*Transaction, error) {
	obj, err := b.Get(db, proposalID)
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil || obj.Value() == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "proposal %X", proposalID)
	}
	t, ok := obj.Value().(*Transaction)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return t, nil
}

// SaveProposal persists an updated proposal record under its ID.
func (b ProposalBucket) SaveProposal(db custodia.KVStore, proposalID []byte, t *Transaction) error {
	return b.Save(db, orm.NewSimpleObj(proposalID, t))
}
