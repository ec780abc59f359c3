package cash

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/orm"
)

// BucketName is where we store the balances
const BucketName = "cash"

// Balance is the value persisted for every funded address.
type Balance struct {
	Lamports int64
}

var _ orm.CloneableData = (*Balance)(nil)

// Marshal serializes the record with the package codec.
func (b *Balance) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(b)
}

// Unmarshal restores the record from its serialized form.
func (b *Balance) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, b)
}

// Validate ensures a balance can be persisted. Negative balances must
// never hit the disk.
func (b *Balance) Validate() error {
	if b.Lamports < 0 {
		return errors.Wrapf(errors.ErrState, "negative balance: %d", b.Lamports)
	}
	return nil
}

// Copy produces a new independent copy of this balance.
func (b *Balance) Copy() orm.CloneableData {
	return &Balance{Lamports: b.Lamports}
}

// Wallet is the actual object that we pass around in the code. It
// contains a balance as well as the owning address. It is connected to
// the Bucket to easily manipulate state.
//
// Wallet implements orm.Object itself, holding a *Balance as its value.
type Wallet struct {
	key   []byte
	value *Balance
}

var _ orm.Object = (*Wallet)(nil)

// NewWallet creates an empty wallet with this address
func NewWallet(key custodia.Address) *Wallet {
	return &Wallet{
		key:   key,
		value: new(Balance),
	}
}

// Value gets the value stored in the object
func (w Wallet) Value() custodia.Persistent {
	return w.value
}

// Key returns the key to store the object under
func (w Wallet) Key() []byte {
	return w.key
}

// SetKey may be used to update the wallet address
func (w *Wallet) SetKey(key []byte) {
	w.key = key
}

// Validate makes sure the fields aren't empty.
// And delegates to the value validator
func (w Wallet) Validate() error {
	if err := custodia.Address(w.key).Validate(); err != nil {
		return errors.Wrap(err, "wallet address")
	}
	return w.value.Validate()
}

// Clone will make a copy of this object
func (w *Wallet) Clone() orm.Object {
	res := &Wallet{
		value: w.value.Copy().(*Balance),
	}
	// only copy key if non-nil
	if len(w.key) > 0 {
		res.key = append([]byte(nil), w.key...)
	}
	return res
}

// Lamports returns the current balance of the wallet
func (w Wallet) Lamports() int64 {
	return w.value.Lamports
}

// Add modifies the wallet balance by the given (possibly negative) delta
func (w *Wallet) Add(delta int64) error {
	next := w.value.Lamports + delta
	switch {
	case delta > 0 && next < w.value.Lamports:
		return errors.Wrap(errors.ErrOverflow, "wallet balance")
	case next < 0:
		return errors.Wrapf(errors.ErrInsufficientAmount,
			"wallet holds %d", w.value.Lamports)
	}
	w.value.Lamports = next
	return nil
}

// IsEmpty returns true for a drained wallet that can be removed
func (w Wallet) IsEmpty() bool {
	return w.value.Lamports == 0
}

//--- cash.Bucket - type-safe bucket

// Bucket is a type-safe wrapper around orm.Bucket
type Bucket struct {
	orm.Bucket
}

// NewBucket initializes a cash.Bucket with default name
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, NewWallet(nil)),
	}
}

// Get returns the wallet at given address, or nil when absent
func (b Bucket) Get(db custodia.ReadOnlyKVStore, key custodia.Address) (*Wallet, error) {
	obj, err := b.Bucket.Get(db, key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	w, ok := obj.(*Wallet)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj)
	}
	return w, nil
}

// GetOrCreate returns the wallet at the address, creating an empty one
// in memory when missing
func (b Bucket) GetOrCreate(db custodia.ReadOnlyKVStore, key custodia.Address) (*Wallet, error) {
	wallet, err := b.Get(db, key)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		wallet = NewWallet(key)
	}
	return wallet, nil
}

// Save persists a wallet, removing drained ones from the store
func (b Bucket) Save(db custodia.KVStore, wallet *Wallet) error {
	if wallet.IsEmpty() {
		return b.Bucket.Delete(db, wallet.Key())
	}
	return b.Bucket.Save(db, wallet)
}
