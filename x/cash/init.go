package cash

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// Initializer fulfils the custodia.Initializer interface to load data
// from the genesis file
type Initializer struct{}

var _ custodia.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial account info from genesis
// and save it to the database
func (Initializer) FromGenesis(opts custodia.Options, db custodia.KVStore) error {
	accounts := []struct {
		Address  custodia.Address `json:"address"`
		Lamports int64            `json:"lamports"`
	}{}
	if err := opts.ReadOptions("cash", &accounts); err != nil {
		return errors.Wrap(err, "cannot read cash options")
	}

	bucket := NewBucket()
	for i, a := range accounts {
		if err := a.Address.Validate(); err != nil {
			return errors.Wrapf(err, "account #%d address", i)
		}
		wallet, err := bucket.GetOrCreate(db, a.Address)
		if err != nil {
			return errors.Wrapf(err, "account #%d wallet", i)
		}
		if err := wallet.Add(a.Lamports); err != nil {
			return errors.Wrapf(err, "account #%d amount", i)
		}
		if err := bucket.Save(db, wallet); err != nil {
			return errors.Wrapf(err, "account #%d save", i)
		}
	}
	return nil
}
