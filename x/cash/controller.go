package cash

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// Controller is the functionality needed by other extensions to move
// funds around without going through the message handlers.
type Controller interface {
	// Balance returns the lamports held by given address. Missing
	// wallets count as zero.
	Balance(db custodia.ReadOnlyKVStore, addr custodia.Address) (int64, error)

	// MoveCoins moves the given amount from src to dest.
	MoveCoins(db custodia.KVStore, src, dest custodia.Address, amount int64) error

	// CoinMint issues new lamports to the destination address.
	CoinMint(db custodia.KVStore, dest custodia.Address, amount int64) error
}

// CashController implements Controller on top of the wallet bucket.
type CashController struct {
	bucket Bucket
}

var _ Controller = CashController{}

// NewController returns a controller using the default bucket.
func NewController() CashController {
	return CashController{bucket: NewBucket()}
}

// Balance implements Controller.
func (c CashController) Balance(db custodia.ReadOnlyKVStore, addr custodia.Address) (int64, error) {
	wallet, err := c.bucket.Get(db, addr)
	if err != nil {
		return 0, errors.Wrap(err, "wallet lookup")
	}
	if wallet == nil {
		return 0, nil
	}
	return wallet.Lamports(), nil
}

// MoveCoins moves the given amount from src to dest.
// If src doesn't exist, or doesn't have sufficient lamports, it fails.
func (c CashController) MoveCoins(db custodia.KVStore, src, dest custodia.Address, amount int64) error {
	if amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "non-positive transfer: %d", amount)
	}

	sender, err := c.bucket.Get(db, src)
	if err != nil {
		return errors.Wrap(err, "wallet lookup")
	}
	if sender == nil {
		return errors.Wrapf(errors.ErrEmpty, "no wallet for %s", src)
	}
	if err := sender.Add(-amount); err != nil {
		return err
	}

	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return errors.Wrap(err, "wallet lookup")
	}
	if err := recipient.Add(amount); err != nil {
		return err
	}

	if err := c.bucket.Save(db, sender); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}

// CoinMint attempts to add the given amount of lamports to the
// destination address. Fails if it overflows the wallet.
func (c CashController) CoinMint(db custodia.KVStore, dest custodia.Address, amount int64) error {
	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return errors.Wrap(err, "wallet lookup")
	}
	if err := recipient.Add(amount); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}
