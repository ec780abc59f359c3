package multisig

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// configKey is where the rent pricing lives. The underscore prefix
// keeps it outside of any bucket namespace.
const configKey = "_c:multisig"

// Configuration holds the rent pricing for proposal storage. With the
// zero configuration proposals are free: environments that do not
// account rent simply never initialize this.
type Configuration struct {
	// BaseRent is charged for every proposal regardless of size.
	BaseRent int64 `json:"base_rent"`
	// RentPerByte is charged per byte of the serialized proposal.
	RentPerByte int64 `json:"rent_per_byte"`
}

func init() {
	cdc.RegisterConcrete(&Configuration{}, "multisig/Configuration", nil)
}

// Validate ensures the pricing can be persisted.
func (c *Configuration) Validate() error {
	if c.BaseRent < 0 || c.RentPerByte < 0 {
		return errors.Wrap(errors.ErrAmount, "negative rent price")
	}
	return nil
}

func (c *Configuration) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(c)
}

func (c *Configuration) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, c)
}

// loadConfiguration returns the current rent pricing. Zero value when
// never configured.
func loadConfiguration(db custodia.ReadOnlyKVStore) (Configuration, error) {
	var c Configuration
	raw, err := db.Get([]byte(configKey))
	if err != nil {
		return c, errors.Wrap(err, "cannot load configuration")
	}
	if raw == nil {
		return c, nil
	}
	if err := c.Unmarshal(raw); err != nil {
		return c, errors.Wrap(err, "cannot unmarshal configuration")
	}
	return c, nil
}

// saveConfiguration persists the rent pricing.
func saveConfiguration(db custodia.KVStore, c Configuration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	raw, err := c.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal configuration")
	}
	return db.Set([]byte(configKey), raw)
}

// rentFor prices the storage of a proposal serialized to given size.
func rentFor(c Configuration, size int) int64 {
	if c.BaseRent == 0 && c.RentPerByte == 0 {
		return 0
	}
	return c.BaseRent + c.RentPerByte*int64(size)
}

// Initializer fulfils the custodia.Initializer interface to load the
// rent pricing from the genesis file.
type Initializer struct{}

var _ custodia.Initializer = (*Initializer)(nil)

// FromGenesis will parse rent pricing from genesis and save it to the
// database. Missing configuration is not an error, rent stays free.
func (Initializer) FromGenesis(opts custodia.Options, db custodia.KVStore) error {
	var c Configuration
	if err := opts.ReadOptions("multisig", &c); err != nil {
		return errors.Wrap(err, "cannot read multisig options")
	}
	if c.BaseRent == 0 && c.RentPerByte == 0 {
		return nil
	}
	return saveConfiguration(db, c)
}
