package cash

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

const pathSendMsg = "cash/send"

const sendTxCost int64 = 100

// SendMsg moves lamports between two addresses.
type SendMsg struct {
	Source      custodia.Address
	Destination custodia.Address
	Amount      int64
	// Memo is a free-form note attached to the transfer
	Memo string
}

var _ custodia.Msg = (*SendMsg)(nil)

// Path fulfills custodia.Msg interface to allow routing
func (SendMsg) Path() string {
	return pathSendMsg
}

// Validate makes sure that this is sensible
func (m *SendMsg) Validate() error {
	if m.Amount <= 0 {
		return errors.Wrapf(errors.ErrAmount, "non-positive send: %d", m.Amount)
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if len(m.Memo) > maxMemoSize {
		return errors.Wrapf(errors.ErrInput, "memo longer than %d characters", maxMemoSize)
	}
	return nil
}

// Marshal serializes the message with the package codec.
func (m *SendMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryLengthPrefixed(m)
}

// Unmarshal restores the message from its serialized form.
func (m *SendMsg) Unmarshal(bz []byte) error {
	return cdc.UnmarshalBinaryLengthPrefixed(bz, m)
}

const maxMemoSize = 128
