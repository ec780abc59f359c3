package multisig

import (
	"github.com/tendermint/go-amino"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// cdc serializes the records this package persists and the messages it
// routes. Registered concrete names are part of the storage format; do
// not rename them.
var cdc = amino.NewCodec()

func init() {
	RegisterAmino(cdc)
	cdc.RegisterConcrete(&Multisig{}, "multisig/Multisig", nil)
	cdc.RegisterConcrete(&Transaction{}, "multisig/Transaction", nil)
}

// RegisterAmino registers all messages of this package with the given
// codec, so they can travel as instruction payloads.
func RegisterAmino(c *amino.Codec) {
	c.RegisterConcrete(&CreateMultisigMsg{}, "multisig/CreateMultisigMsg", nil)
	c.RegisterConcrete(&CreateProposalMsg{}, "multisig/CreateProposalMsg", nil)
	c.RegisterConcrete(&ApproveMsg{}, "multisig/ApproveMsg", nil)
	c.RegisterConcrete(&CancelMsg{}, "multisig/CancelMsg", nil)
	c.RegisterConcrete(&ExecuteMsg{}, "multisig/ExecuteMsg", nil)
	c.RegisterConcrete(&SetOwnersMsg{}, "multisig/SetOwnersMsg", nil)
	c.RegisterConcrete(&ChangeThresholdMsg{}, "multisig/ChangeThresholdMsg", nil)
	c.RegisterConcrete(&SetOwnersAndChangeThresholdMsg{}, "multisig/SetOwnersAndChangeThresholdMsg", nil)
}

// InstructionCodec translates between raw instruction payloads and
// routable messages. It is to be implemented by this package user, as
// only the application knows the full set of dispatchable messages.
//
// Always use the same codec for staging and executing proposals.
type InstructionCodec interface {
	// MarshalInstructionData serializes the given message into the
	// payload form stored on a proposal.
	MarshalInstructionData(custodia.Msg) ([]byte, error)

	// UnmarshalInstructionData deserializes a payload (created using
	// MarshalInstructionData) back into a routable message.
	UnmarshalInstructionData([]byte) (custodia.Msg, error)
}

// instructionPayload wraps a message so that amino records which
// concrete type was serialized.
type instructionPayload struct {
	Msg custodia.Msg
}

// AminoCodec implements InstructionCodec using an amino codec that
// knows every registered message type.
type AminoCodec struct {
	cdc *amino.Codec
}

var _ InstructionCodec = (*AminoCodec)(nil)

// NewAminoCodec returns an instruction codec aware of all messages of
// this package plus everything the given register functions add.
//
//   enc := multisig.NewAminoCodec(cash.RegisterAmino)
func NewAminoCodec(regs ...func(*amino.Codec)) *AminoCodec {
	c := amino.NewCodec()
	c.RegisterInterface((*custodia.Msg)(nil), nil)
	RegisterAmino(c)
	for _, reg := range regs {
		reg(c)
	}
	return &AminoCodec{cdc: c}
}

// MarshalInstructionData implements InstructionCodec.
func (a *AminoCodec) MarshalInstructionData(msg custodia.Msg) ([]byte, error) {
	if msg == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "no message")
	}
	return a.cdc.MarshalBinaryLengthPrefixed(instructionPayload{Msg: msg})
}

// UnmarshalInstructionData implements InstructionCodec.
func (a *AminoCodec) UnmarshalInstructionData(raw []byte) (custodia.Msg, error) {
	var payload instructionPayload
	if err := a.cdc.UnmarshalBinaryLengthPrefixed(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "cannot decode payload")
	}
	if payload.Msg == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "no message")
	}
	return payload.Msg, nil
}
