package multisig

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// SealCondition derives the signing identity of a multisig from its
// record ID and the stored nonce. The derived address is what downstream
// handlers see as the signer of executed instructions. Nobody can sign
// for it from the outside; only the execution dispatcher attaches this
// condition to a context.
func SealCondition(multisigID []byte, nonce uint8) (custodia.Condition, error) {
	data := make([]byte, 0, len(multisigID)+1)
	data = append(data, multisigID...)
	data = append(data, nonce)
	c := custodia.NewCondition("multisig", "seal", data)
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidNonce, "multisig %X nonce %d", multisigID, nonce)
	}
	return c, nil
}

// ProposalCondition derives the escrow identity of a proposal. The rent
// deposit backing the proposal storage is held under this address until
// the proposal is closed.
func ProposalCondition(proposalID []byte) custodia.Condition {
	return custodia.NewCondition("multisig", "escrow", proposalID)
}
