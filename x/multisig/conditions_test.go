package multisig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealConditionIsDeterministic(t *testing.T) {
	id := []byte{0, 0, 0, 0, 0, 0, 0, 1}

	a, err := SealCondition(id, 7)
	require.NoError(t, err)
	b, err := SealCondition(id, 7)
	require.NoError(t, err)
	assert.True(t, a.Equals(b))
	assert.NoError(t, a.Address().Validate())

	// A different nonce derives a different identity for the same
	// record.
	c, err := SealCondition(id, 8)
	require.NoError(t, err)
	assert.False(t, a.Address().Equals(c.Address()))

	// So does a different record with the same nonce.
	d, err := SealCondition([]byte{0, 0, 0, 0, 0, 0, 0, 2}, 7)
	require.NoError(t, err)
	assert.False(t, a.Address().Equals(d.Address()))
}

func TestSealConditionEveryNonce(t *testing.T) {
	id := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	seen := make(map[string]struct{})
	for nonce := 0; nonce < 256; nonce++ {
		c, err := SealCondition(id, uint8(nonce))
		require.NoError(t, err)
		seen[c.Address().String()] = struct{}{}
	}
	assert.Len(t, seen, 256, "every nonce derives a distinct identity")
}

func TestProposalCondition(t *testing.T) {
	a := ProposalCondition([]byte{1})
	b := ProposalCondition([]byte{2})

	assert.NoError(t, a.Validate())
	assert.False(t, a.Address().Equals(b.Address()))
}
