package multisig

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/custodiatest"
	"github.com/custodia-net/custodia/errors"
)

func TestOwnerIndex(t *testing.T) {
	a := custodiatest.NewAddress()
	b := custodiatest.NewAddress()
	c := custodiatest.NewAddress()
	owners := []custodia.Address{a, b, c}

	idx, ok := OwnerIndex(owners, a)
	assert.True(t, ok)
	assert.Equal(t, uint(0), idx)

	idx, ok = OwnerIndex(owners, c)
	assert.True(t, ok)
	assert.Equal(t, uint(2), idx)

	_, ok = OwnerIndex(owners, custodiatest.NewAddress())
	assert.False(t, ok)
}

func TestOwnerIndexFirstMatchWins(t *testing.T) {
	a := custodiatest.NewAddress()
	owners := []custodia.Address{a, custodiatest.NewAddress(), a}

	idx, ok := OwnerIndex(owners, a)
	assert.True(t, ok)
	assert.Equal(t, uint(0), idx, "duplicate keys count once, at the first position")
}

func TestCountApprovalsAndThreshold(t *testing.T) {
	signers := newSigners(5)
	assert.Equal(t, uint64(0), CountApprovals(signers))
	assert.False(t, MeetsThreshold(signers, 1))

	signers.Set(1)
	signers.Set(3)
	assert.Equal(t, uint64(2), CountApprovals(signers))

	// setting the same bit twice does not double count
	signers.Set(3)
	assert.Equal(t, uint64(2), CountApprovals(signers))

	assert.True(t, MeetsThreshold(signers, 1))
	assert.True(t, MeetsThreshold(signers, 2))
	assert.False(t, MeetsThreshold(signers, 3))
}

func TestValidateThreshold(t *testing.T) {
	cases := map[string]struct {
		threshold uint64
		nOwners   int
		wantErr   *errors.Error
	}{
		"minimum":            {threshold: 1, nOwners: 1},
		"all owners":         {threshold: 3, nOwners: 3},
		"partial":            {threshold: 2, nOwners: 3},
		"zero":               {threshold: 0, nOwners: 3, wantErr: ErrInvalidThreshold},
		"above owner count":  {threshold: 4, nOwners: 3, wantErr: ErrInvalidThreshold},
		"no owners":          {threshold: 1, nOwners: 0, wantErr: ErrInvalidThreshold},
		"negative two's complement": {
			// BN(-1) from a loosely typed client arrives as max uint64.
			threshold: ^uint64(0),
			nOwners:   3,
			wantErr:   ErrInvalidThreshold,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := ValidateThreshold(tc.threshold, tc.nOwners)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, tc.wantErr.Is(err), "got %+v", err)
			}
		})
	}
}

func TestValidateOwners(t *testing.T) {
	a := custodiatest.NewAddress()
	b := custodiatest.NewAddress()

	assert.NoError(t, validateOwners([]custodia.Address{a, b}))

	err := validateOwners(nil)
	assert.True(t, ErrNotEnoughOwners.Is(err), "got %+v", err)

	err = validateOwners([]custodia.Address{a, b, a})
	assert.True(t, ErrDuplicateOwner.Is(err), "got %+v", err)

	err = validateOwners([]custodia.Address{a, custodia.Address([]byte("short"))})
	assert.Error(t, err)
}
