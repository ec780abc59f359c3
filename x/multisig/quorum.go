package multisig

import (
	"github.com/willf/bitset"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// OwnerIndex returns the position of the given address in the owner
// set. Linear search, first match wins.
func OwnerIndex(owners []custodia.Address, addr custodia.Address) (uint, bool) {
	for i, o := range owners {
		if o.Equals(addr) {
			return uint(i), true
		}
	}
	return 0, false
}

// CountApprovals returns the number of owners that approved.
func CountApprovals(signers *bitset.BitSet) uint64 {
	return uint64(signers.Count())
}

// MeetsThreshold returns true if the approvals reach the threshold.
func MeetsThreshold(signers *bitset.BitSet, threshold uint64) bool {
	return CountApprovals(signers) >= threshold
}

// ValidateThreshold ensures a threshold is usable with an owner set of
// the given size. A threshold of zero would release the custody without
// any approval, one above the owner count could never be reached.
func ValidateThreshold(threshold uint64, nOwners int) error {
	if threshold == 0 || threshold > uint64(nOwners) {
		return errors.Wrapf(ErrInvalidThreshold,
			"threshold %d with %d owners", threshold, nOwners)
	}
	return nil
}

// newSigners returns an empty approval bitmap for an owner set of the
// given size.
func newSigners(nOwners int) *bitset.BitSet {
	return bitset.New(uint(nOwners))
}

// validateOwners runs the static checks shared by create and rotate:
// the set must not be empty, all addresses must be well formed and no
// key may appear twice.
func validateOwners(owners []custodia.Address) error {
	if len(owners) == 0 {
		return errors.Wrap(ErrNotEnoughOwners, "no owners")
	}
	seen := make(map[string]struct{}, len(owners))
	for i, o := range owners {
		if err := o.Validate(); err != nil {
			return errors.Wrapf(err, "owner #%d", i)
		}
		if _, ok := seen[string(o)]; ok {
			return errors.Wrapf(ErrDuplicateOwner, "owner #%d", i)
		}
		seen[string(o)] = struct{}{}
	}
	return nil
}
