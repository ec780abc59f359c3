// Package x holds the interfaces shared by all extensions, most notably
// the Authenticator used to resolve which conditions authorized the
// current call.
package x

import (
	"github.com/custodia-net/custodia"
)

// Authenticator is an interface we can use to extract authentication info
// from the context. This should be passed into the constructor of
// handlers, so we can plug in another authentication system,
// rather than hard-coding one implementation for all extensions.
type Authenticator interface {
	// GetConditions reveals all Conditions fulfilled,
	// you may want GetAddresses helper
	GetConditions(custodia.Context) []custodia.Condition
	// HasAddress checks if any condition matches this address
	HasAddress(custodia.Context, custodia.Address) bool
}

// MultiAuth chains together many Authenticators into one
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

// ChainAuth groups together a series of Authenticator
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls}
}

// GetConditions combines all Conditions from all Authenticators
func (m MultiAuth) GetConditions(ctx custodia.Context) []custodia.Condition {
	var res []custodia.Condition
	for _, impl := range m.impls {
		add := impl.GetConditions(ctx)
		if len(add) > 0 {
			res = append(res, add...)
		}
	}
	return res
}

// HasAddress returns true iff any Authenticator supports this
func (m MultiAuth) HasAddress(ctx custodia.Context, addr custodia.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// GetAddresses wraps the GetConditions method of any Authenticator
func GetAddresses(ctx custodia.Context, auth Authenticator) []custodia.Address {
	perms := auth.GetConditions(ctx)
	addrs := make([]custodia.Address, len(perms))
	for i, p := range perms {
		addrs[i] = p.Address()
	}
	return addrs
}

// MainSigner returns the first condition if any, otherwise nil
func MainSigner(ctx custodia.Context, auth Authenticator) custodia.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// HasAllAddresses returns true if all elements in required are
// also in context.
func HasAllAddresses(ctx custodia.Context, auth Authenticator, required []custodia.Address) bool {
	for _, r := range required {
		if !auth.HasAddress(ctx, r) {
			return false
		}
	}
	return true
}

// HasNAddresses returns true if at least n elements in requested are
// also in context.
func HasNAddresses(ctx custodia.Context, auth Authenticator, requested []custodia.Address, n int) bool {
	// Special case: is this an error???
	if n <= 0 {
		return true
	}
	var count int
	for _, r := range requested {
		if auth.HasAddress(ctx, r) {
			count++
			if count >= n {
				return true
			}
		}
	}
	return false
}
