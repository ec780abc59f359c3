package multisig

import (
	"context"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/x"
)

type contextKey int // local to the multisig module

const (
	contextKeySeal contextKey = iota
)

// withSeal is a private method, as only the execution dispatcher of this
// module can act under a signing identity
func withSeal(ctx custodia.Context, seal custodia.Condition) custodia.Context {
	return context.WithValue(ctx, contextKeySeal, seal)
}

// Authenticate gets/sets permissions on the given context key
type Authenticate struct {
}

var _ x.Authenticator = Authenticate{}

// GetConditions returns permissions previously set on this context
func (a Authenticate) GetConditions(ctx custodia.Context) []custodia.Condition {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeySeal).(custodia.Condition)
	if val == nil {
		return nil
	}
	return []custodia.Condition{val}
}

// HasAddress returns true iff this address is in GetConditions
func (a Authenticate) HasAddress(ctx custodia.Context, addr custodia.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}
