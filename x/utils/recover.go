package utils

import (
	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/errors"
)

// Recovery is a decorator to recover from panics in transactions,
// so we can log them as errors
type Recovery struct{}

var _ custodia.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (r Recovery) Check(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx, next custodia.Checker) (_ *custodia.CheckResult, err error) {
	defer errors.Recover(&err)
	return next.Check(ctx, store, tx)
}

// Deliver turns panics into normal errors
func (r Recovery) Deliver(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx, next custodia.Deliverer) (_ *custodia.DeliverResult, err error) {
	defer errors.Recover(&err)
	return next.Deliver(ctx, store, tx)
}
