package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/custodiatest"
	"github.com/custodia-net/custodia/store"
)

// tagger is a decorator that appends its name to the context so the
// order of execution can be observed.
type tagger struct {
	name string
	seen *[]string
}

var _ custodia.Decorator = tagger{}

func (d tagger) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx, next custodia.Checker) (*custodia.CheckResult, error) {
	*d.seen = append(*d.seen, d.name)
	return next.Check(ctx, db, tx)
}

func (d tagger) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx, next custodia.Deliverer) (*custodia.DeliverResult, error) {
	*d.seen = append(*d.seen, d.name)
	return next.Deliver(ctx, db, tx)
}

func TestChainDecoratorsOrder(t *testing.T) {
	var seen []string
	h := &custodiatest.Handler{}

	stack := ChainDecorators(
		tagger{name: "first", seen: &seen},
		nil, // nils are silently dropped
		tagger{name: "second", seen: &seen},
	).WithHandler(h)

	_, err := stack.Deliver(context.Background(), store.MemStore(), &custodiatest.Tx{})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, 1, h.DeliverCallCount())
}
