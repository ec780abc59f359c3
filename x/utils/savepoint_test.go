package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-net/custodia"
	"github.com/custodia-net/custodia/custodiatest"
	"github.com/custodia-net/custodia/errors"
	"github.com/custodia-net/custodia/store"
)

// writeHandler writes one key and then optionally fails.
type writeHandler struct {
	key, value []byte
	err        error
}

var _ custodia.Handler = writeHandler{}

func (h writeHandler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &custodia.CheckResult{}, h.err
}

func (h writeHandler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &custodia.DeliverResult{}, h.err
}

func TestSavepointRollsBackOnError(t *testing.T) {
	boom := errors.ErrState.New("boom")
	h := writeHandler{key: []byte("k"), value: []byte("v"), err: boom}
	stack := NewSavepoint().OnDeliver()

	db := store.MemStore()
	_, err := stack.Deliver(context.Background(), db, &custodiatest.Tx{}, h)
	assert.True(t, errors.ErrState.Is(err))

	got, gerr := db.Get([]byte("k"))
	require.NoError(t, gerr)
	assert.Nil(t, got, "failed delivery must not leak writes")
}

func TestSavepointCommitsOnSuccess(t *testing.T) {
	h := writeHandler{key: []byte("k"), value: []byte("v")}
	stack := NewSavepoint().OnDeliver()

	db := store.MemStore()
	_, err := stack.Deliver(context.Background(), db, &custodiatest.Tx{}, h)
	require.NoError(t, err)

	got, gerr := db.Get([]byte("k"))
	require.NoError(t, gerr)
	assert.Equal(t, []byte("v"), got)
}

func TestSavepointOnlyWhenEnabled(t *testing.T) {
	boom := errors.ErrState.New("boom")
	h := writeHandler{key: []byte("k"), value: []byte("v"), err: boom}
	// Deliver-only savepoint leaves Check untouched.
	stack := NewSavepoint().OnDeliver()

	db := store.MemStore()
	_, err := stack.Check(context.Background(), db, &custodiatest.Tx{}, h)
	assert.True(t, errors.ErrState.Is(err))

	got, gerr := db.Get([]byte("k"))
	require.NoError(t, gerr)
	assert.Equal(t, []byte("v"), got, "check without savepoint writes through")
}

func TestRecoveryTurnsPanicIntoError(t *testing.T) {
	h := &custodiatest.Handler{}
	stack := NewRecovery()

	db := store.MemStore()
	_, err := stack.Deliver(context.Background(), db, &custodiatest.Tx{}, panicHandler{})
	assert.True(t, errors.ErrPanic.Is(err), "got %+v", err)

	_, err = stack.Deliver(context.Background(), db, &custodiatest.Tx{}, h)
	assert.NoError(t, err)
}

type panicHandler struct{}

var _ custodia.Handler = panicHandler{}

func (panicHandler) Check(custodia.Context, custodia.KVStore, custodia.Tx) (*custodia.CheckResult, error) {
	panic("check panic")
}

func (panicHandler) Deliver(custodia.Context, custodia.KVStore, custodia.Tx) (*custodia.DeliverResult, error) {
	panic("deliver panic")
}
