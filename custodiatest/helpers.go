package custodiatest

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/custodia-net/custodia"
)

var condCounter uint64

// NewCondition returns a mock condition. Each call returns a different
// value. Useful to create unique identities in tests.
func NewCondition() custodia.Condition {
	n := atomic.AddUint64(&condCounter, 1)
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, n)
	return custodia.NewCondition("mock", "cond", data)
}

// NewAddress returns the address of a new mock condition. Each call
// returns a different value.
func NewAddress() custodia.Address {
	return NewCondition().Address()
}

// Handler implements a mock custodia.Handler. Register it on a router to
// observe and script message deliveries.
type Handler struct {
	// CheckResult is returned by Check if CheckErr is nil.
	CheckResult custodia.CheckResult
	// CheckErr if set is returned by every Check call.
	CheckErr error

	// DeliverResult is returned by Deliver if DeliverErr is nil.
	DeliverResult custodia.DeliverResult
	// DeliverErr if set is returned by every Deliver call.
	DeliverErr error

	checkCall   uint64
	deliverCall uint64
}

var _ custodia.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.CheckResult, error) {
	atomic.AddUint64(&h.checkCall, 1)
	if h.CheckErr != nil {
		return nil, h.CheckErr
	}
	res := h.CheckResult
	return &res, nil
}

func (h *Handler) Deliver(ctx custodia.Context, db custodia.KVStore, tx custodia.Tx) (*custodia.DeliverResult, error) {
	atomic.AddUint64(&h.deliverCall, 1)
	if h.DeliverErr != nil {
		return nil, h.DeliverErr
	}
	res := h.DeliverResult
	return &res, nil
}

// CheckCallCount returns the number of times Check was called.
func (h *Handler) CheckCallCount() int {
	return int(atomic.LoadUint64(&h.checkCall))
}

// DeliverCallCount returns the number of times Deliver was called.
func (h *Handler) DeliverCallCount() int {
	return int(atomic.LoadUint64(&h.deliverCall))
}

// CallCount returns the total number of times Check and Deliver were
// called.
func (h *Handler) CallCount() int {
	return h.CheckCallCount() + h.DeliverCallCount()
}
