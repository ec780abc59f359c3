package utils

import (
	"time"

	"github.com/custodia-net/custodia"
)

// Logging is a decorator to log messages as they pass through
type Logging struct{}

var _ custodia.Decorator = Logging{}

// NewLogging creates a Logging decorator
func NewLogging() Logging {
	return Logging{}
}

// Check logs error -> info, success -> debug
func (r Logging) Check(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx, next custodia.Checker) (*custodia.CheckResult, error) {
	start := time.Now()
	res, err := next.Check(ctx, store, tx)
	var resLog string
	if err == nil {
		resLog = res.Log
	}
	logDuration(ctx, start, custodia.GetPath(tx), resLog, err, true)
	return res, err
}

// Deliver logs error -> error, success -> info
func (r Logging) Deliver(ctx custodia.Context, store custodia.KVStore, tx custodia.Tx, next custodia.Deliverer) (*custodia.DeliverResult, error) {
	start := time.Now()
	res, err := next.Deliver(ctx, store, tx)
	var resLog string
	if err == nil {
		resLog = res.Log
	}
	logDuration(ctx, start, custodia.GetPath(tx), resLog, err, false)
	return res, err
}

// logDuration writes information about the time and result to the logger
func logDuration(ctx custodia.Context, start time.Time, path, msg string, err error, lowPrio bool) {
	delta := time.Now().Sub(start)
	logger := custodia.GetLogger(ctx).With("path", path, "duration", delta/time.Microsecond)

	if err != nil {
		logger = logger.With("err", err)
		if lowPrio {
			logger.Info(msg)
		} else {
			logger.Error(msg)
		}
		return
	}
	if lowPrio {
		logger.Debug(msg)
	} else {
		logger.Info(msg)
	}
}
