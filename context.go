package custodia

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/custodia-net/custodia/errors"
)

// Context contains the request-scoped state passed between app,
// middleware, and handlers. Each extension, such as the multisig engine,
// may add its own keys to enrich the context with specific data.
type Context = context.Context

type contextKey int

const (
	contextKeyHeight contextKey = iota
	contextKeyChainID
	contextKeyLogger
)

// DefaultLogger is used for all contexts that have not
// set anything themselves
var DefaultLogger = log.NewNopLogger()

// WithHeight sets the block height into the Context.
// Must not be called with height set (panics on duplicate setting).
func WithHeight(ctx Context, height int64) Context {
	if _, ok := GetHeight(ctx); ok {
		panic("height already set")
	}
	return context.WithValue(ctx, contextKeyHeight, height)
}

// GetHeight returns the current block height and true, if set.
func GetHeight(ctx Context) (int64, bool) {
	val, ok := ctx.Value(contextKeyHeight).(int64)
	return val, ok
}

// WithChainID sets the chain id into the Context.
func WithChainID(ctx Context, chainID string) Context {
	if ctx.Value(contextKeyChainID) != nil {
		panic("chain id already set")
	}
	return context.WithValue(ctx, contextKeyChainID, chainID)
}

// GetChainID returns the chain id from the context, or an error when
// not set.
func GetChainID(ctx Context) (string, error) {
	val, ok := ctx.Value(contextKeyChainID).(string)
	if !ok {
		return "", errors.Wrap(errors.ErrState, "chain id not set")
	}
	return val, nil
}

// WithLogger sets the logger for this Context.
func WithLogger(ctx Context, logger log.Logger) Context {
	// Logger can be overridden, so no checks.
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the currently set logger, or
// DefaultLogger if none was set
func GetLogger(ctx Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok {
		return DefaultLogger
	}
	return val
}
