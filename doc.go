/*
Package custodia defines the common interfaces that tie the repository
together: conditions and addresses, messages and transactions, handlers
and decorators, and the key-value storage contracts.

The packages build on each other bottom up. The kernel packages errors,
store, orm and app provide coded errors, an atomically cache-wrappable
key-value store, prefixed record buckets and message routing. The x
namespace holds the extensions: x/multisig is the m-of-n authorization
engine and x/cash the lamport ledger it charges rent against.

All state transitions happen through handlers. A handler receives a
context carrying the authorization conditions of the caller, a store to
mutate and the transaction holding the message. Errors abort the whole
transaction; the caller is expected to run every delivery inside a cache
wrap and discard it on failure.
*/
package custodia
