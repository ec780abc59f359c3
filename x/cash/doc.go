/*
Package cash keeps track of lamport balances.

Every address owns at most one wallet. Wallets are created on first
credit and removed when drained. The Controller moves lamports between
wallets and is the integration point for other extensions: the multisig
engine charges proposal rent through it and refunds the freed lamports
on close.

The send handler exposes a plain transfer operation, which also serves as
the canonical downstream program dispatched by executed proposals.
*/
package cash
