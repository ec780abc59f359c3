/*
Package multisig implements an m-of-n authorization engine.

A multisig record binds an ordered owner set, an approval threshold and a
nonce from which the signing identity of the record is derived. Owners
stage work as proposals: an ordered batch of instructions addressed to
other handlers. Once enough owners approved a proposal, any owner can
execute it. Execution dispatches every instruction under the multisig
signing identity inside one cache wrap, so either all instructions apply
or none do. Executed and cancelled proposals are closed: their storage is
released and the rent deposit is refunded.

Changing the multisig configuration is itself an instruction dispatch:
the configuration handlers accept only calls authorized by the signing
identity, so owners rotate themselves by proposing, approving and
executing a call back into this package.
*/
package multisig
