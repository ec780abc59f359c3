package cash

import (
	"github.com/tendermint/go-amino"
)

// cdc serializes everything this package persists or routes.
var cdc = amino.NewCodec()

func init() {
	RegisterAmino(cdc)
	cdc.RegisterConcrete(&Balance{}, "cash/Balance", nil)
}

// RegisterAmino registers all messages of this package with the given
// codec, so they can travel as instruction payloads between extensions.
func RegisterAmino(c *amino.Codec) {
	c.RegisterConcrete(&SendMsg{}, "cash/SendMsg", nil)
}
