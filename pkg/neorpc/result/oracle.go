package result

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// Oracle is the result of getoracle call.
type Oracle struct {
	Address    string       `json:"address"`
	ScriptHash util.Uint160 `json:"scripthash"`
}

// Query is the result of registerquery and per-operation calls.
type Query struct {
	ID util.Uint256 `json:"id"`
}
