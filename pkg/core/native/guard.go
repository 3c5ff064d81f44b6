package native

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// ErrUnauthorized is returned when a query is fulfilled by someone other than
// the oracle.
var ErrUnauthorized = errors.New("unauthorized")

// Guard allows fulfillment to a single oracle identity fixed at creation.
type Guard struct {
	oracle util.Uint160
}

// NewGuard creates a guard for the given oracle identity.
func NewGuard(oracle util.Uint160) *Guard {
	return &Guard{oracle: oracle}
}

// Oracle returns the authorized identity.
func (g *Guard) Oracle() util.Uint160 {
	return g.oracle
}

// Check returns ErrUnauthorized unless caller is the oracle.
func (g *Guard) Check(caller util.Uint160) error {
	if !caller.Equals(g.oracle) {
		return fmt.Errorf("%w: %s is not the oracle", ErrUnauthorized, address.Uint160ToString(caller))
	}
	return nil
}
