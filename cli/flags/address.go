// Package flags contains CLI flag types not provided by urfave/cli.
package flags

import (
	"flag"
	"strings"

	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/urfave/cli"
)

// Address is a wrapper for a Uint160 with flag.Value methods.
type Address struct {
	IsSet bool
	Value util.Uint160
}

// AddressFlag is a flag with type Uint160.
type AddressFlag struct {
	Name  string
	Usage string
	Value Address
}

var (
	_ flag.Value = (*Address)(nil)
	_ cli.Flag   = AddressFlag{}
)

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	return address.Uint160ToString(a.Value)
}

// Set implements the flag.Value interface.
func (a *Address) Set(s string) error {
	addr, err := ParseAddress(s)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	a.IsSet = true
	a.Value = addr
	return nil
}

// Uint160 returns the address value, callers must check IsSet first.
func (a *Address) Uint160() util.Uint160 {
	if !a.IsSet {
		panic("address was not set")
	}
	return a.Value
}

// IsSet checks if flag was set to a non-default value.
func (f AddressFlag) IsSet() bool {
	return f.Value.IsSet
}

// names splits a "long, l" flag name.
func names(name string) []string {
	res := strings.Split(name, ",")
	for i := range res {
		res[i] = strings.TrimSpace(res[i])
	}
	return res
}

// String implements the cli.Flag interface, it's used in help output.
func (f AddressFlag) String() string {
	var b strings.Builder
	for i, n := range names(f.Name) {
		if i > 0 {
			b.WriteString(", ")
		}
		dash := "--"
		if len(n) == 1 {
			dash = "-"
		}
		b.WriteString(dash + n + " value")
	}
	return b.String() + "\t" + f.Usage
}

// GetName returns the name of the flag.
func (f AddressFlag) GetName() string {
	return f.Name
}

// Apply implements the cli.Flag interface. f is a copy, so every flag set
// gets its own value shared by all aliases.
func (f AddressFlag) Apply(set *flag.FlagSet) {
	for _, n := range names(f.Name) {
		set.Var(&f.Value, n, f.Usage)
	}
}

// Get returns the address given in the context for the flag with the
// specified name. Nil is returned when the flag is not defined.
func Get(ctx *cli.Context, name string) *Address {
	a, _ := ctx.Generic(name).(*Address)
	return a
}

// ParseAddress parses a Uint160 from either an LE string or an address.
func ParseAddress(s string) (util.Uint160, error) {
	const uint160size = 2 * util.Uint160Size
	switch len(s) {
	case uint160size, uint160size + 2:
		return util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	default:
		return address.StringToUint160(s)
	}
}
