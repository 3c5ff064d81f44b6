/*
Package netmode contains network magic values used to separate bridge
deployments. The magic is a part of every signed invocation.
*/
package netmode

import "strconv"

const (
	// MainNet is the magic of the production deployment.
	MainNet Magic = 0x334f454e
	// TestNet is the magic of the public test deployment.
	TestNet Magic = 0x3554334e
	// PrivNet is the magic of local private deployments.
	PrivNet Magic = 56753
	// UnitTestNet is a stub magic code used for testing purposes.
	UnitTestNet Magic = 42
)

// Magic describes the network the bridge operates in. It also selects the
// protocol.<network>.yml config file.
type Magic uint32

// String implements the stringer interface.
func (n Magic) String() string {
	switch n {
	case PrivNet:
		return "privnet"
	case TestNet:
		return "testnet"
	case MainNet:
		return "mainnet"
	case UnitTestNet:
		return "unit_testnet"
	default:
		return "net 0x" + strconv.FormatUint(uint64(n), 16)
	}
}
