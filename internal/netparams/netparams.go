// Package netparams generalizes the teacher's per-chain chaincfg.Params
// tables (internal/services/address/bitcoin.go, where each Bitcoin-like
// chain gets its own {PubKeyHashAddrID, ScriptHashAddrID, PrivateKeyID}
// table) into a single per-network-id table for this network's one address
// family: an HRP string plus the hardened BIP-44 purpose/coin-type pair.
package netparams

import "fmt"

// Params describes one network's derivation and address parameters.
type Params struct {
	// Name is the network id as used in configuration ("testnet", "mainnet").
	Name string

	// HRP is the human-readable prefix family for unshielded addresses,
	// e.g. "mn_addr_testnet".
	HRP string

	// Purpose and CoinType are the first two hardened derivation indices
	// (spec.md §4.2: 44'/2400'/account'/role/index).
	Purpose  uint32
	CoinType uint32
}

const (
	Purpose  uint32 = 44
	CoinType uint32 = 2400
)

var (
	TestnetParams = Params{
		Name:     "testnet",
		HRP:      "mn_addr_testnet",
		Purpose:  Purpose,
		CoinType: CoinType,
	}

	MainnetParams = Params{
		Name:     "mainnet",
		HRP:      "mn_addr_mainnet",
		Purpose:  Purpose,
		CoinType: CoinType,
	}
)

// ByNetworkID looks up the Params for a configured network id.
func ByNetworkID(id string) (Params, error) {
	switch id {
	case "testnet":
		return TestnetParams, nil
	case "mainnet":
		return MainnetParams, nil
	default:
		return Params{}, fmt.Errorf("netparams: unknown network id %q", id)
	}
}
