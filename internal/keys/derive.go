// Package keys implements hierarchical deterministic derivation along
// 44'/2400'/account'/role/index (spec.md §4.2), generalizing the teacher's
// internal/services/hdkey.HDKeyService — which parsed an arbitrary
// string path like "m/44'/0'/0'/0/0" for many different coins — into a
// fixed-shape, single-coin derivation that also hands back the x-only
// public key BIP-340 signing needs instead of the compressed form the
// teacher's GetPublicKey returns.
package keys

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/shielded-utxo/walletcore/internal/netparams"
	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// DerivedKey is a single node's key material: a 32-byte private scalar, its
// 32-byte x-only public key, and the chain code that would derive further
// children. Holder exclusively owns all three fields; Clear zeroes them.
type DerivedKey struct {
	Private     [32]byte
	PublicXOnly [32]byte
	ChainCode   [32]byte
}

// Clear zeroes all key material. Safe to call multiple times.
func (k *DerivedKey) Clear() {
	zeroize.Array32(&k.Private)
	zeroize.Array32(&k.PublicXOnly)
	zeroize.Array32(&k.ChainCode)
}

// Tree derives the 44'/2400'/account'/role/index hierarchy from one master
// seed. It tracks every extended key it creates along the way so that
// Clear zeroes the whole subtree's key material in one call, matching
// spec.md §3's invariant that clearing an intermediate node zeroes the
// entire subtree.
type Tree struct {
	seed  []byte
	nodes []*hdkeychain.ExtendedKey
}

// NewTree derives the master extended key from a 64-byte seed. The caller
// must call Clear when done with the tree (and everything it derived).
func NewTree(seed []byte) (*Tree, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, fmt.Errorf("keys: seed must be between 16 and 64 bytes, got %d", len(seed))
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("keys: failed to create master key: %w", err)
	}

	seedCopy := make([]byte, len(seed))
	copy(seedCopy, seed)

	return &Tree{
		seed:  seedCopy,
		nodes: []*hdkeychain.ExtendedKey{master},
	}, nil
}

// Derive walks 44'/2400'/account'/role/index from the master key and
// returns the leaf's key material. account is hardened per spec.md §4.2;
// role and index are not.
func (t *Tree) Derive(account uint32, role Role, index uint32) (DerivedKey, error) {
	current := t.nodes[0]

	path := []uint32{
		hardened(netparams.Purpose),
		hardened(netparams.CoinType),
		hardened(account),
		uint32(role),
		index,
	}

	for _, childIndex := range path {
		child, err := current.Derive(childIndex)
		if err != nil {
			return DerivedKey{}, fmt.Errorf("keys: failed to derive child at index %d: %w", childIndex, err)
		}
		t.nodes = append(t.nodes, child)
		current = child
	}

	privKey, err := current.ECPrivKey()
	if err != nil {
		return DerivedKey{}, fmt.Errorf("keys: failed to extract private key: %w", err)
	}
	pubKey, err := current.ECPubKey()
	if err != nil {
		return DerivedKey{}, fmt.Errorf("keys: failed to extract public key: %w", err)
	}

	var derived DerivedKey
	copy(derived.Private[:], privKey.Serialize())
	compressed := pubKey.SerializeCompressed()
	copy(derived.PublicXOnly[:], compressed[1:33])
	copy(derived.ChainCode[:], current.ChainCode())

	zeroize.Bytes(compressed)

	return derived, nil
}

// Clear zeroes the master seed and every extended key node derived so far,
// including intermediate nodes never returned to the caller as a
// DerivedKey.
func (t *Tree) Clear() {
	zeroize.Bytes(t.seed)
	for _, node := range t.nodes {
		if node != nil {
			node.Zero()
		}
	}
	t.nodes = nil
}

func hardened(index uint32) uint32 {
	return hdkeychain.HardenedKeyStart + index
}
