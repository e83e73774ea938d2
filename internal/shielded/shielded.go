// Package shielded derives shielded coin and encryption public keys from a
// 32-byte seed (spec.md §4.4). The derivation itself is not implementable
// from first principles — it must reproduce the pinned reference
// cryptography library bit-for-bit — so this package exposes only the
// interface boundary and a cgo bridge to that library; see
// native_cgo.go/native_nocgo.go.
package shielded

import (
	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/keys"
)

// PathAccount, PathRole and PathIndex are the fixed derivation coordinates
// spec.md §4.4 pins the shielded seed to: 44'/2400'/0'/3/0.
const (
	PathAccount = 0
	PathRole    = keys.RoleZswap
	PathIndex   = 0
)

// ShieldedKeys is the coin public key / encryption public key pair the
// native library derives from a shielded seed.
type ShieldedKeys struct {
	CoinPublicKey       [32]byte
	EncryptionPublicKey [32]byte
}

// KeyDeriver is the FFI boundary: an explicit interface the wallet core
// depends on, loaded once at process wiring time and handed to whichever
// component needs shielded keys (§9: "no hidden global state" extends to
// pinned-version cryptography artifacts).
type KeyDeriver interface {
	// DeriveShieldedKeys derives the shielded key pair for seed32, the
	// private scalar at path 44'/2400'/0'/3/0, zeroing the caller's seed32
	// buffer on every return path. NativeDeriver returns
	// CryptoDerivationMismatch when the native call reports failure; it does
	// not compare the library's version with a pin (CheckPinnedVersion
	// does that).
	DeriveShieldedKeys(seed32 *[32]byte) (ShieldedKeys, error)

	// Version reports the linked native library's version string, for
	// startup pinning checks.
	Version() string
}

// CheckPinnedVersion compares a deriver's reported version against the
// configured pin, returning a CryptoError of kind CryptoDerivationMismatch
// on drift. An empty pin skips the check.
func CheckPinnedVersion(d KeyDeriver, pinned string) error {
	if pinned == "" {
		return nil
	}
	if d.Version() != pinned {
		return &corerrors.CryptoError{
			Kind: corerrors.CryptoDerivationMismatch,
			Err:  &versionMismatchError{got: d.Version(), want: pinned},
		}
	}
	return nil
}

type versionMismatchError struct {
	got, want string
}

func (e *versionMismatchError) Error() string {
	return "shielded: native library version " + e.got + " does not match pinned version " + e.want
}
