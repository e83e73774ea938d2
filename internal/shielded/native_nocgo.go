//go:build !cgo

package shielded

import (
	"errors"

	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// NativeDeriver is unavailable in a cgo-free build. Builds that need real
// shielded-key derivation must enable cgo and link the pinned native
// cryptography library; this stub keeps the package importable (and its
// interfaces testable with a fake) from pure-Go build environments.
type NativeDeriver struct{}

func NewNativeDeriver() *NativeDeriver { return &NativeDeriver{} }

var errCgoDisabled = errors.New("shielded: native key derivation requires a cgo build linked against the pinned cryptography library")

func (d *NativeDeriver) DeriveShieldedKeys(seed32 *[32]byte) (ShieldedKeys, error) {
	defer zeroize.Array32(seed32)
	return ShieldedKeys{}, errCgoDisabled
}

func (d *NativeDeriver) Version() string { return "" }
