//go:build cgo

// Bridges to the network's pinned native cryptography library, mirroring
// the teacher's internal/lib/exports.go cgo boundary but in the opposite
// direction: the teacher exports Go functions for a Rust host to call via
// libloading; here the wallet core is the host and the native library is a
// Rust cdylib it links against. Unlike the teacher's JSON envelope, this
// boundary passes fixed-size byte buffers (a 32-byte seed in, 64 bytes of
// keys out) and an int return code, since the payload shape never varies.
package shielded

/*
#cgo LDFLAGS: -lmidnight_onchain_crypto
#include <stdlib.h>

// derive_shielded_keys_ffi takes a 32-byte seed and writes 32+32 bytes of
// output (coin public key, encryption public key) into out, which must be
// at least 64 bytes. Returns 0 on success, non-zero on failure.
extern int derive_shielded_keys_ffi(const unsigned char *seed32, unsigned char *out64);

// midnight_crypto_version_ffi returns a NUL-terminated version string owned
// by the native library; the caller must not free it.
extern const char *midnight_crypto_version_ffi(void);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// NativeDeriver calls the pinned native cryptography library via cgo.
type NativeDeriver struct{}

// NewNativeDeriver returns the cgo-backed KeyDeriver. Requires the host
// process to be linked against libmidnight_onchain_crypto.
func NewNativeDeriver() *NativeDeriver { return &NativeDeriver{} }

func (d *NativeDeriver) DeriveShieldedKeys(seed32 *[32]byte) (keys ShieldedKeys, err error) {
	defer zeroize.Array32(seed32)

	seedPtr := (*C.uchar)(unsafe.Pointer(&seed32[0]))

	var out [64]byte
	outPtr := (*C.uchar)(unsafe.Pointer(&out[0]))

	rc := C.derive_shielded_keys_ffi(seedPtr, outPtr)
	if rc != 0 {
		return ShieldedKeys{}, &corerrors.CryptoError{
			Kind: corerrors.CryptoDerivationMismatch,
			Err:  fmt.Errorf("native derive_shielded_keys_ffi returned code %d", int(rc)),
		}
	}

	copy(keys.CoinPublicKey[:], out[0:32])
	copy(keys.EncryptionPublicKey[:], out[32:64])
	zeroize.Bytes(out[:])
	return keys, nil
}

func (d *NativeDeriver) Version() string {
	cstr := C.midnight_crypto_version_ffi()
	return C.GoString(cstr)
}
