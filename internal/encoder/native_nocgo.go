//go:build !cgo

package encoder

import (
	"crypto/sha256"
	"encoding/json"
	"errors"

	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// NativeEncoder is unavailable in a cgo-free build; builds that need the
// real, bit-for-bit canonical wire encoding must enable cgo and link the
// pinned native codec library, exactly as internal/shielded.NativeDeriver
// requires. ReferenceEncoder below is the cgo-free stand-in used for
// testing and local wiring: its output is a deterministic canonicalization
// of the same wireIntent payload the cgo build would send over the FFI
// boundary, not the network's actual canonical wire format.
type NativeEncoder struct{}

func NewNativeEncoder() *NativeEncoder { return &NativeEncoder{} }

var errCgoDisabled = errors.New("encoder: native canonical encoding requires a cgo build linked against the pinned codec library")

func (e *NativeEncoder) Encode(intent *assembler.Intent) ([]byte, error) {
	return nil, errCgoDisabled
}

func (e *NativeEncoder) EncodeWithDust(intent *assembler.Intent) ([]byte, error) {
	return nil, errCgoDisabled
}

func (e *NativeEncoder) CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error) {
	return nil, errCgoDisabled
}

func (e *NativeEncoder) Version() string { return "" }

// ReferenceEncoder is a reference-model Encoder for tests and cgo-free
// wiring: it canonicalizes the intent's offer exactly as the cgo build
// would, then derives its output from the resulting wireIntent JSON with
// SHA-256: Encode/EncodeWithDust return the digest of the whole payload
// followed by the payload itself, and CanonicalSigningMessages returns one
// digest per input over the payload plus the input index. This is NOT the network's actual
// canonical wire format — only the real native codec produces
// chain-accepted bytes — but it is stable, deterministic, and sufficient to
// exercise every caller of the Encoder interface (assembler.Sign, the
// submitter's two-pass fee flow) without a cgo toolchain.
type ReferenceEncoder struct{}

func NewReferenceEncoder() *ReferenceEncoder { return &ReferenceEncoder{} }

func (e *ReferenceEncoder) Encode(intent *assembler.Intent) ([]byte, error) {
	return e.encode(intent, false)
}

func (e *ReferenceEncoder) EncodeWithDust(intent *assembler.Intent) ([]byte, error) {
	return e.encode(intent, true)
}

func (e *ReferenceEncoder) encode(intent *assembler.Intent, withDust bool) ([]byte, error) {
	payload := toWireIntent(intent)
	if !withDust {
		payload.Dust = nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: err}
	}
	sum := sha256.Sum256(body)
	out := make([]byte, 0, len(sum)+len(body))
	out = append(out, sum[:]...)
	out = append(out, body...)
	return out, nil
}

func (e *ReferenceEncoder) CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error) {
	payload := toWireIntent(intent)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: err}
	}

	messages := make([][]byte, len(intent.GuaranteedOffer.Inputs))
	for i := range messages {
		h := sha256.New()
		h.Write(body)
		h.Write([]byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)})
		sum := h.Sum(nil)
		messages[i] = sum
	}
	return messages, nil
}

func (e *ReferenceEncoder) Version() string { return "reference-nocgo" }

var (
	_ assembler.SigningMessages = (*NativeEncoder)(nil)
	_ assembler.SigningMessages = (*ReferenceEncoder)(nil)
)

// Default returns the build's canonical Encoder: ReferenceEncoder here,
// since NativeEncoder.Encode always fails without cgo.
func Default() Encoder { return NewReferenceEncoder() }
