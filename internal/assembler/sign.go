package assembler

import (
	"fmt"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/signer"
)

// SigningMessages produces the canonical per-input signing message for an
// intent's guaranteed offer, already ordered to match the bytes the encoder
// will eventually emit. Only the encoder knows the canonical sort (spec.md
// §4.7, §4.10), so the assembler depends on this narrow interface rather
// than importing the encoder package directly, keeping the dependency
// pointed the way spec.md's layering implies: encoder below assembler.
type SigningMessages interface {
	// CanonicalSigningMessages returns one message per input, in the order
	// the encoder's canonical sort will place them — the same order Sign
	// must produce signatures in.
	CanonicalSigningMessages(intent *Intent) ([][]byte, error)
}

// Sign derives the signing key externally and passes it in per input: each
// input in the guaranteed offer may be owned by a different key in
// principle (though build_transfer only ever reserves rows under one
// sender), so the caller supplies a keyLookup resolving a public key to its
// matching private scalar. keyLookup returns a pointer so Signer.Sign can
// zero the caller's own buffer, not a copy, on every return path.
func Sign(intent *Intent, messages SigningMessages, s signer.Signer, keyLookup func(ownerPublicKey [32]byte) (*[32]byte, error)) (*SignedIntent, error) {
	if intent.GuaranteedOffer == nil {
		return nil, fmt.Errorf("assembler: cannot sign an intent with no guaranteed offer")
	}
	offer := intent.GuaranteedOffer

	digests, err := messages.CanonicalSigningMessages(intent)
	if err != nil {
		return nil, fmt.Errorf("assembler: computing canonical signing messages: %w", err)
	}
	if len(digests) != len(offer.Inputs) {
		return nil, fmt.Errorf("assembler: encoder returned %d signing messages for %d inputs", len(digests), len(offer.Inputs))
	}

	signatures := make([][64]byte, len(offer.Inputs))
	for i, input := range offer.Inputs {
		sk, err := keyLookup(input.OwnerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("assembler: resolving signing key for input %d: %w", i, err)
		}
		sig, err := s.Sign(sk, digests[i], false)
		if err != nil {
			return nil, &corerrors.CryptoError{Kind: corerrors.CryptoSigning, Err: err}
		}
		signatures[i] = sig
		sigCopy := sig
		offer.Inputs[i].Signature = &sigCopy
	}

	offer.Signatures = signatures
	return &SignedIntent{Intent: intent}, nil
}
