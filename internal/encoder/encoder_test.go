package encoder

import (
	"math/big"

	"github.com/shielded-utxo/walletcore/internal/assembler"
)

// fakeEncoder is a deterministic stand-in for the pinned native codec,
// exercising this package's plumbing without a cgo build — analogous to
// internal/shielded's fakeDeriver. It canonicalizes the offer exactly as a
// real Encoder must, then derives fixed-length placeholder bytes from the
// canonicalized shape so tests can assert on size-dependent behavior (the
// fee flow) without depending on the real wire format.
type fakeEncoder struct {
	bytesPerInput  int
	bytesPerOutput int
}

func (f *fakeEncoder) sizeOf(intent *assembler.Intent, withDust bool) int {
	canonicalizeOffer(intent.GuaranteedOffer)
	offer := intent.GuaranteedOffer
	size := len(offer.Inputs)*f.bytesPerInput + len(offer.Outputs)*f.bytesPerOutput
	if withDust && intent.DustActions != nil {
		size += len(intent.DustActions.Spends) * 64
	}
	return size
}

func (f *fakeEncoder) Encode(intent *assembler.Intent) ([]byte, error) {
	return make([]byte, f.sizeOf(intent, false)), nil
}

func (f *fakeEncoder) EncodeWithDust(intent *assembler.Intent) ([]byte, error) {
	return make([]byte, f.sizeOf(intent, true)), nil
}

func (f *fakeEncoder) CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error) {
	canonicalizeOffer(intent.GuaranteedOffer)
	msgs := make([][]byte, len(intent.GuaranteedOffer.Inputs))
	for i := range msgs {
		msgs[i] = []byte{byte(i)}
	}
	return msgs, nil
}

func (f *fakeEncoder) Version() string { return "fake" }

var _ Encoder = (*fakeEncoder)(nil)

func sampleIntent() *assembler.Intent {
	return &assembler.Intent{
		GuaranteedOffer: &assembler.UnshieldedOffer{
			Inputs: []assembler.UtxoSpend{
				{IntentHash: [32]byte{1}, OutputIndex: 0, Value: big.NewInt(100)},
			},
			Outputs: []assembler.UtxoOutput{
				{Value: big.NewInt(100), OwnerAddress: [32]byte{2}},
			},
		},
	}
}
