package encoder

import (
	"encoding/hex"

	"github.com/shielded-utxo/walletcore/internal/assembler"
)

// wireIntent is the JSON payload marshaled across the cgo boundary,
// following the teacher's exports.go convention (caller marshals a request
// struct; hex for fixed-size byte arrays, decimal strings for arbitrary
// precision amounts since JSON numbers cannot carry them losslessly).
type wireIntent struct {
	Inputs    []wireInput  `json:"inputs"`
	Outputs   []wireOutput `json:"outputs"`
	TTLUnixMs int64        `json:"ttl_unix_ms"`
	Dust      *wireDust    `json:"dust,omitempty"`
}

type wireInput struct {
	IntentHash     string `json:"intent_hash"`
	OutputIndex    uint32 `json:"output_index"`
	Value          string `json:"value"`
	OwnerPublicKey string `json:"owner_public_key"`
	Signature      string `json:"signature,omitempty"`
}

type wireOutput struct {
	Value        string `json:"value"`
	OwnerAddress string `json:"owner_address"`
	TokenType    string `json:"token_type"`
}

type wireDust struct {
	Spends []wireDustSpend `json:"spends"`
}

type wireDustSpend struct {
	OldNullifier  string `json:"old_nullifier"`
	NewCommitment string `json:"new_commitment"`
	FeeAmount     string `json:"fee_amount"`
	ProofPreimage string `json:"proof_preimage"`
}

// toWireIntent canonicalizes offer's order as a side effect, then builds the
// JSON payload for the native encode/signing-message calls.
func toWireIntent(intent *assembler.Intent) wireIntent {
	canonicalizeOffer(intent.GuaranteedOffer)

	offer := intent.GuaranteedOffer
	w := wireIntent{
		Inputs:    make([]wireInput, len(offer.Inputs)),
		Outputs:   make([]wireOutput, len(offer.Outputs)),
		TTLUnixMs: intent.TTL.UnixMilli(),
	}
	for i, in := range offer.Inputs {
		wi := wireInput{
			IntentHash:     hex.EncodeToString(in.IntentHash[:]),
			OutputIndex:    in.OutputIndex,
			Value:          in.Value.String(),
			OwnerPublicKey: hex.EncodeToString(in.OwnerPublicKey[:]),
		}
		if in.Signature != nil {
			wi.Signature = hex.EncodeToString(in.Signature[:])
		}
		w.Inputs[i] = wi
	}
	for i, out := range offer.Outputs {
		w.Outputs[i] = wireOutput{
			Value:        out.Value.String(),
			OwnerAddress: hex.EncodeToString(out.OwnerAddress[:]),
			TokenType:    hex.EncodeToString(out.TokenType[:]),
		}
	}
	if intent.DustActions != nil {
		wd := &wireDust{Spends: make([]wireDustSpend, len(intent.DustActions.Spends))}
		for i, s := range intent.DustActions.Spends {
			wd.Spends[i] = wireDustSpend{
				OldNullifier:  hex.EncodeToString(s.OldNullifier[:]),
				NewCommitment: hex.EncodeToString(s.NewCommitment[:]),
				FeeAmount:     s.FeeAmount.String(),
				ProofPreimage: hex.EncodeToString(s.ProofPreimage),
			}
		}
		w.Dust = wd
	}
	return w
}

// decodeHexData strips an optional 0x prefix and decodes hex; the cgo
// NativeEncoder uses it to decode the native library's hex responses.
func decodeHexData(s string) ([]byte, error) {
	s = trimHexPrefix(s)
	return hex.DecodeString(s)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
