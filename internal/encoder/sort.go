package encoder

import (
	"bytes"
	"sort"

	"github.com/shielded-utxo/walletcore/internal/assembler"
)

// canonicalizeOffer sorts offer's inputs and outputs in place, deterministic
// and reproducible across processes. spec.md requires a canonical order but
// does not name the comparator it uses; this module's invented convention
// (recorded in the grounding ledger) is: inputs by (intent hash, output
// index) ascending, outputs by (owner address, token type, value)
// ascending, with value compared numerically rather than byte-for-byte
// since amounts are arbitrary precision.
func canonicalizeOffer(offer *assembler.UnshieldedOffer) {
	if offer == nil {
		return
	}
	sort.SliceStable(offer.Inputs, func(i, j int) bool {
		a, b := offer.Inputs[i], offer.Inputs[j]
		if c := bytes.Compare(a.IntentHash[:], b.IntentHash[:]); c != 0 {
			return c < 0
		}
		return a.OutputIndex < b.OutputIndex
	})
	sort.SliceStable(offer.Outputs, func(i, j int) bool {
		a, b := offer.Outputs[i], offer.Outputs[j]
		if c := bytes.Compare(a.OwnerAddress[:], b.OwnerAddress[:]); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(a.TokenType[:], b.TokenType[:]); c != 0 {
			return c < 0
		}
		return a.Value.Cmp(b.Value) < 0
	})
}
