package encoder

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/dust"
	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// PrepareFee is the two-pass fee flow of spec.md §4.11 step 1 / §4.10: the
// intent is encoded once with no dust actions to measure its base size S0,
// fee = S0 x specksPerByte, then dust UTXOs are selected smallest-first
// until their values sum to at least fee, with the last selected UTXO's
// spend adjusted to cover only the remainder — so the sum of attached
// spends equals fee exactly. Returns the attached dust.DustSpend values for
// the caller's own event bookkeeping (§4.10 step 5: the caller re-encodes
// with EncodeWithDust once these are attached).
func PrepareFee(enc Encoder, intent *assembler.Intent, dustState *dust.DustLocalState, seed32 *[32]byte, specksPerByte *big.Int, now time.Time) ([]dust.DustSpend, error) {
	defer zeroize.Array32(seed32)

	baseBytes, err := enc.Encode(intent)
	if err != nil {
		return nil, fmt.Errorf("encoder: measuring base size: %w", err)
	}

	fee := new(big.Int).Mul(specksPerByte, big.NewInt(int64(len(baseBytes))))
	if fee.Sign() <= 0 {
		intent.DustActions = nil
		return nil, nil
	}

	type candidate struct {
		index   uint32
		balance *big.Int
	}
	count := dustState.UtxoCount()
	candidates := make([]candidate, 0, count)
	for i := 0; i < count; i++ {
		info, err := dustState.UtxoAt(i)
		if err != nil {
			return nil, err
		}
		bal, err := dustState.BalanceOf(info.Index, now)
		if err != nil {
			return nil, err
		}
		if bal.Sign() > 0 {
			candidates = append(candidates, candidate{index: info.Index, balance: bal})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].balance.Cmp(candidates[j].balance) < 0 })

	remaining := new(big.Int).Set(fee)
	var spends []dust.DustSpend
	for _, c := range candidates {
		if remaining.Sign() <= 0 {
			break
		}
		take := new(big.Int).Set(c.balance)
		if take.Cmp(remaining) > 0 {
			take = new(big.Int).Set(remaining)
		}
		// Spend zeroes whatever buffer it is handed; seed32 is still needed
		// for the remaining candidates in this loop, so each call gets its
		// own throwaway copy instead of the shared buffer itself.
		seedCopy := *seed32
		spend, err := dustState.Spend(&seedCopy, c.index, take, now)
		if err != nil {
			continue
		}
		spends = append(spends, spend)
		remaining.Sub(remaining, take)
	}

	if remaining.Sign() > 0 {
		return nil, &corerrors.DustError{Kind: corerrors.DustInsufficientDust, Err: fmt.Errorf("dust balance covers %s of required fee %s", new(big.Int).Sub(fee, remaining), fee)}
	}

	refs := make([]assembler.DustSpendRef, len(spends))
	for i, s := range spends {
		refs[i] = assembler.DustSpendRef{
			OldNullifier:  s.OldNullifier,
			NewCommitment: s.NewCommitment,
			FeeAmount:     s.FeeAmount,
			ProofPreimage: s.ProofPreimage,
		}
	}
	intent.DustActions = &assembler.DustActions{Spends: refs}
	return spends, nil
}
