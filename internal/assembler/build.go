package assembler

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shielded-utxo/walletcore/internal/address"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// Sender identifies the party whose store rows are reserved to fund a
// transfer: the address rows are keyed under, and the public key attached
// to each resulting UtxoSpend input.
type Sender struct {
	Address   string
	PublicKey [32]byte
}

// BuildTransferParams bundles build_transfer's arguments (spec.md §4.7).
type BuildTransferParams struct {
	Sender       Sender
	RecipientRaw [32]byte // decoded recipient address payload
	Amount       *big.Int
	TokenType    utxo.TokenType
	TTL          time.Time // zero value means DefaultTTL from now
}

// BuildTransfer reserves inputs from store and constructs the corresponding
// Intent. No mathematical-invariant checks are performed beyond
// caller-observable validation (amount > 0, non-blank addresses) — the
// construction is correct by construction once inputs are reserved
// (spec.md §4.7).
func BuildTransfer(ctx context.Context, store utxo.Store, params BuildTransferParams) (*Intent, error) {
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return nil, corerrors.ErrAmountNonPositive
	}
	if params.Sender.Address == "" {
		return nil, corerrors.ErrBlankAddress
	}

	reserved, err := store.SelectAndLock(ctx, params.Sender.Address, params.TokenType, params.Amount)
	if err != nil {
		return nil, err
	}

	inputs := make([]UtxoSpend, len(reserved))
	ids := make([]utxo.ID, len(reserved))
	total := big.NewInt(0)
	for i, row := range reserved {
		inputs[i] = UtxoSpend{
			IntentHash:     row.ID.IntentHash,
			OutputIndex:    row.ID.OutputIndex,
			Value:          new(big.Int).Set(row.Value),
			OwnerPublicKey: row.OwnerPublicKey,
		}
		ids[i] = row.ID
		total.Add(total, row.Value)
	}

	outputs := []UtxoOutput{{
		Value:        new(big.Int).Set(params.Amount),
		OwnerAddress: params.RecipientRaw,
		TokenType:    params.TokenType,
	}}

	change := new(big.Int).Sub(total, params.Amount)
	if change.Sign() > 0 {
		senderRaw := address.FromPublicKey(senderXOnly(params.Sender.PublicKey))
		outputs = append(outputs, UtxoOutput{
			Value:        change,
			OwnerAddress: senderRaw,
			TokenType:    params.TokenType,
		})
	}

	ttl := params.TTL
	if ttl.IsZero() {
		ttl = time.Now().Add(DefaultTTL)
	}
	if !ttl.After(time.Now()) {
		if unlockErr := store.Unlock(ctx, ids); unlockErr != nil {
			return nil, fmt.Errorf("assembler: ttl in the past, and failed to unlock reserved inputs: %w", unlockErr)
		}
		return nil, fmt.Errorf("assembler: ttl %s is not after now", ttl)
	}

	intent := &Intent{
		GuaranteedOffer: &UnshieldedOffer{
			Inputs:     inputs,
			Outputs:    outputs,
			Signatures: nil,
		},
		TTL:         ttl,
		reservedIDs: ids,
	}
	return intent, nil
}

// senderXOnly is a readability shim: the sender's public key is already
// x-only by construction (keys.DerivedKey.PublicXOnly), this just documents
// the expectation at the call site.
func senderXOnly(pk [32]byte) [32]byte { return pk }
