// Package assembler builds and signs unshielded transfer transactions
// (spec.md §4.7, §4.8): reserving inputs against the UTXO store, shaping an
// UnshieldedOffer and its enclosing Intent, then — as a deliberately
// separate step — signing each input to keep the reservation window short.
// Grounded on the teacher's src/chainadapter transaction builder
// (TransactionRequest -> SignedTransaction two-step shape), generalized from
// "one chain-specific builder per supported chain" to this network's single
// unshielded-offer shape.
package assembler

import (
	"math/big"
	"time"

	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// UtxoSpend mirrors a concrete Utxo being consumed as a transaction input.
// Signature is nil until Sign attaches it.
type UtxoSpend struct {
	IntentHash     [32]byte
	OutputIndex    uint32
	Value          *big.Int
	OwnerPublicKey [32]byte
	Signature      *[64]byte
}

// UtxoOutput is a new, as-yet-unconfirmed output. Outputs are deterministically
// sorted by the encoder; the assembler never pre-sorts them (spec.md's data
// model table).
type UtxoOutput struct {
	Value        *big.Int
	OwnerAddress [32]byte
	TokenType    utxo.TokenType
}

// UnshieldedOffer is the construction's spendable segment: ordered inputs,
// ordered outputs, and — once signed — one signature per input.
type UnshieldedOffer struct {
	Inputs     []UtxoSpend
	Outputs    []UtxoOutput
	Signatures [][64]byte
}

// DustActions is attached to an Intent whenever the transaction pays a
// nonzero fee (spec.md §4.10); empty in this module's scope beyond the
// ordered-spends slot the fee subsystem fills in.
type DustActions struct {
	Spends []DustSpendRef
}

// DustSpendRef is an opaque placeholder for a dust.DustSpend attached to an
// Intent; kept untyped here (assembler does not import internal/dust) to
// avoid a dependency cycle, matching spec.md's layering where the fee
// subsystem calls into the assembler, not the reverse.
type DustSpendRef struct {
	OldNullifier  [32]byte
	NewCommitment [32]byte
	FeeAmount     *big.Int
	ProofPreimage []byte
}

// Intent is the network's transaction shape: at most one guaranteed
// unshielded offer, optional dust actions, and an absolute-wall-clock TTL.
type Intent struct {
	GuaranteedOffer *UnshieldedOffer
	DustActions     *DustActions
	TTL             time.Time

	// reservedIDs tracks which store rows build_transfer locked, so a
	// caller that abandons the intent (submission failure, explicit
	// cancel) can unlock them without re-deriving the set from inputs.
	reservedIDs []utxo.ID
}

// ReservedIDs returns the UTXO ids build_transfer reserved for this intent's
// guaranteed offer, for Unlock/MarkSpent calls by the submitter.
func (i *Intent) ReservedIDs() []utxo.ID {
	return i.reservedIDs
}

// SignedIntent is an Intent whose guaranteed offer carries one signature per
// input, in the order the encoder's canonical sort produced (spec.md §4.7's
// assembler/encoder contract).
type SignedIntent struct {
	Intent *Intent
}

// DefaultTTL is the default validity window a caller-supplied ttl overrides
// (spec.md §4.7).
const DefaultTTL = 30 * time.Minute
