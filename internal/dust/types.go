// Package dust implements the privacy-fee subsystem's local state engine:
// a Merkle accumulator over the network's dust events, the subset of dust
// UTXOs this wallet owns, time-dependent balance computation, and spend
// production (spec.md §4.9 — "the most intricate component; specified by
// contract, not implementation"). Grounded on
// orbas1-Synnergy/core/merkle_tree_operations.go for the accumulator shape
// and the teacher's FFI-isolation pattern (internal/lib/exports.go,
// internal/shielded) for treating this as an opaque, exclusively-owned
// native handle even though — absent the real reference library — the
// implementation here is the in-process reference model SPEC_FULL.md's
// domain stack table calls for.
package dust

import (
	"math/big"
	"time"
)

// GenerationInfo parameterizes how one dust UTXO accrues value over time:
// it starts at InitialValue and grows at Rate Specks per second until it
// reaches Capacity or Dtime passes, whichever comes first (spec.md §4.9).
type GenerationInfo struct {
	InitialValue *big.Int
	Rate         *big.Int // Specks per second
	Capacity     *big.Int
	Dtime        time.Time // generation stops after this time
}

// DustUtxoInfo is the state engine's view of one owned dust UTXO.
type DustUtxoInfo struct {
	Index           uint32
	Commitment      [32]byte
	Generation      GenerationInfo
	GenerationStart time.Time
	AlreadySpent    *big.Int

	// BackingConsumed marks the UTXO as having entered its decay phase: the
	// transparent backing output it tracks has been spent, so instead of
	// generating further value it decays from PeakValue back toward zero at
	// the same Rate (spec.md's "symmetric arithmetic").
	BackingConsumed bool
	DecayStart      time.Time
	PeakValue       *big.Int

	PendingNullifier *[32]byte
	Spent            bool
}

// EventKind identifies one of the three kinds replay folds into state.
type EventKind int

const (
	EventInitialUtxo EventKind = iota
	EventSpendProcessed
	EventGenerationDtimeUpdate
)

// Event is a single replayed dust ledger event (spec.md §4.9's three event
// kinds). Exactly one of the payload fields is populated, matching Kind.
type Event struct {
	Kind EventKind

	InitialUtxo    *InitialUtxoPayload
	SpendProcessed *SpendProcessedPayload
	DtimeUpdate    *DtimeUpdatePayload
}

// InitialUtxoPayload adds a newly observed owned dust UTXO to state.
type InitialUtxoPayload struct {
	Commitment      [32]byte
	Generation      GenerationInfo
	GenerationIndex uint32
	BlockTime       time.Time
}

// SpendProcessedPayload reconciles a confirmed spend against local pending
// state, or — if the nullifier matches nothing pending here — simply folds
// another user's spend into the global accumulator.
type SpendProcessedPayload struct {
	Commitment   [32]byte
	Nullifier    [32]byte
	FeeAmount    *big.Int
	DeclaredTime time.Time
}

// DtimeUpdatePayload advances the decay boundary for one owned UTXO.
type DtimeUpdatePayload struct {
	GenerationIndex uint32
	NewDtime        time.Time
	BlockTime       time.Time
}

// DustUtxoSelection records, for each chosen native UTXO index, the amount
// of fee it will cover. The sum of covered amounts must be >= the required
// fee (spec.md's data model table).
type DustUtxoSelection struct {
	UtxoIndex uint32
	Covered   *big.Int
}

// DustSpend is produced by Spend: the old nullifier being retired, the new
// commitment standing in for the remaining balance, the fee amount it
// covers, and a proof preimage for the encoder to wrap into a ZK proof.
type DustSpend struct {
	OldNullifier  [32]byte
	NewCommitment [32]byte
	FeeAmount     *big.Int
	ProofPreimage []byte
}

// Params are this network's canonical dust parameters (spec.md's "network's
// canonical dust parameters", e.g. Specks-per-backing-unit-per-second),
// supplied by internal/config at Create time rather than hardcoded, per
// §9's ban on hidden global state.
type Params struct {
	DefaultRate     *big.Int
	DefaultCapacity *big.Int
	GraceWindow     time.Duration
}
