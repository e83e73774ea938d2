// Package utxo implements the locally persisted set of unspent unshielded
// outputs: the three-state lifecycle, smallest-first coin selection, and
// atomic reservation semantics for concurrent spend attempts (spec.md §3,
// §4.5, §4.6). Grounded on the teacher's storage abstractions
// (src/chainadapter/storage.TransactionStateStore and
// internal/services/storage/file.go), generalized from "one opaque
// transaction-state blob keyed by hash" to a row-per-UTXO table with a
// state machine and value-ordered selection queries.
package utxo

import (
	"fmt"
	"math/big"
	"time"
)

// State is a UTXO's position in its three-state lifecycle.
type State int

const (
	Available State = iota
	Pending
	Spent
)

func (s State) String() string {
	switch s {
	case Available:
		return "Available"
	case Pending:
		return "Pending"
	case Spent:
		return "Spent"
	default:
		return "Unknown"
	}
}

// ID uniquely identifies a UTXO by the intent that created it and the
// position of its output within that intent.
type ID struct {
	IntentHash  [32]byte
	OutputIndex uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%x:%d", id.IntentHash, id.OutputIndex)
}

// TokenType tags which fungible token a UTXO's value is denominated in.
type TokenType [32]byte

// Utxo is one unspent (or reserved, or spent) unshielded output.
type Utxo struct {
	ID             ID
	OwnerAddress   string
	OwnerPublicKey [32]byte
	Value          *big.Int
	TokenType      TokenType
	State          State
	CreatedAt      time.Time
	SpentAt        *time.Time
}

// TokenBalance is a derived, non-persisted view over a set of UTXOs of one
// token type for one address.
type TokenBalance struct {
	TokenType TokenType
	Available *big.Int
	Pending   *big.Int
	Count     int
}

// Event is what the indexer consumer applies to keep the store in sync with
// confirmed on-chain activity (spec.md §4.5's put/apply_event, §9's note
// that an externally-observed spend of a UTXO this wallet tracks is a
// legitimate Available -> Spent transition).
type Event struct {
	// CreatedUtxos are newly confirmed outputs owned by a watched address.
	CreatedUtxos []Utxo
	// SpentIDs are UTXOs confirmed spent, whether by this wallet or (per
	// spec.md §9's open question) another device sharing the same mnemonic.
	SpentIDs []ID
}
