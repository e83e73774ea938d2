// Package indexer is the narrow transport adapter used by the submitter and
// the UTXO store's confirmation path (spec.md §4.12): an ordered,
// restartable unshielded-transaction subscription and a one-shot dust event
// fetch, with the underlying WebSocket transport reconnecting transparently
// on a bounded exponential backoff. Grounded on the teacher's
// src/chainadapter/rpc/websocket.go WebSocketRPCClient, generalized from a
// generic eth_subscribe-style JSON-RPC subscription dispatcher to this
// network's two named streams.
package indexer

import (
	"encoding/hex"
	"math/big"
	"time"

	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// TransactionStatus mirrors the indexer's status tag for one transaction
// update (spec.md §6).
type TransactionStatus string

const (
	StatusSuccess        TransactionStatus = "Success"
	StatusPartialSuccess TransactionStatus = "PartialSuccess"
	StatusFailure        TransactionStatus = "Failure"
)

// WireUtxo is the indexer's wire shape for a created/spent UTXO reference
// inside a Transaction update.
type WireUtxo struct {
	IntentHash  string `json:"intent_hash"`
	OutputIndex uint32 `json:"output_index"`
	Owner       string `json:"owner"`
	Value       string `json:"value"`
	TokenType   string `json:"token_type"`
}

// ToUtxo converts the indexer's wire representation into a store-ready
// utxo.Utxo in the Available state (spec.md §4.12's "created_utxos" feed
// the store's put/apply_event path).
func (w WireUtxo) ToUtxo() (utxo.Utxo, error) {
	var u utxo.Utxo

	intentHashBytes, err := hex.DecodeString(trimHexPrefix(w.IntentHash))
	if err != nil {
		return u, err
	}
	copy(u.ID.IntentHash[:], intentHashBytes)
	u.ID.OutputIndex = w.OutputIndex
	u.OwnerAddress = w.Owner

	value, ok := new(big.Int).SetString(w.Value, 10)
	if !ok {
		value = big.NewInt(0)
	}
	u.Value = value

	tokenTypeBytes, err := hex.DecodeString(trimHexPrefix(w.TokenType))
	if err != nil {
		return u, err
	}
	copy(u.TokenType[:], tokenTypeBytes)

	u.State = utxo.Available
	u.CreatedAt = time.Now()
	return u, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// TransactionUpdate is one message on the subscribe_unshielded stream.
type TransactionUpdate struct {
	TxID         int64             `json:"tx_id"`
	TxHash       string            `json:"tx_hash"`
	Status       TransactionStatus `json:"status"`
	BlockHeight  *int64            `json:"block_height,omitempty"`
	BlockTimeMs  int64             `json:"block_time_ms"`
	CreatedUtxos []WireUtxo        `json:"created_utxos"`
	SpentUtxos   []WireUtxo        `json:"spent_utxos"`
}

// ProgressUpdate reports the stream's current high-water mark.
type ProgressUpdate struct {
	HighestTxID int64 `json:"highest_tx_id"`
}

// StreamUpdate is a single item on the subscription channel: exactly one of
// Transaction or Progress is populated, matching the wire's discriminated
// union (spec.md §6's "__typename or equivalent tag"). Err is set only on
// the final item delivered before the channel is closed after the
// reconnect retry budget is exhausted (spec.md §7's IndexerDisconnected);
// callers distinguish a clean unsubscribe (channel closed, no final Err
// item) from a dropped connection by checking it.
type StreamUpdate struct {
	Transaction *TransactionUpdate
	Progress    *ProgressUpdate
	Err         error
}
