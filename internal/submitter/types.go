// Package submitter orchestrates submit_and_wait (spec.md §4.11): canonical
// encoding, the node's extrinsic envelope, JSON-RPC submission, and
// confirmation via the indexer's ordered unshielded-transaction stream,
// finishing with the UTXO store mutation the terminal SubmissionResult
// implies. Grounded on the teacher's chainadapter Service
// (Build/Sign/Broadcast/QueryStatus as separate steps composed by one
// caller, internal/services/chainadapter/service.go), generalized from a
// one-shot broadcast-then-poll-status pair into a single blocking call that
// waits on a push stream instead of polling, since spec.md §4.12 models the
// indexer as a subscription rather than a status-query endpoint.
package submitter

import "math/big"

// ResultKind discriminates SubmissionResult's three variants (spec.md
// §4 data model's SubmissionResult sum type).
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailed
	ResultPending
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "Success"
	case ResultFailed:
		return "Failed"
	case ResultPending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// SubmissionResult is submit_and_wait's return value.
type SubmissionResult struct {
	Kind        ResultKind
	TxHash      string
	BlockHeight *int64 // set only on ResultSuccess, and only if the update carried one
	Reason      string // set only on ResultFailed
}

// SpecksPerByte is the dust fee rate spec.md §4.10 currently pins.
var SpecksPerByte = big.NewInt(40)
