package utxo

import (
	"context"
	"math/big"
)

// Store is the explicit interface every caller (assembler, submitter,
// indexer consumer) depends on. One implementation, SQLiteStore, backs it
// with a real database; tests may substitute an in-memory fake satisfying
// the same contract.
type Store interface {
	// Put upserts a single UTXO row, used by the indexer consumer when it
	// observes a confirmed output.
	Put(ctx context.Context, u Utxo) error

	// ApplyEvent folds a batch of created/spent observations into the
	// store in one call.
	ApplyEvent(ctx context.Context, ev Event) error

	// ObserveBalances returns a channel that emits the current
	// TokenBalance snapshot for address immediately, then again every time
	// a row of that address changes state. The returned cancel func must
	// be called to release the subscription; it is safe to call more than
	// once.
	ObserveBalances(ctx context.Context, address string) (<-chan []TokenBalance, func(), error)

	// SelectAndLock atomically reserves the smallest-first prefix of
	// Available rows for (address, tokenType) summing to at least
	// required, transitioning them to Pending and returning them. Returns
	// InsufficientFunds without mutating anything if no such prefix
	// exists.
	SelectAndLock(ctx context.Context, address string, tokenType TokenType, required *big.Int) ([]Utxo, error)

	// SelectAndLockMulti is the same contract as SelectAndLock but
	// all-or-nothing across multiple token types in a single transaction.
	SelectAndLockMulti(ctx context.Context, address string, requests map[TokenType]*big.Int) (map[TokenType][]Utxo, error)

	// Unlock transitions Pending rows back to Available (submission
	// failure/timeout-abandon path).
	Unlock(ctx context.Context, ids []ID) error

	// MarkSpent transitions Pending rows to Spent (confirmed submission).
	MarkSpent(ctx context.Context, ids []ID) error
}
