package submitter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/encoder"
	"github.com/shielded-utxo/walletcore/internal/indexer"
	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// DefaultTimeout is submit_and_wait's default confirmation window
// (spec.md §4.11, §5's "submission confirmation: 60 s total").
const DefaultTimeout = 60 * time.Second

// NodeSubmitter is the narrow slice of *nodeclient.Client this package
// depends on, so tests can substitute a fake instead of a live HTTP
// endpoint — the same narrowing internal/assembler applies to its encoder
// dependency via SigningMessages.
type NodeSubmitter interface {
	SubmitExtrinsic(ctx context.Context, txBytes []byte) (string, error)
}

// IndexerSubscriber is the narrow slice of *indexer.Consumer this package
// depends on.
type IndexerSubscriber interface {
	SubscribeUnshielded(ctx context.Context, address string, fromTxID *int64) (<-chan indexer.StreamUpdate, func(), error)
}

// Deps bundles submit_and_wait's explicit dependencies; there is no hidden
// global state (spec.md §9), so every caller wires these once at process
// startup the way internal/shielded's KeyDeriver and internal/encoder's
// Encoder are wired.
type Deps struct {
	Encoder encoder.Encoder
	Node    NodeSubmitter
	Indexer IndexerSubscriber
	Store   utxo.Store
	Logger  *zap.Logger
}

// Submitter implements submit_and_wait (spec.md §4.11).
type Submitter struct {
	deps Deps
}

// New returns a Submitter over deps. A nil Logger is replaced with a no-op
// one so callers that do not care about diagnostic logging need not
// construct one.
func New(deps Deps) *Submitter {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Submitter{deps: deps}
}

// SubmitAndWait encodes, wraps, submits and waits for confirmation of
// signed's guaranteed offer, mutating the UTXO store according to the
// interaction table in spec.md §4.11. reservedIDs is the set of rows
// build_transfer locked for this intent (assembler.Intent.ReservedIDs) and
// the set mark_spent/unlock is ultimately called against.
//
// Cancellation: if ctx is cancelled before a terminal update arrives,
// SubmitAndWait aborts its indexer subscription and returns ctx.Err()
// without mutating the store — reservations remain Pending, exactly as
// spec.md §5's cancellation semantics specify. A timeout (as opposed to an
// externally cancelled ctx) instead returns ResultPending with no error.
func (s *Submitter) SubmitAndWait(ctx context.Context, signed *assembler.SignedIntent, senderAddress string, timeout time.Duration) (*SubmissionResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	intent := signed.Intent
	reservedIDs := intent.ReservedIDs()

	txBytes, err := s.encode(intent)
	if err != nil {
		return nil, fmt.Errorf("submitter: encoding intent: %w", err)
	}

	// Node.SubmitExtrinsic applies the §6 extrinsic envelope itself
	// (nodeclient.Client.SubmitExtrinsic wraps txBytes before hex-encoding
	// it for the RPC call) — wrapping here too would nest the envelope.
	txHash, err := s.deps.Node.SubmitExtrinsic(ctx, txBytes)
	if err != nil {
		if corerrors.IsDefiniteRejection(err) {
			if unlockErr := s.deps.Store.Unlock(ctx, reservedIDs); unlockErr != nil {
				return nil, fmt.Errorf("submitter: rejected (%w), and failed to unlock reservations: %v", err, unlockErr)
			}
		}
		// NodeNetworkError / NodeHttpError / NodeTimeoutError: retryable,
		// no state mutation (spec.md §4.11 failure modes table).
		return nil, err
	}

	updates, cancel, err := s.deps.Indexer.SubscribeUnshielded(ctx, senderAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("submitter: subscribing to confirmation stream: %w", err)
	}
	defer cancel()

	waitCtx, cancelWait := context.WithTimeout(ctx, timeout)
	defer cancelWait()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
				return nil, ctx.Err()
			}
			return &SubmissionResult{Kind: ResultPending, TxHash: txHash}, nil

		case update, ok := <-updates:
			if !ok {
				return &SubmissionResult{Kind: ResultPending, TxHash: txHash}, nil
			}
			if update.Err != nil {
				// IndexerDisconnected: transport issue, not a definite
				// rejection — reservations remain Pending for the caller
				// to retry the wait.
				return nil, update.Err
			}
			if update.Transaction == nil || update.Transaction.TxHash != txHash {
				continue
			}

			tx := update.Transaction
			switch tx.Status {
			case indexer.StatusSuccess, indexer.StatusPartialSuccess:
				if err := s.deps.Store.MarkSpent(ctx, reservedIDs); err != nil {
					return nil, fmt.Errorf("submitter: marking inputs spent: %w", err)
				}
				s.deps.Logger.Info("submitter: transaction confirmed", zap.String("tx_hash", txHash), zap.String("status", string(tx.Status)))
				return &SubmissionResult{Kind: ResultSuccess, TxHash: txHash, BlockHeight: tx.BlockHeight}, nil
			default:
				if err := s.deps.Store.Unlock(ctx, reservedIDs); err != nil {
					return nil, fmt.Errorf("submitter: unlocking inputs after rejection: %w", err)
				}
				s.deps.Logger.Warn("submitter: transaction failed", zap.String("tx_hash", txHash), zap.String("status", string(tx.Status)))
				return &SubmissionResult{Kind: ResultFailed, TxHash: txHash, Reason: string(tx.Status)}, nil
			}
		}
	}
}

// encode calls EncodeWithDust when the intent carries dust actions and
// Encode otherwise, matching the two distinct entry points
// internal/encoder exposes (spec.md §4.11 step 1).
func (s *Submitter) encode(intent *assembler.Intent) ([]byte, error) {
	if intent.DustActions != nil && len(intent.DustActions.Spends) > 0 {
		return s.deps.Encoder.EncodeWithDust(intent)
	}
	return s.deps.Encoder.Encode(intent)
}
