package submitter

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/indexer"
	"github.com/shielded-utxo/walletcore/internal/utxo"
)

// fakeEncoder returns fixed bytes regardless of intent shape; this
// package's tests exercise orchestration, not the wire format.
type fakeEncoder struct{}

func (fakeEncoder) Encode(intent *assembler.Intent) ([]byte, error)         { return []byte{0xAA}, nil }
func (fakeEncoder) EncodeWithDust(intent *assembler.Intent) ([]byte, error) { return []byte{0xBB}, nil }
func (fakeEncoder) CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error) {
	return nil, nil
}
func (fakeEncoder) Version() string { return "fake" }

type fakeNode struct {
	hash string
	err  error
}

func (f *fakeNode) SubmitExtrinsic(ctx context.Context, txBytes []byte) (string, error) {
	return f.hash, f.err
}

type fakeIndexer struct {
	ch chan indexer.StreamUpdate
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{ch: make(chan indexer.StreamUpdate, 8)}
}

func (f *fakeIndexer) SubscribeUnshielded(ctx context.Context, address string, fromTxID *int64) (<-chan indexer.StreamUpdate, func(), error) {
	return f.ch, func() {}, nil
}

type fakeStore struct {
	unlockedIDs []utxo.ID
	spentIDs    []utxo.ID
}

func (s *fakeStore) Put(ctx context.Context, u utxo.Utxo) error           { return nil }
func (s *fakeStore) ApplyEvent(ctx context.Context, ev utxo.Event) error { return nil }
func (s *fakeStore) ObserveBalances(ctx context.Context, address string) (<-chan []utxo.TokenBalance, func(), error) {
	return nil, func() {}, nil
}
func (s *fakeStore) SelectAndLock(ctx context.Context, address string, tokenType utxo.TokenType, required *big.Int) ([]utxo.Utxo, error) {
	return nil, nil
}
func (s *fakeStore) SelectAndLockMulti(ctx context.Context, address string, requests map[utxo.TokenType]*big.Int) (map[utxo.TokenType][]utxo.Utxo, error) {
	return nil, nil
}
func (s *fakeStore) Unlock(ctx context.Context, ids []utxo.ID) error {
	s.unlockedIDs = append(s.unlockedIDs, ids...)
	return nil
}
func (s *fakeStore) MarkSpent(ctx context.Context, ids []utxo.ID) error {
	s.spentIDs = append(s.spentIDs, ids...)
	return nil
}

var _ utxo.Store = (*fakeStore)(nil)

// buildStore is a minimal utxo.Store fake whose only purpose is to hand
// assembler.BuildTransfer a reservable row, so testIntent below produces a
// *real* Intent with ReservedIDs populated (an unexported field only
// build_transfer can set) rather than a hand-built one that would silently
// carry no reservations for Unlock/MarkSpent to act on.
type buildStore struct{}

func (buildStore) Put(ctx context.Context, u utxo.Utxo) error           { return nil }
func (buildStore) ApplyEvent(ctx context.Context, ev utxo.Event) error { return nil }
func (buildStore) ObserveBalances(ctx context.Context, address string) (<-chan []utxo.TokenBalance, func(), error) {
	return nil, func() {}, nil
}
func (buildStore) SelectAndLock(ctx context.Context, address string, tokenType utxo.TokenType, required *big.Int) ([]utxo.Utxo, error) {
	return []utxo.Utxo{{
		ID:             utxo.ID{IntentHash: [32]byte{1}, OutputIndex: 0},
		OwnerAddress:   address,
		OwnerPublicKey: [32]byte{9},
		Value:          new(big.Int).Set(required),
		TokenType:      tokenType,
		State:          utxo.Pending,
	}}, nil
}
func (buildStore) SelectAndLockMulti(ctx context.Context, address string, requests map[utxo.TokenType]*big.Int) (map[utxo.TokenType][]utxo.Utxo, error) {
	return nil, nil
}
func (buildStore) Unlock(ctx context.Context, ids []utxo.ID) error    { return nil }
func (buildStore) MarkSpent(ctx context.Context, ids []utxo.ID) error { return nil }

var _ utxo.Store = buildStore{}

func testIntent(t *testing.T) *assembler.SignedIntent {
	t.Helper()
	intent, err := assembler.BuildTransfer(context.Background(), buildStore{}, assembler.BuildTransferParams{
		Sender:       assembler.Sender{Address: "addr1", PublicKey: [32]byte{9}},
		RecipientRaw: [32]byte{2},
		Amount:       big.NewInt(10),
	})
	if err != nil {
		t.Fatalf("BuildTransfer: %v", err)
	}
	return &assembler.SignedIntent{Intent: intent}
}

func TestSubmitAndWaitSuccessMarksSpent(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{hash: "0xabc"}, Indexer: idx, Store: store})

	go func() {
		idx.ch <- indexer.StreamUpdate{Transaction: &indexer.TransactionUpdate{TxHash: "0xdifferent", Status: indexer.StatusSuccess}}
		idx.ch <- indexer.StreamUpdate{Transaction: &indexer.TransactionUpdate{TxHash: "0xabc", Status: indexer.StatusSuccess}}
	}()

	result, err := sub.SubmitAndWait(context.Background(), testIntent(t), "addr1", time.Second)
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if result.Kind != ResultSuccess || result.TxHash != "0xabc" {
		t.Fatalf("result = %+v, want Success/0xabc", result)
	}
	if len(store.spentIDs) != 1 {
		t.Fatalf("expected one input marked spent, got %d", len(store.spentIDs))
	}
}

func TestSubmitAndWaitFailureUnlocksReservations(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{hash: "0xabc"}, Indexer: idx, Store: store})

	go func() {
		idx.ch <- indexer.StreamUpdate{Transaction: &indexer.TransactionUpdate{TxHash: "0xabc", Status: indexer.StatusFailure}}
	}()

	result, err := sub.SubmitAndWait(context.Background(), testIntent(t), "addr1", time.Second)
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if result.Kind != ResultFailed {
		t.Fatalf("result kind = %v, want Failed", result.Kind)
	}
	if len(store.unlockedIDs) != 1 {
		t.Fatalf("expected one input unlocked, got %d", len(store.unlockedIDs))
	}
}

func TestSubmitAndWaitTimesOutToPending(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{hash: "0xabc"}, Indexer: idx, Store: store})

	result, err := sub.SubmitAndWait(context.Background(), testIntent(t), "addr1", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if result.Kind != ResultPending {
		t.Fatalf("result kind = %v, want Pending", result.Kind)
	}
	if len(store.unlockedIDs) != 0 || len(store.spentIDs) != 0 {
		t.Fatal("expected no store mutation on timeout")
	}
}

func TestSubmitAndWaitDefiniteRejectionUnlocksWithoutStream(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	rejectErr := &corerrors.TransactionRejected{Reason: "ttl expired"}
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{err: rejectErr}, Indexer: idx, Store: store})

	_, err := sub.SubmitAndWait(context.Background(), testIntent(t), "addr1", time.Second)
	if !errors.Is(err, rejectErr) {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if len(store.unlockedIDs) != 1 {
		t.Fatalf("expected reservations unlocked on definite rejection, got %d", len(store.unlockedIDs))
	}
}

func TestSubmitAndWaitRetryableNetworkErrorLeavesReservations(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{err: corerrors.ErrNodeTimeout}, Indexer: idx, Store: store})

	_, err := sub.SubmitAndWait(context.Background(), testIntent(t), "addr1", time.Second)
	if !errors.Is(err, corerrors.ErrNodeTimeout) {
		t.Fatalf("expected ErrNodeTimeout, got %v", err)
	}
	if len(store.unlockedIDs) != 0 {
		t.Fatal("expected no mutation on a retryable network error")
	}
}

func TestSubmitAndWaitCancellationLeavesReservationsPending(t *testing.T) {
	store := &fakeStore{}
	idx := newFakeIndexer()
	sub := New(Deps{Encoder: fakeEncoder{}, Node: &fakeNode{hash: "0xabc"}, Indexer: idx, Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := sub.SubmitAndWait(ctx, testIntent(t), "addr1", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.unlockedIDs) != 0 || len(store.spentIDs) != 0 {
		t.Fatal("expected no store mutation on caller cancellation")
	}
}
