package dust

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

func testParams() Params {
	return Params{
		DefaultRate:     big.NewInt(8267),
		DefaultCapacity: big.NewInt(1_000_000_000),
		GraceWindow:     5 * time.Minute,
	}
}

func seedInitialUtxo(t *testing.T, s *DustLocalState, index uint32, initial int64, rate int64, capacity int64, start time.Time) {
	t.Helper()
	var seed [32]byte
	err := s.Replay(&seed, []Event{{
		Kind: EventInitialUtxo,
		InitialUtxo: &InitialUtxoPayload{
			Commitment: [32]byte{byte(index) + 1},
			Generation: GenerationInfo{
				InitialValue: big.NewInt(initial),
				Rate:         big.NewInt(rate),
				Capacity:     big.NewInt(capacity),
				Dtime:        start.Add(24 * time.Hour),
			},
			GenerationIndex: index,
			BlockTime:       start,
		},
	}})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
}

func TestBalanceAccruesOverTime(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 1000, 10, 1_000_000, start)

	bal := s.Balance(start.Add(100 * time.Second))
	want := big.NewInt(1000 + 10*100)
	if bal.Cmp(want) != 0 {
		t.Fatalf("balance = %s, want %s", bal, want)
	}
}

func TestBalanceCapsAtCapacity(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 1000, 100, 2000, start)

	bal := s.Balance(start.Add(time.Hour))
	if bal.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("balance = %s, want capacity 2000", bal)
	}
}

func TestSpendProducesDustSpendAndDecrementsBalance(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 10_000, 10, 1_000_000, start)

	now := start.Add(10 * time.Second)
	var seed [32]byte
	spend, err := s.Spend(&seed, 0, big.NewInt(5000), now)
	if err != nil {
		t.Fatalf("Spend: %v", err)
	}
	if spend.FeeAmount.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("fee amount = %s, want 5000", spend.FeeAmount)
	}

	remaining := s.Balance(now)
	want := big.NewInt(10_000 + 10*10 - 5000)
	if remaining.Cmp(want) != 0 {
		t.Fatalf("remaining balance = %s, want %s", remaining, want)
	}
}

func TestSpendInsufficientDust(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 100, 1, 1000, start)

	var seed [32]byte
	_, err := s.Spend(&seed, 0, big.NewInt(1_000_000), start)
	if err == nil {
		t.Fatal("expected insufficient dust error")
	}
	var dustErr *corerrors.DustError
	if !errors.As(err, &dustErr) || dustErr.Kind != corerrors.DustInsufficientDust {
		t.Fatalf("expected DustInsufficientDust, got %v", err)
	}
}

func TestSpendRejectsUnknownUtxoIndex(t *testing.T) {
	s := Create(testParams(), nil)
	var seed [32]byte
	_, err := s.Spend(&seed, 99, big.NewInt(1), time.Now())
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestReplaySpendProcessedGraduatesPendingToSpent(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 10_000, 10, 1_000_000, start)

	var seed [32]byte
	spend, err := s.Spend(&seed, 0, big.NewInt(5000), start.Add(time.Second))
	if err != nil {
		t.Fatalf("Spend: %v", err)
	}

	err = s.Replay(&seed, []Event{{
		Kind: EventSpendProcessed,
		SpendProcessed: &SpendProcessedPayload{
			Commitment:   spend.NewCommitment,
			Nullifier:    spend.OldNullifier,
			FeeAmount:    spend.FeeAmount,
			DeclaredTime: start.Add(2 * time.Second),
		},
	}})
	if err != nil {
		t.Fatalf("Replay(SpendProcessed): %v", err)
	}

	info, err := s.UtxoAt(0)
	if err != nil {
		t.Fatalf("UtxoAt: %v", err)
	}
	if !info.Spent {
		t.Fatal("expected utxo to graduate to Spent after matching SpendProcessed replay")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := Create(testParams(), nil)
	s.Close()
	s.Close() // must not panic
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	s := Create(testParams(), nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedInitialUtxo(t, s, 0, 10_000, 10, 1_000_000, start)

	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored, err := Deserialize(data, nil)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	before := s.Balance(start.Add(time.Minute))
	after := restored.Balance(start.Add(time.Minute))
	if before.Cmp(after) != 0 {
		t.Fatalf("balance mismatch after round trip: before=%s after=%s", before, after)
	}
}
