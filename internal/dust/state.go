package dust

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
	"github.com/shielded-utxo/walletcore/internal/zeroize"
)

// DustLocalState is the opaque handle spec.md §4.9 describes: a Merkle
// accumulator over the network's dust events, this wallet's owned dust
// UTXOs with generation metadata, pending local nullifiers, and a
// monotonically advancing last-processed-time marker. Exclusively owned by
// one logical caller for the duration of one transaction's fee computation
// (spec.md's ownership section). Each method holds mu for its own duration,
// so single calls are serialized and Close stays idempotent under
// concurrent misuse; sequences of calls are not made atomic.
type DustLocalState struct {
	mu sync.Mutex

	params Params

	accumulator *Accumulator
	utxos       []DustUtxoInfo
	indexOf     map[uint32]int

	pendingNullifiers map[[32]byte]uint32 // nullifier -> utxo index

	lastProcessedTime time.Time
	closed            bool

	logger *zap.Logger
}

// Create initializes an empty state with the network's canonical dust
// parameters. A nil logger is replaced with a no-op one, matching the
// pattern internal/submitter.New and internal/indexer.NewConsumer use for
// their own logger dependency.
func Create(params Params, logger *zap.Logger) *DustLocalState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DustLocalState{
		params:            params,
		accumulator:       NewAccumulator(),
		indexOf:           make(map[uint32]int),
		pendingNullifiers: make(map[[32]byte]uint32),
		logger:            logger,
	}
}

// gobState mirrors DustLocalState's persisted fields for Serialize/Deserialize;
// the mutex and closed flag are session-only and not carried across restarts.
type gobState struct {
	Params            Params
	Leaves            [][]byte
	Utxos             []DustUtxoInfo
	PendingNullifiers map[[32]byte]uint32
	LastProcessedTime time.Time
}

// Serialize encodes state for snapshotting across process restarts
// (spec.md §4.9).
func (s *DustLocalState) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("dust: cannot serialize a closed state")}
	}

	gs := gobState{
		Params:            s.params,
		Leaves:            s.accumulator.leaves,
		Utxos:             s.utxos,
		PendingNullifiers: s.pendingNullifiers,
		LastProcessedTime: s.lastProcessedTime,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gs); err != nil {
		return nil, &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("dust: serialize: %w", err)}
	}
	return buf.Bytes(), nil
}

// Deserialize restores a state previously produced by Serialize.
func Deserialize(data []byte, logger *zap.Logger) (*DustLocalState, error) {
	var gs gobState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gs); err != nil {
		return nil, &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("dust: deserialize: %w", err)}
	}

	s := Create(gs.Params, logger)
	s.accumulator.leaves = gs.Leaves
	s.utxos = gs.Utxos
	s.pendingNullifiers = gs.PendingNullifiers
	s.lastProcessedTime = gs.LastProcessedTime
	for i, u := range s.utxos {
		s.indexOf[u.Index] = i
	}
	if s.pendingNullifiers == nil {
		s.pendingNullifiers = make(map[[32]byte]uint32)
	}
	return s, nil
}

// Replay folds events into state in order. Out-of-order replay (an update
// referencing a generation index that does not exist yet, or a spend
// confirmation with a declared_time before the current last-processed-time)
// yields a contained DustError, never a panic (spec.md §4.9).
func (s *DustLocalState) Replay(seed32 *[32]byte, events []Event) error {
	defer zeroize.Array32(seed32)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("dust: cannot replay into a closed state")}
	}

	for i, ev := range events {
		if err := s.applyEventLocked(ev); err != nil {
			s.logger.Warn("dust: replay failed", zap.Int("event_index", i), zap.Error(err))
			return fmt.Errorf("dust: replaying event %d: %w", i, err)
		}
	}
	s.logger.Debug("dust: replayed events", zap.Int("count", len(events)))
	return nil
}

func (s *DustLocalState) applyEventLocked(ev Event) error {
	switch ev.Kind {
	case EventInitialUtxo:
		p := ev.InitialUtxo
		if p == nil {
			return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("nil InitialUtxo payload")}
		}
		if _, exists := s.indexOf[p.GenerationIndex]; exists {
			return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("generation index %d already owned", p.GenerationIndex)}
		}
		u := DustUtxoInfo{
			Index:           p.GenerationIndex,
			Commitment:      p.Commitment,
			Generation:      p.Generation,
			GenerationStart: p.BlockTime,
			AlreadySpent:    big.NewInt(0),
			PeakValue:       big.NewInt(0),
		}
		s.utxos = append(s.utxos, u)
		s.indexOf[u.Index] = len(s.utxos) - 1
		s.accumulator.Append(p.Commitment[:])
		s.advanceLocked(p.BlockTime)
		return nil

	case EventSpendProcessed:
		p := ev.SpendProcessed
		if p == nil {
			return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("nil SpendProcessed payload")}
		}
		if p.DeclaredTime.Before(s.lastProcessedTime) {
			return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("spend declared at %s precedes last processed time %s", p.DeclaredTime, s.lastProcessedTime)}
		}
		if idx, ok := s.pendingNullifiers[p.Nullifier]; ok {
			i := s.indexOf[idx]
			s.utxos[i].Spent = true
			s.utxos[i].PendingNullifier = nil
			delete(s.pendingNullifiers, p.Nullifier)
		}
		s.accumulator.Append(p.Commitment[:])
		s.advanceLocked(p.DeclaredTime)
		return nil

	case EventGenerationDtimeUpdate:
		p := ev.DtimeUpdate
		if p == nil {
			return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("nil DtimeUpdate payload")}
		}
		i, ok := s.indexOf[p.GenerationIndex]
		if !ok {
			return &corerrors.DustError{Kind: corerrors.DustOutOfBoundsUtxo, Err: fmt.Errorf("dtime update for unknown generation index %d", p.GenerationIndex)}
		}
		s.utxos[i].Generation.Dtime = p.NewDtime
		s.advanceLocked(p.BlockTime)
		return nil

	default:
		return &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("unknown event kind %d", ev.Kind)}
	}
}

// advanceLocked moves lastProcessedTime forward; it never moves backward,
// since block times within a single replay stream are expected monotonic
// and spec.md treats going backward as the caller's replay-ordering bug.
func (s *DustLocalState) advanceLocked(t time.Time) {
	if t.After(s.lastProcessedTime) {
		s.lastProcessedTime = t
	}
}

// Balance computes the user's current dust balance at atTime: for each
// owned UTXO still generating, min(initial + rate*(t - start), capacity) -
// spent, capped at dtime; for each UTXO in decay (its backing consumed),
// the symmetric arithmetic decaying from the peak value recorded at the
// moment of consumption (spec.md §4.9; the generation/decay split and the
// exact decay formula are this module's resolution of that section's
// "symmetric arithmetic" phrase — see DESIGN.md).
func (s *DustLocalState) Balance(atTime time.Time) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := big.NewInt(0)
	for _, u := range s.utxos {
		if u.Spent {
			continue
		}
		total.Add(total, valueAt(u, atTime))
	}
	return total
}

func valueAt(u DustUtxoInfo, atTime time.Time) *big.Int {
	var raw *big.Int
	if !u.BackingConsumed {
		effectiveTime := atTime
		if u.Generation.Dtime.After(time.Time{}) && effectiveTime.After(u.Generation.Dtime) {
			effectiveTime = u.Generation.Dtime
		}
		elapsed := effectiveTime.Sub(u.GenerationStart).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		accrued := new(big.Int).Mul(u.Generation.Rate, big.NewInt(int64(elapsed)))
		raw = new(big.Int).Add(u.Generation.InitialValue, accrued)
		if u.Generation.Capacity != nil && raw.Cmp(u.Generation.Capacity) > 0 {
			raw = new(big.Int).Set(u.Generation.Capacity)
		}
	} else {
		elapsed := atTime.Sub(u.DecayStart).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		decayed := new(big.Int).Mul(u.Generation.Rate, big.NewInt(int64(elapsed)))
		raw = new(big.Int).Sub(u.PeakValue, decayed)
		if raw.Sign() < 0 {
			raw = big.NewInt(0)
		}
	}

	remaining := new(big.Int).Sub(raw, u.AlreadySpent)
	if remaining.Sign() < 0 {
		return big.NewInt(0)
	}
	return remaining
}

// BalanceOf returns utxoIndex's own spendable balance at atTime, the
// per-UTXO figure Balance's total does not expose. Used by the fee
// subsystem's smallest-first UTXO selection (spec.md §4.10 step 3).
func (s *DustLocalState) BalanceOf(utxoIndex uint32, atTime time.Time) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOf[utxoIndex]
	if !ok {
		return nil, &corerrors.DustError{Kind: corerrors.DustOutOfBoundsUtxo, Err: fmt.Errorf("unknown utxo index %d", utxoIndex)}
	}
	u := s.utxos[i]
	if u.Spent || u.PendingNullifier != nil {
		return big.NewInt(0), nil
	}
	return valueAt(u, atTime), nil
}

// UtxoCount reports how many dust UTXOs this state currently owns.
func (s *DustLocalState) UtxoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.utxos)
}

// UtxoAt returns the i-th owned dust UTXO's info.
func (s *DustLocalState) UtxoAt(i int) (DustUtxoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.utxos) {
		return DustUtxoInfo{}, &corerrors.DustError{Kind: corerrors.DustOutOfBoundsUtxo, Err: fmt.Errorf("index %d out of range [0,%d)", i, len(s.utxos))}
	}
	return s.utxos[i], nil
}

// Spend atomically marks utxoIndex as locally pending, records its
// nullifier, and produces a DustSpend covering vFee (spec.md §4.9).
// When params.GraceWindow is positive and at least one event has been
// processed, currentTime must fall within GraceWindow of lastProcessedTime
// or the call fails with DustInvalidTime.
func (s *DustLocalState) Spend(seed32 *[32]byte, utxoIndex uint32, vFee *big.Int, currentTime time.Time) (DustSpend, error) {
	defer zeroize.Array32(seed32)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustInvalidEvents, Err: fmt.Errorf("dust: state is closed")}
	}
	if vFee == nil || vFee.Sign() <= 0 {
		return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustInvalidSeed, Err: fmt.Errorf("dust: fee must be positive")}
	}
	if s.params.GraceWindow > 0 && !s.lastProcessedTime.IsZero() {
		delta := currentTime.Sub(s.lastProcessedTime)
		if delta < -s.params.GraceWindow || delta > s.params.GraceWindow {
			return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustInvalidTime, Err: fmt.Errorf("current_time %s outside grace window of last processed time %s", currentTime, s.lastProcessedTime)}
		}
	}

	i, ok := s.indexOf[utxoIndex]
	if !ok {
		return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustOutOfBoundsUtxo, Err: fmt.Errorf("unknown utxo index %d", utxoIndex)}
	}
	u := &s.utxos[i]
	if u.Spent || u.PendingNullifier != nil {
		return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustOutOfBoundsUtxo, Err: fmt.Errorf("utxo %d already spent or pending", utxoIndex)}
	}

	balance := valueAt(*u, currentTime)
	if balance.Cmp(vFee) < 0 {
		s.logger.Warn("dust: insufficient balance for spend", zap.Uint32("utxo_index", utxoIndex), zap.String("balance", balance.String()), zap.String("fee", vFee.String()))
		return DustSpend{}, &corerrors.DustError{Kind: corerrors.DustInsufficientDust, Err: fmt.Errorf("utxo %d balance %s below required fee %s", utxoIndex, balance, vFee)}
	}

	oldNullifier := deriveNullifier(*seed32, utxoIndex, u.AlreadySpent)
	remaining := new(big.Int).Sub(balance, vFee)
	newCommitment := deriveCommitment(utxoIndex, remaining, currentTime)

	u.AlreadySpent = new(big.Int).Add(u.AlreadySpent, vFee)
	u.PendingNullifier = &oldNullifier
	s.pendingNullifiers[oldNullifier] = utxoIndex
	s.accumulator.Append(newCommitment[:])

	preimage := buildProofPreimage(oldNullifier, newCommitment, vFee, remaining)

	s.logger.Debug("dust: spend recorded", zap.Uint32("utxo_index", utxoIndex), zap.String("fee", vFee.String()))
	return DustSpend{
		OldNullifier:  oldNullifier,
		NewCommitment: newCommitment,
		FeeAmount:     new(big.Int).Set(vFee),
		ProofPreimage: preimage,
	}, nil
}

// deriveNullifier and deriveCommitment stand in for the real ZK protocol's
// nullifier/commitment derivation, which only the native reference library
// can produce; this reference model derives deterministic, collision-
// resistant digests so replay/spend bookkeeping behaves correctly without
// claiming cryptographic unlinkability properties the real protocol has.
func deriveNullifier(seed32 [32]byte, utxoIndex uint32, alreadySpent *big.Int) [32]byte {
	h := sha256.New()
	h.Write(seed32[:])
	h.Write([]byte{byte(utxoIndex), byte(utxoIndex >> 8), byte(utxoIndex >> 16), byte(utxoIndex >> 24)})
	h.Write(alreadySpent.Bytes())
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func deriveCommitment(utxoIndex uint32, remaining *big.Int, at time.Time) [32]byte {
	h := sha256.New()
	h.Write([]byte{byte(utxoIndex), byte(utxoIndex >> 8), byte(utxoIndex >> 16), byte(utxoIndex >> 24)})
	h.Write(remaining.Bytes())
	buf, _ := at.MarshalBinary()
	h.Write(buf)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func buildProofPreimage(oldNullifier, newCommitment [32]byte, fee, remaining *big.Int) []byte {
	var buf bytes.Buffer
	buf.Write(oldNullifier[:])
	buf.Write(newCommitment[:])
	buf.Write(fee.Bytes())
	buf.Write(remaining.Bytes())
	return buf.Bytes()
}

// Close frees the state's resources. Mandatory and idempotent (spec.md
// §4.9); calling Close more than once, or on a never-used state, is not an
// error.
func (s *DustLocalState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.utxos = nil
	s.indexOf = nil
	s.pendingNullifiers = nil
	s.accumulator = nil
}
