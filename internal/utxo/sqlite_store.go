package utxo

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// SQLiteStore is the store's reference implementation, backed by the
// pure-Go modernc.org/sqlite driver (no cgo, matching the pack's
// other_examples/Fantasim-hdpay choice of embedded storage for a wallet
// core). Schema follows spec.md §6: one row per UTXO, primary key
// (intent_hash, output_index), secondary indices on (owner_address, state)
// and (owner_address, token_type, state, value).
type SQLiteStore struct {
	db *sql.DB

	// addrLocks serializes SelectAndLock calls per address so atomicity
	// holds even if the underlying SQLite isolation level is weaker than
	// snapshot isolation for a given build (spec.md §4.5/§5).
	locksMu   sync.Mutex
	addrLocks map[string]*sync.Mutex

	subsMu sync.Mutex
	subs   map[string][]chan []TokenBalance

	logger *zap.Logger
}

// OpenSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures the schema exists. A nil logger is replaced with a no-op one,
// matching the pattern internal/submitter.New and internal/indexer.NewConsumer
// use for their own logger dependency.
func OpenSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &corerrors.StorageError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers per-connection; keep it simple and correct

	s := &SQLiteStore{
		db:        db,
		addrLocks: make(map[string]*sync.Mutex),
		subs:      make(map[string][]chan []TokenBalance),
		logger:    logger,
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	logger.Info("utxo: sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS utxos (
	intent_hash   BLOB    NOT NULL,
	output_index  INTEGER NOT NULL,
	owner_address TEXT    NOT NULL,
	owner_pubkey  BLOB    NOT NULL,
	value         TEXT    NOT NULL,
	token_type    BLOB    NOT NULL,
	state         INTEGER NOT NULL,
	created_at    INTEGER NOT NULL,
	spent_at      INTEGER,
	PRIMARY KEY (intent_hash, output_index)
);
CREATE INDEX IF NOT EXISTS idx_utxos_owner_state ON utxos(owner_address, state);
CREATE INDEX IF NOT EXISTS idx_utxos_owner_token_state_value ON utxos(owner_address, token_type, state, value);
`
	if _, err := s.db.Exec(schema); err != nil {
		return &corerrors.StorageError{Op: "migrate", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) lockFor(address string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.addrLocks[address]
	if !ok {
		m = &sync.Mutex{}
		s.addrLocks[address] = m
	}
	return m
}

func (s *SQLiteStore) Put(ctx context.Context, u Utxo) error {
	if err := s.upsert(ctx, s.db, u); err != nil {
		return err
	}
	s.notify(u.OwnerAddress)
	return nil
}

func (s *SQLiteStore) upsert(ctx context.Context, q querier, u Utxo) error {
	var spentAt sql.NullInt64
	if u.SpentAt != nil {
		spentAt = sql.NullInt64{Int64: u.SpentAt.UnixMilli(), Valid: true}
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO utxos (intent_hash, output_index, owner_address, owner_pubkey, value, token_type, state, created_at, spent_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(intent_hash, output_index) DO UPDATE SET
	owner_address = excluded.owner_address,
	owner_pubkey  = excluded.owner_pubkey,
	value         = excluded.value,
	token_type    = excluded.token_type,
	state         = excluded.state,
	spent_at      = excluded.spent_at
`,
		u.ID.IntentHash[:], u.ID.OutputIndex, u.OwnerAddress, u.OwnerPublicKey[:],
		u.Value.String(), u.TokenType[:], int(u.State), u.CreatedAt.UnixMilli(), spentAt,
	)
	if err != nil {
		return &corerrors.StorageError{Op: "upsert", Err: err}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) ApplyEvent(ctx context.Context, ev Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &corerrors.StorageError{Op: "apply_event.begin", Err: err}
	}
	defer tx.Rollback()

	touched := make(map[string]struct{})

	for _, u := range ev.CreatedUtxos {
		if err := s.upsert(ctx, tx, u); err != nil {
			return err
		}
		touched[u.OwnerAddress] = struct{}{}
	}

	for _, id := range ev.SpentIDs {
		owner, err := s.transitionTx(ctx, tx, id, []State{Available, Pending}, Spent, true)
		if err != nil {
			return err
		}
		touched[owner] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return &corerrors.StorageError{Op: "apply_event.commit", Err: err}
	}
	for addr := range touched {
		s.notify(addr)
	}
	return nil
}

// transitionTx moves a single row from one of fromStates to toState,
// returning its owner address for notification purposes. When
// allowExternal is true, a row already in Pending set by an operation this
// wallet did not initiate (e.g. a sibling device's spend, spec.md §9) still
// legally transitions to Spent.
func (s *SQLiteStore) transitionTx(ctx context.Context, tx *sql.Tx, id ID, fromStates []State, toState State, allowExternal bool) (string, error) {
	var owner string
	var state int
	err := tx.QueryRowContext(ctx, `SELECT owner_address, state FROM utxos WHERE intent_hash = ? AND output_index = ?`,
		id.IntentHash[:], id.OutputIndex).Scan(&owner, &state)
	if err != nil {
		if err == sql.ErrNoRows {
			// An externally observed spend of a UTXO we never saw created
			// (e.g. restored wallet, or activity from before this store
			// existed) is not an error: there is nothing local to
			// transition.
			if allowExternal {
				return "", nil
			}
		}
		return "", &corerrors.StorageError{Op: "transition.lookup", Err: err}
	}

	allowed := false
	for _, f := range fromStates {
		if State(state) == f {
			allowed = true
			break
		}
	}
	if !allowed {
		if allowExternal {
			return owner, nil
		}
		return owner, &corerrors.StorageError{Op: "transition", Err: fmt.Errorf("illegal transition from %s to %s for %s", State(state), toState, id)}
	}

	var spentAt any
	if toState == Spent {
		spentAt = time.Now().UnixMilli()
	}
	_, err = tx.ExecContext(ctx, `UPDATE utxos SET state = ?, spent_at = ? WHERE intent_hash = ? AND output_index = ?`,
		int(toState), spentAt, id.IntentHash[:], id.OutputIndex)
	if err != nil {
		return owner, &corerrors.StorageError{Op: "transition.update", Err: err}
	}
	return owner, nil
}

func (s *SQLiteStore) SelectAndLock(ctx context.Context, address string, tokenType TokenType, required *big.Int) ([]Utxo, error) {
	result, err := s.SelectAndLockMulti(ctx, address, map[TokenType]*big.Int{tokenType: required})
	if err != nil {
		return nil, err
	}
	return result[tokenType], nil
}

func (s *SQLiteStore) SelectAndLockMulti(ctx context.Context, address string, requests map[TokenType]*big.Int) (map[TokenType][]Utxo, error) {
	lock := s.lockFor(address)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: 0})
	if err != nil {
		return nil, &corerrors.StorageError{Op: "select_and_lock.begin", Err: err}
	}
	defer tx.Rollback()

	selected := make(map[TokenType][]Utxo, len(requests))

	for tokenType, required := range requests {
		rows, err := s.queryAvailable(ctx, tx, address, tokenType)
		if err != nil {
			return nil, err
		}
		sorted := SortAscendingByValue(rows)
		result, ok := Select(sorted, required)
		if !ok {
			available := TotalAvailable(sorted)
			s.logger.Warn("utxo: insufficient funds for selection",
				zap.String("owner_address", address),
				zap.String("required", required.String()),
				zap.String("available", available.String()))
			return nil, &corerrors.InsufficientFunds{
				TokenType: fmt.Sprintf("%x", tokenType[:]),
				Required:  required.String(),
				Available: available.String(),
			}
		}
		for _, row := range result.Rows {
			if _, err := s.transitionTx(ctx, tx, row.ID, []State{Available}, Pending, false); err != nil {
				return nil, err
			}
		}
		selected[tokenType] = result.Rows
	}

	if err := tx.Commit(); err != nil {
		return nil, &corerrors.StorageError{Op: "select_and_lock.commit", Err: err}
	}
	s.logger.Debug("utxo: selected and locked inputs", zap.String("owner_address", address), zap.Int("token_types", len(selected)))
	s.notify(address)
	return selected, nil
}

func (s *SQLiteStore) queryAvailable(ctx context.Context, tx *sql.Tx, address string, tokenType TokenType) ([]Utxo, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT intent_hash, output_index, owner_address, owner_pubkey, value, token_type, state, created_at, spent_at
FROM utxos WHERE owner_address = ? AND token_type = ? AND state = ?
`, address, tokenType[:], int(Available))
	if err != nil {
		return nil, &corerrors.StorageError{Op: "select_and_lock.query", Err: err}
	}
	defer rows.Close()
	return scanUtxos(rows)
}

func scanUtxos(rows *sql.Rows) ([]Utxo, error) {
	var out []Utxo
	for rows.Next() {
		var (
			u               Utxo
			intentHash      []byte
			ownerPubkey     []byte
			tokenType       []byte
			valueStr        string
			state           int
			createdAtMillis int64
			spentAtMillis   sql.NullInt64
		)
		if err := rows.Scan(&intentHash, &u.ID.OutputIndex, &u.OwnerAddress, &ownerPubkey, &valueStr, &tokenType, &state, &createdAtMillis, &spentAtMillis); err != nil {
			return nil, &corerrors.StorageError{Op: "scan", Err: err}
		}
		copy(u.ID.IntentHash[:], intentHash)
		copy(u.OwnerPublicKey[:], ownerPubkey)
		copy(u.TokenType[:], tokenType)
		value, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, &corerrors.StorageError{Op: "scan", Err: fmt.Errorf("invalid stored value %q", valueStr)}
		}
		u.Value = value
		u.State = State(state)
		u.CreatedAt = time.UnixMilli(createdAtMillis)
		if spentAtMillis.Valid {
			t := time.UnixMilli(spentAtMillis.Int64)
			u.SpentAt = &t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &corerrors.StorageError{Op: "scan", Err: err}
	}
	return out, nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, ids []ID) error {
	return s.transitionMany(ctx, ids, []State{Pending}, Available)
}

func (s *SQLiteStore) MarkSpent(ctx context.Context, ids []ID) error {
	return s.transitionMany(ctx, ids, []State{Pending}, Spent)
}

func (s *SQLiteStore) transitionMany(ctx context.Context, ids []ID, fromStates []State, toState State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &corerrors.StorageError{Op: "transition_many.begin", Err: err}
	}
	defer tx.Rollback()

	touched := make(map[string]struct{})
	for _, id := range ids {
		owner, err := s.transitionTx(ctx, tx, id, fromStates, toState, false)
		if err != nil {
			return err
		}
		touched[owner] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return &corerrors.StorageError{Op: "transition_many.commit", Err: err}
	}
	for addr := range touched {
		s.notify(addr)
	}
	return nil
}

func (s *SQLiteStore) balancesFor(ctx context.Context, address string) ([]TokenBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT token_type, value, state FROM utxos WHERE owner_address = ? AND state IN (?, ?)
`, address, int(Available), int(Pending))
	if err != nil {
		return nil, &corerrors.StorageError{Op: "balances.query", Err: err}
	}
	defer rows.Close()

	byToken := make(map[TokenType]*TokenBalance)
	var order []TokenType
	for rows.Next() {
		var tokenTypeBytes []byte
		var valueStr string
		var state int
		if err := rows.Scan(&tokenTypeBytes, &valueStr, &state); err != nil {
			return nil, &corerrors.StorageError{Op: "balances.scan", Err: err}
		}
		var tt TokenType
		copy(tt[:], tokenTypeBytes)
		value, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, &corerrors.StorageError{Op: "balances.scan", Err: fmt.Errorf("invalid stored value %q", valueStr)}
		}
		b, ok := byToken[tt]
		if !ok {
			b = &TokenBalance{TokenType: tt, Available: big.NewInt(0), Pending: big.NewInt(0)}
			byToken[tt] = b
			order = append(order, tt)
		}
		switch State(state) {
		case Available:
			b.Available.Add(b.Available, value)
			b.Count++
		case Pending:
			b.Pending.Add(b.Pending, value)
			b.Count++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &corerrors.StorageError{Op: "balances.scan", Err: err}
	}

	out := make([]TokenBalance, 0, len(order))
	for _, tt := range order {
		out = append(out, *byToken[tt])
	}
	return out, nil
}

func (s *SQLiteStore) ObserveBalances(ctx context.Context, address string) (<-chan []TokenBalance, func(), error) {
	ch := make(chan []TokenBalance, 1)

	s.subsMu.Lock()
	s.subs[address] = append(s.subs[address], ch)
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		subs := s.subs[address]
		for i, c := range subs {
			if c == ch {
				s.subs[address] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	initial, err := s.balancesFor(ctx, address)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	ch <- initial

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

func (s *SQLiteStore) notify(address string) {
	s.subsMu.Lock()
	subs := append([]chan []TokenBalance(nil), s.subs[address]...)
	s.subsMu.Unlock()

	if len(subs) == 0 {
		return
	}
	balances, err := s.balancesFor(context.Background(), address)
	if err != nil {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- balances:
		default:
			// Drop the stale pending value and push the fresh one so
			// observers always see the latest snapshot, never a backlog.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- balances:
			default:
			}
		}
	}
}
