package utxo

import (
	"math/big"
	"sort"
)

// SelectionResult is the outcome of running the selector over a sorted
// candidate list.
type SelectionResult struct {
	Rows   []Utxo
	Change *big.Int
}

// SortAscendingByValue returns a copy of rows sorted ascending by value,
// the order select_and_lock must scan in (spec.md §4.5/§4.6: smallest-first,
// for privacy — more, smaller inputs raise the anonymity set against
// amount analysis). Ties are broken by ID for a stable, reproducible order;
// spec.md notes tie-breaking does not affect correctness.
func SortAscendingByValue(rows []Utxo) []Utxo {
	sorted := make([]Utxo, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := sorted[i].Value.Cmp(sorted[j].Value)
		if cmp != 0 {
			return cmp < 0
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// Select scans sortedAvailable (must already be ascending by value) and
// returns the smallest prefix whose sum is >= required. It is a pure
// function so it can be unit-tested directly; Store.SelectAndLock wraps the
// identical logic in a transaction (spec.md §4.6).
//
// Invariants on a Selected result: sum(rows) >= required; rows is a prefix
// of sortedAvailable; change = sum(rows) - required >= 0; dropping the last
// selected row would make the sum fall below required.
func Select(sortedAvailable []Utxo, required *big.Int) (SelectionResult, bool) {
	if required.Sign() <= 0 {
		return SelectionResult{Rows: nil, Change: big.NewInt(0)}, true
	}

	sum := big.NewInt(0)
	var chosen []Utxo
	for _, row := range sortedAvailable {
		chosen = append(chosen, row)
		sum.Add(sum, row.Value)
		if sum.Cmp(required) >= 0 {
			change := new(big.Int).Sub(sum, required)
			return SelectionResult{Rows: chosen, Change: change}, true
		}
	}
	return SelectionResult{}, false
}

// TotalAvailable sums value across rows, used to report InsufficientFunds
// context.
func TotalAvailable(rows []Utxo) *big.Int {
	sum := big.NewInt(0)
	for _, r := range rows {
		sum.Add(sum, r.Value)
	}
	return sum
}
