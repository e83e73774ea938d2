// Package encoder produces the network's canonical binary transaction
// encoding and the per-input signing messages derived from it (spec.md
// §4.7, §4.10). Canonical form is not implementable from first
// principles — it is whatever the network's reference library emits — so,
// like internal/shielded, this package is mostly an interface boundary plus
// a cgo bridge to that library; see native_cgo.go/native_nocgo.go. The one
// piece of behavior this package does own outright is the canonical sort
// order applied to an intent's inputs and outputs before either signing or
// encoding (sort.go) — spec.md requires the order be deterministic and
// shared between the assembler's signing step and the final wire encoding,
// but does not pin the concrete comparator, so this module's choice is
// recorded as an Open Question in the grounding ledger.
package encoder

import (
	"github.com/shielded-utxo/walletcore/internal/assembler"
)

// Encoder is the FFI boundary every caller depends on, loaded once at
// process wiring time (spec.md §9's "no hidden global state" applies to
// pinned-version cryptography/codec artifacts exactly as it does to
// internal/shielded's KeyDeriver).
type Encoder interface {
	// Encode canonicalizes intent's offer in place and returns the wire
	// bytes for an intent with no dust actions attached.
	Encode(intent *assembler.Intent) ([]byte, error)

	// EncodeWithDust is Encode for an intent whose DustActions field is
	// already populated; used for the second pass of the two-pass fee flow
	// (fee.go) once a fee amount has been covered by dust spends.
	EncodeWithDust(intent *assembler.Intent) ([]byte, error)

	// CanonicalSigningMessages canonicalizes intent's offer in place and
	// returns one signing message per input, in the same order Encode will
	// later place them — satisfying assembler.SigningMessages.
	CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error)

	// Version reports the linked native library's version string.
	Version() string
}

var _ assembler.SigningMessages = (Encoder)(nil)
