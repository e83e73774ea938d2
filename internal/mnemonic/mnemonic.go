// Package mnemonic converts BIP39 phrases into the 64-byte master seed the
// key hierarchy derives from. Grounded on the teacher's
// internal/services/bip39service.Service, generalized from a
// generate-validate-convert trio that only accepted 12/24 words into the
// spec's full 12/15/18/21/24 word-count range and a bounded passphrase.
package mnemonic

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// MaxPassphraseLen bounds the passphrase to resist denial-of-service in the
// PBKDF2 stretching step (spec.md §4.1).
const MaxPassphraseLen = 256

var validWordCounts = map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}

// ValidateWordCount reports whether n is one of the BIP39 word counts this
// core accepts.
func ValidateWordCount(n int) bool {
	return validWordCounts[n]
}

// PhraseToSeed validates phrase (word count, wordlist membership, embedded
// checksum) and deterministically derives the 64-byte master seed via
// PBKDF2-HMAC-SHA512 with 2048 iterations (the BIP39 standard), folding in
// passphrase. Pure and deterministic: equal inputs always yield equal
// output. Returns ErrMnemonicInvalid on any validation failure.
func PhraseToSeed(phrase string, passphrase string) ([]byte, error) {
	if len(passphrase) > MaxPassphraseLen {
		return nil, fmt.Errorf("%w: passphrase exceeds %d bytes", corerrors.ErrMnemonicInvalid, MaxPassphraseLen)
	}

	words := splitWords(phrase)
	if !ValidateWordCount(len(words)) {
		return nil, fmt.Errorf("%w: word count %d is not one of 12/15/18/21/24", corerrors.ErrMnemonicInvalid, len(words))
	}

	if !bip39.IsMnemonicValid(phrase) {
		return nil, fmt.Errorf("%w: checksum or wordlist validation failed", corerrors.ErrMnemonicInvalid)
	}

	// bip39.NewSeed never fails once IsMnemonicValid has passed; it
	// performs the PBKDF2-HMAC-SHA512/2048-iteration stretch itself.
	seed := bip39.NewSeed(phrase, passphrase)
	if len(seed) != 64 {
		return nil, fmt.Errorf("%w: unexpected seed length %d", corerrors.ErrMnemonicInvalid, len(seed))
	}
	return seed, nil
}

func splitWords(phrase string) []string {
	var words []string
	start := -1
	for i, r := range phrase {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if !isSpace && start == -1 {
			start = i
		}
		if isSpace && start != -1 {
			words = append(words, phrase[start:i])
			start = -1
		}
	}
	if start != -1 {
		words = append(words, phrase[start:])
	}
	return words
}
