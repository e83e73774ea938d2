package mnemonic

import (
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip39"
)

const abandonArt24 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func TestPhraseToSeedDeterministic(t *testing.T) {
	seed1, err := PhraseToSeed(abandonArt24, "")
	if err != nil {
		t.Fatalf("PhraseToSeed: %v", err)
	}
	seed2, err := PhraseToSeed(abandonArt24, "")
	if err != nil {
		t.Fatalf("PhraseToSeed: %v", err)
	}
	if len(seed1) != 64 {
		t.Fatalf("expected 64-byte seed, got %d", len(seed1))
	}
	if string(seed1) != string(seed2) {
		t.Fatal("PhraseToSeed is not deterministic")
	}
}

func TestPhraseToSeedPassphraseChangesSeed(t *testing.T) {
	noPass, _ := PhraseToSeed(abandonArt24, "")
	withPass, _ := PhraseToSeed(abandonArt24, "TREZOR")
	if string(noPass) == string(withPass) {
		t.Fatal("expected passphrase to change derived seed")
	}
}

func TestPhraseToSeedRejectsBadChecksum(t *testing.T) {
	words := strings.Fields(abandonArt24)
	words[len(words)-1] = "abandon" // breaks the embedded checksum
	bad := strings.Join(words, " ")

	if bip39.IsMnemonicValid(bad) {
		t.Skip("mutated phrase happened to remain valid; not useful as a negative case")
	}

	if _, err := PhraseToSeed(bad, ""); err == nil {
		t.Fatal("expected error for invalid checksum")
	}
}

func TestPhraseToSeedRejectsBadWordCount(t *testing.T) {
	if _, err := PhraseToSeed("abandon abandon abandon", ""); err == nil {
		t.Fatal("expected error for unsupported word count")
	}
}

func TestPhraseToSeedRejectsOversizedPassphrase(t *testing.T) {
	huge := strings.Repeat("x", MaxPassphraseLen+1)
	if _, err := PhraseToSeed(abandonArt24, huge); err == nil {
		t.Fatal("expected error for oversized passphrase")
	}
}

func TestValidateWordCount(t *testing.T) {
	valid := []int{12, 15, 18, 21, 24}
	for _, n := range valid {
		if !ValidateWordCount(n) {
			t.Errorf("expected %d to be a valid word count", n)
		}
	}
	invalid := []int{0, 1, 13, 20, 25}
	for _, n := range invalid {
		if ValidateWordCount(n) {
			t.Errorf("expected %d to be an invalid word count", n)
		}
	}
}
