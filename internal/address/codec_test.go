package address

import (
	"crypto/sha256"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var data [32]byte
	copy(data[:], sha256.New().Sum([]byte("example x-only public key")))

	encoded, err := Encode("mn_addr_testnet", data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	hrp, decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if hrp != "mn_addr_testnet" {
		t.Fatalf("hrp = %q, want mn_addr_testnet", hrp)
	}
	if decoded != data {
		t.Fatal("round-tripped data does not match original")
	}
}

func TestDecodeRejectsChecksumMismatch(t *testing.T) {
	var data [32]byte
	encoded, err := Encode("mn_addr_testnet", data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	corrupted := []byte(encoded)
	// Flip the last character (part of the checksum), without changing length.
	if corrupted[len(corrupted)-1] == 'q' {
		corrupted[len(corrupted)-1] = 'p'
	} else {
		corrupted[len(corrupted)-1] = 'q'
	}

	if _, _, err := Decode(string(corrupted)); err == nil {
		t.Fatal("expected checksum mismatch to fail decode")
	}
}

func TestDecodeRejectsUnknownHRP(t *testing.T) {
	var data [32]byte
	encoded, err := Encode("not_a_real_family", data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, _, err := Decode(encoded); err == nil {
		t.Fatal("expected unknown HRP family to fail decode")
	}
}

func TestDecodeForNetworkRejectsWrongNetwork(t *testing.T) {
	var data [32]byte
	encoded, err := Encode("mn_addr_testnet", data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := DecodeForNetwork("mainnet", encoded); err == nil {
		t.Fatal("expected network-prefix mismatch to fail decode")
	}
}

func TestFromPublicKeyIsSHA256(t *testing.T) {
	var pub [32]byte
	for i := range pub {
		pub[i] = byte(i)
	}
	got := FromPublicKey(pub)
	want := sha256.Sum256(pub[:])
	if got != want {
		t.Fatal("FromPublicKey does not match SHA-256 of the input")
	}
}
