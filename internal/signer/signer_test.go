package signer

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomKey(t *testing.T) [32]byte {
	t.Helper()
	var sk [32]byte
	if _, err := rand.Read(sk[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return sk
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := New()
	sk := randomKey(t)
	pubSk := sk

	pub, err := s.PublicKey(&pubSk)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}

	for _, msg := range [][]byte{
		nil,
		{},
		[]byte("short"),
		bytes.Repeat([]byte{0xAB}, 32),
		bytes.Repeat([]byte{0xCD}, 1000),
	} {
		skForSign := sk
		sig, err := s.Sign(&skForSign, msg, false)
		if err != nil {
			t.Fatalf("Sign(%d bytes): %v", len(msg), err)
		}
		if !s.Verify(pub, msg, sig) {
			t.Fatalf("Verify failed to accept signature over %d-byte message", len(msg))
		}
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	s := New()
	sk := randomKey(t)
	pubSk := sk
	pub, _ := s.PublicKey(&pubSk)

	skForSign := sk
	sig, err := s.Sign(&skForSign, []byte("correct message"), false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if s.Verify(pub, []byte("wrong message"), sig) {
		t.Fatal("expected verification to fail for mismatched message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	s := New()
	sk := randomKey(t)
	other := randomKey(t)
	otherPub, _ := s.PublicKey(&other)

	skForSign := sk
	sig, err := s.Sign(&skForSign, []byte("message"), false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if s.Verify(otherPub, []byte("message"), sig) {
		t.Fatal("expected verification to fail for mismatched key")
	}
}

func TestSignZeroesPrivateKeyOnEveryReturnPath(t *testing.T) {
	s := New()

	sk := randomKey(t)
	if _, err := s.Sign(&sk, []byte("ok"), false); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sk != ([32]byte{}) {
		t.Fatal("expected Sign to zero the caller's private key buffer on success")
	}

	oversized := make([]byte, MaxMessageLen+1)
	sk2 := randomKey(t)
	if _, err := s.Sign(&sk2, oversized, false); err == nil {
		t.Fatal("expected SigningInputTooLarge error")
	}
	if sk2 != ([32]byte{}) {
		t.Fatal("expected Sign to zero the caller's private key buffer even on the error path")
	}
}

func TestPublicKeyZeroesPrivateKey(t *testing.T) {
	s := New()
	sk := randomKey(t)
	if _, err := s.PublicKey(&sk); err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if sk != ([32]byte{}) {
		t.Fatal("expected PublicKey to zero the caller's private key buffer")
	}
}

func TestSignZeroesSensitiveMessage(t *testing.T) {
	s := New()
	sk := randomKey(t)
	msg := []byte("dust nullifier preimage")

	if _, err := s.Sign(&sk, msg, true); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	for _, b := range msg {
		if b != 0 {
			t.Fatal("expected sensitive message buffer to be zeroed after Sign")
		}
	}
}

func TestSignRejectsOversizedInput(t *testing.T) {
	s := New()
	sk := randomKey(t)
	oversized := make([]byte, MaxMessageLen+1)
	if _, err := s.Sign(&sk, oversized, false); err == nil {
		t.Fatal("expected error for oversized signing input")
	}
}
