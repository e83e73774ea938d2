package keys

import (
	"bytes"
	"testing"

	"github.com/tyler-smith/go-bip39"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
	return bip39.NewSeed(mnemonic, "")
}

func TestDeriveIsDeterministic(t *testing.T) {
	seed := testSeed(t)

	tree1, err := NewTree(seed)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tree1.Clear()

	tree2, err := NewTree(seed)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tree2.Clear()

	k1, err := tree1.Derive(0, RoleNightExternal, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k2, err := tree2.Derive(0, RoleNightExternal, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if k1.Private != k2.Private {
		t.Fatal("expected identical private scalars from identical seed/path")
	}
	if k1.PublicXOnly != k2.PublicXOnly {
		t.Fatal("expected identical public keys from identical seed/path")
	}
}

func TestDeriveDiffersByRoleAndIndex(t *testing.T) {
	seed := testSeed(t)
	tree, err := NewTree(seed)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tree.Clear()

	external, err := tree.Derive(0, RoleNightExternal, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	internal, err := tree.Derive(0, RoleNightInternal, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	nextIndex, err := tree.Derive(0, RoleNightExternal, 1)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if external.Private == internal.Private {
		t.Fatal("expected different roles to derive different keys")
	}
	if external.Private == nextIndex.Private {
		t.Fatal("expected different indices to derive different keys")
	}
}

func TestClearZeroesAllMaterial(t *testing.T) {
	seed := testSeed(t)
	tree, err := NewTree(seed)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	k, err := tree.Derive(0, RoleZswap, 0)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if k.Private == ([32]byte{}) {
		t.Fatal("derived private key unexpectedly all-zero before Clear")
	}

	k.Clear()
	if !bytes.Equal(k.Private[:], make([]byte, 32)) {
		t.Fatal("Clear did not zero the private scalar")
	}
	if !bytes.Equal(k.PublicXOnly[:], make([]byte, 32)) {
		t.Fatal("Clear did not zero the public key")
	}
	if !bytes.Equal(k.ChainCode[:], make([]byte, 32)) {
		t.Fatal("Clear did not zero the chain code")
	}

	tree.Clear()
}
