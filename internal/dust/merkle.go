package dust

import (
	"crypto/sha256"
)

// Accumulator is an append-only Merkle accumulator over confirmed dust
// events (commitments and nullifiers), recomputed on each Root/Proof call.
// A real implementation backs DustLocalState with an incremental tree
// structure shared with the network's reference library via FFI; this is
// the in-process reference model SPEC_FULL.md's domain stack table calls
// for in the absence of that library, grounded on
// orbas1-Synnergy/core/merkle_tree_operations.go's BuildMerkleTree/
// MerkleProof/VerifyMerklePath, generalized from "rebuild from a caller-
// supplied leaf slice" to "append leaves one at a time as events replay."
type Accumulator struct {
	leaves [][]byte
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a leaf (a commitment or nullifier digest) to the accumulator.
func (a *Accumulator) Append(leaf []byte) {
	cp := make([]byte, len(leaf))
	copy(cp, leaf)
	a.leaves = append(a.leaves, cp)
}

// Len reports how many leaves have been appended.
func (a *Accumulator) Len() int { return len(a.leaves) }

// Root returns the current accumulator root, or the zero digest when empty.
func (a *Accumulator) Root() [32]byte {
	if len(a.leaves) == 0 {
		return [32]byte{}
	}
	tree := buildTree(a.leaves)
	return tree[len(tree)-1][0]
}

// Proof returns an inclusion proof for the leaf at index, ordered leaf-to-root.
func (a *Accumulator) Proof(index int) ([][]byte, [32]byte, bool) {
	if index < 0 || index >= len(a.leaves) {
		return nil, [32]byte{}, false
	}
	tree := buildTree(a.leaves)
	proof := make([][]byte, 0, len(tree)-1)
	idx := index
	for i := 0; i < len(tree)-1; i++ {
		level := tree[i]
		if idx%2 == 0 {
			// buildTree pairs the last node of an odd-length level with itself.
			sibling := idx + 1
			if sibling >= len(level) {
				sibling = idx
			}
			proof = append(proof, level[sibling][:])
		} else {
			proof = append(proof, level[idx-1][:])
		}
		idx /= 2
	}
	return proof, tree[len(tree)-1][0], true
}

// VerifyPath checks whether proof reconstructs root for leaf at index.
func VerifyPath(root [32]byte, leaf []byte, proof [][]byte, index int) bool {
	h := sha256.Sum256(leaf)
	hash := h[:]
	for _, p := range proof {
		if index%2 == 0 {
			hash = hashPair(hash, p)
		} else {
			hash = hashPair(p, hash)
		}
		index /= 2
	}
	return [32]byte(hash) == root
}

func buildTree(leaves [][]byte) [][][32]byte {
	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = sha256.Sum256(l)
	}
	tree := [][][32]byte{level}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = sha256.Sum256(append(level[i][:], level[i+1][:]...))
		}
		tree = append(tree, next)
		level = next
	}
	return tree
}

func hashPair(left, right []byte) []byte {
	sum := sha256.Sum256(append(append([]byte{}, left...), right...))
	return sum[:]
}
