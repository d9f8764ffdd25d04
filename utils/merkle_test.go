package utils

import (
	"testing"
)

func TestBuildMerkleTreeStore(t *testing.T) {
	if root := BuildMerkleTreeStore(nil); !root.IsEqual(&ZeroHash) {
		t.Error("empty tree should commit to the zero hash")
	}

	leaf := HashH([]byte("leaf"))
	if root := BuildMerkleTreeStore([]Hash{leaf}); !root.IsEqual(&leaf) {
		t.Error("single-leaf tree root should be the leaf")
	}

	leaves := []Hash{
		HashH([]byte("a")),
		HashH([]byte("b")),
		HashH([]byte("c")),
	}
	root1 := BuildMerkleTreeStore(leaves)
	root2 := BuildMerkleTreeStore(leaves)
	if !root1.IsEqual(&root2) {
		t.Error("merkle root is not deterministic")
	}

	leaves[2] = HashH([]byte("d"))
	root3 := BuildMerkleTreeStore(leaves)
	if root1.IsEqual(&root3) {
		t.Error("merkle root ignored a leaf change")
	}
}

func TestMerklePathRoundTrip(t *testing.T) {
	leaves := make([]Hash, 7)
	for i := range leaves {
		leaves[i] = HashH([]byte{byte(i)})
	}
	root := BuildMerkleTreeStore(leaves)

	for i := range leaves {
		path, positions := MerklePath(leaves, i)
		if !VerifyMerklePath(leaves[i], path, positions, root) {
			t.Errorf("path for leaf %v does not verify", i)
		}
		// A path must not verify for a different leaf.
		other := HashH([]byte("other"))
		if VerifyMerklePath(other, path, positions, root) {
			t.Errorf("path for leaf %v verified a foreign leaf", i)
		}
	}

	if path, _ := MerklePath(leaves, -1); path != nil {
		t.Error("out-of-range index returned a path")
	}
}
