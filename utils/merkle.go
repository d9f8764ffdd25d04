package utils

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation.
func hashMerkleBranches(left *Hash, right *Hash) *Hash {
	var hash [HashSize * 2]byte
	copy(hash[:HashSize], left[:])
	copy(hash[HashSize:], right[:])

	newHash := HashH(hash[:])
	return &newHash
}

// BuildMerkleTreeStore creates a merkle tree from a slice of leaf hashes and
// returns its root. A nil slice yields the zero hash; odd levels duplicate
// the last node, as in the block transaction tree.
func BuildMerkleTreeStore(hashes []Hash) Hash {
	if len(hashes) == 0 {
		return ZeroHash
	}

	level := make([]*Hash, len(hashes))
	for i := range hashes {
		h := hashes[i]
		level[i] = &h
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]*Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashMerkleBranches(level[i], level[i+1]))
		}
		level = next
	}

	return *level[0]
}

// MerklePath returns the sibling hashes from the leaf at index up to the
// root, lowest level first, together with the leaf's position bits packed
// little-endian (bit i set means the leaf-side node was the right child at
// level i). Used when assembling proof-of-access structures.
func MerklePath(hashes []Hash, index int) ([]Hash, uint64) {
	if index < 0 || index >= len(hashes) {
		return nil, 0
	}

	level := make([]Hash, len(hashes))
	copy(level, hashes)

	var path []Hash
	var positions uint64
	depth := uint(0)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		sibling := index ^ 1
		path = append(path, level[sibling])
		if index&1 == 1 {
			positions |= 1 << depth
		}

		next := make([]Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, *hashMerkleBranches(&level[i], &level[i+1]))
		}
		level = next
		index /= 2
		depth++
	}

	return path, positions
}

// VerifyMerklePath recomputes the root from a leaf and the path returned by
// MerklePath.
func VerifyMerklePath(leaf Hash, path []Hash, positions uint64, root Hash) bool {
	current := leaf
	for i := range path {
		if positions&(1<<uint(i)) != 0 {
			current = *hashMerkleBranches(&path[i], &current)
		} else {
			current = *hashMerkleBranches(&current, &path[i])
		}
	}
	return current.IsEqual(&root)
}
