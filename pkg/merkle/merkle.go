package merkle

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// ChunkData splits data into chunks of MaxChunkSize. When the remainder after a full
// chunk would be shorter than MinChunkSize, the last two chunks are split evenly instead.
// A payload whose length is a multiple of MaxChunkSize (including an empty payload)
// ends with a zero-length chunk; GenerateTransactionChunks drops it after the root is built.
func ChunkData(data []byte) []Chunk {
	chunks := make([]Chunk, 0, len(data)/MaxChunkSize+1)
	rest := data
	cursor := 0

	for len(rest) >= MaxChunkSize {
		chunkSize := MaxChunkSize

		nextChunkSize := len(rest) - MaxChunkSize
		if nextChunkSize > 0 && nextChunkSize < MinChunkSize {
			chunkSize = (len(rest) + 1) / 2
		}

		chunk := rest[:chunkSize]
		cursor += len(chunk)
		chunks = append(chunks, Chunk{
			DataHash:     sha256.Sum256(chunk),
			MinByteRange: cursor - len(chunk),
			MaxByteRange: cursor,
		})
		rest = rest[chunkSize:]
	}

	chunks = append(chunks, Chunk{
		DataHash:     sha256.Sum256(rest),
		MinByteRange: cursor,
		MaxByteRange: cursor + len(rest),
	})
	return chunks
}

// GenerateLeaves hashes each chunk into a leaf node:
// id = SHA256(SHA256(dataHash) || SHA256(note(maxByteRange)))
func GenerateLeaves(chunks []Chunk) []*Node {
	leaves := make([]*Node, len(chunks))
	for i, c := range chunks {
		note := IntToNote(c.MaxByteRange)
		leaves[i] = &Node{
			ID:           hashAll(hashOf(c.DataHash[:]), hashOf(note[:])),
			DataHash:     c.DataHash,
			MinByteRange: c.MinByteRange,
			MaxByteRange: c.MaxByteRange,
		}
	}
	return leaves
}

// BuildLayers builds the tree bottom-up and returns the root. A node without a right
// sibling is promoted to the next level unchanged.
func BuildLayers(nodes []*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}

	currentLevel := nodes
	for len(currentLevel) > 1 {
		nextLevel := make([]*Node, 0, (len(currentLevel)+1)/2)
		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 >= len(currentLevel) {
				nextLevel = append(nextLevel, currentLevel[i])
				continue
			}
			nextLevel = append(nextLevel, hashBranch(currentLevel[i], currentLevel[i+1]))
		}
		currentLevel = nextLevel
	}
	return currentLevel[0]
}

// hashBranch joins two subtrees:
// id = SHA256(SHA256(left.id) || SHA256(right.id) || SHA256(note(left.maxByteRange)))
func hashBranch(left, right *Node) *Node {
	note := IntToNote(left.MaxByteRange)
	return &Node{
		ID:           hashAll(hashOf(left.ID[:]), hashOf(right.ID[:]), hashOf(note[:])),
		ByteRange:    left.MaxByteRange,
		MaxByteRange: right.MaxByteRange,
		Left:         left,
		Right:        right,
	}
}

// GenerateProofs returns one proof per leaf, left to right.
func GenerateProofs(root *Node) []Proof {
	if root == nil {
		return nil
	}
	return resolveBranchProofs(root, nil)
}

func resolveBranchProofs(node *Node, path []byte) []Proof {
	if node.IsLeaf() {
		note := IntToNote(node.MaxByteRange)
		proof := make([]byte, 0, len(path)+HashSize+NoteSize)
		proof = append(proof, path...)
		proof = append(proof, node.DataHash[:]...)
		proof = append(proof, note[:]...)
		return []Proof{{Offset: node.MaxByteRange - 1, Path: proof}}
	}

	note := IntToNote(node.ByteRange)
	partial := make([]byte, 0, len(path)+2*HashSize+NoteSize)
	partial = append(partial, path...)
	partial = append(partial, node.Left.ID[:]...)
	partial = append(partial, node.Right.ID[:]...)
	partial = append(partial, note[:]...)

	proofs := resolveBranchProofs(node.Left, partial)
	return append(proofs, resolveBranchProofs(node.Right, partial)...)
}

// GenerateTransactionChunks chunks data, builds the tree and proofs, and discards a
// trailing zero-length chunk together with its proof.
func GenerateTransactionChunks(data []byte) (*ChunkedData, error) {
	chunks := ChunkData(data)
	root := BuildLayers(GenerateLeaves(chunks))
	if root == nil {
		return nil, fmt.Errorf("merkle tree construction failed: no root")
	}
	proofs := GenerateProofs(root)
	if len(proofs) != len(chunks) {
		return nil, fmt.Errorf("merkle tree construction failed: %d proofs for %d chunks", len(proofs), len(chunks))
	}

	last := chunks[len(chunks)-1]
	if last.MaxByteRange-last.MinByteRange == 0 {
		chunks = chunks[:len(chunks)-1]
		proofs = proofs[:len(proofs)-1]
	}

	return &ChunkedData{
		DataRoot: root.ID,
		Chunks:   chunks,
		Proofs:   proofs,
	}, nil
}

// ComputeRoot returns the data root of data
func ComputeRoot(data []byte) [HashSize]byte {
	return BuildLayers(GenerateLeaves(ChunkData(data))).ID
}

// ValidatePath checks that path proves the chunk containing byte offset dest is part of
// the tree with root id, where the tree covers [leftBound, rightBound).
func ValidatePath(id [HashSize]byte, dest, leftBound, rightBound int, path []byte) (*PathResult, bool) {
	if rightBound <= 0 {
		return nil, false
	}
	if dest >= rightBound {
		return ValidatePath(id, 0, rightBound-1, rightBound, path)
	}
	if dest < 0 {
		return ValidatePath(id, 0, 0, rightBound, path)
	}

	if len(path) == HashSize+NoteSize {
		pathData := path[:HashSize]
		endOffset := path[HashSize:]
		leafID := hashAll(hashOf(pathData), hashOf(endOffset))
		if !bytes.Equal(id[:], leafID[:]) {
			return nil, false
		}
		return &PathResult{
			Offset:     rightBound - 1,
			LeftBound:  leftBound,
			RightBound: rightBound,
			ChunkSize:  rightBound - leftBound,
		}, true
	}

	if len(path) < 2*HashSize+NoteSize {
		return nil, false
	}

	left := path[:HashSize]
	right := path[HashSize : 2*HashSize]
	offsetNote := path[2*HashSize : 2*HashSize+NoteSize]
	offset := NoteToInt(offsetNote)
	remainder := path[2*HashSize+NoteSize:]

	branchID := hashAll(hashOf(left), hashOf(right), hashOf(offsetNote))
	if !bytes.Equal(id[:], branchID[:]) {
		return nil, false
	}

	var leftID, rightID [HashSize]byte
	copy(leftID[:], left)
	copy(rightID[:], right)

	if dest < offset {
		return ValidatePath(leftID, dest, leftBound, min(rightBound, offset), remainder)
	}
	return ValidatePath(rightID, dest, max(leftBound, offset), rightBound, remainder)
}

// IntToNote renders n as a 32-byte big-endian note
func IntToNote(n int) [NoteSize]byte {
	var note [NoteSize]byte
	big.NewInt(int64(n)).FillBytes(note[:])
	return note
}

// NoteToInt parses a big-endian note
func NoteToInt(note []byte) int {
	return int(new(big.Int).SetBytes(note).Int64())
}

func hashOf(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

func hashAll(parts ...[HashSize]byte) [HashSize]byte {
	buf := make([]byte, 0, len(parts)*HashSize)
	for _, p := range parts {
		buf = append(buf, p[:]...)
	}
	return sha256.Sum256(buf)
}
