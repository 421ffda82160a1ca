package merkle

const (
	// MaxChunkSize is the largest chunk the payload is split into
	MaxChunkSize = 256 * 1024
	// MinChunkSize is the smallest trailing chunk allowed; a shorter tail is rebalanced
	// with its predecessor
	MinChunkSize = 32 * 1024
	// NoteSize is the width of a big-endian offset note
	NoteSize = 32
	// HashSize is the width of a node id (SHA-256)
	HashSize = 32
)

// Chunk describes one contiguous slice of the payload.
type Chunk struct {
	// DataHash is SHA-256 of the chunk bytes
	DataHash [HashSize]byte

	// MinByteRange is the inclusive start offset of the chunk in the payload
	MinByteRange int

	// MaxByteRange is the exclusive end offset of the chunk in the payload
	MaxByteRange int
}

// Node is a leaf or branch of the chunk tree.
type Node struct {
	ID [HashSize]byte

	// MaxByteRange is the exclusive end offset covered by this subtree
	MaxByteRange int

	// Leaf only
	DataHash     [HashSize]byte
	MinByteRange int

	// Branch only: the split offset, i.e. the left child's MaxByteRange
	ByteRange int
	Left      *Node
	Right     *Node
}

// IsLeaf reports whether n has no children
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Proof is the inclusion path for the chunk ending at Offset+1.
type Proof struct {
	// Offset is MaxByteRange-1 of the proven chunk
	Offset int

	// Path is the concatenation of (left id, right id, split note) for each branch from
	// the root down, followed by (data hash, end note) of the leaf
	Path []byte
}

// ChunkedData is the full chunk layout of a payload.
type ChunkedData struct {
	DataRoot [HashSize]byte
	Chunks   []Chunk
	Proofs   []Proof
}

// PathResult is returned by ValidatePath for a valid proof.
type PathResult struct {
	Offset     int
	LeftBound  int
	RightBound int
	ChunkSize  int
}
