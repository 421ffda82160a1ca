// Package transaction holds the format-2 transaction types. An UnsignedTransaction is
// assembled by Builder, sealed by the signer and turned into an immutable
// SignedTransaction whose id is always derived from its signature.
package transaction

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/util"
)

const (
	// Format is the only transaction format produced and accepted
	Format = 2

	// DefaultQuantity is the transfer amount of a data-only transaction
	DefaultQuantity = "0"
)

// ErrTransactionSealed is returned when a transaction is modified after signing began
var ErrTransactionSealed = errors.New("transaction is sealed: rebuild it to change tags or owner")

// UnsignedTransactionParams are the inputs of NewUnsignedTransaction
type UnsignedTransactionParams struct {
	// Owner is the base64url RSA modulus. Leave empty to let the signer fill it in.
	Owner  string
	Data   []byte
	Tags   types.Tags
	Reward string
	LastTx string
}

// UnsignedTransaction is a transaction that has not been signed yet. Tags may be added
// until the signer seals it.
type UnsignedTransaction struct {
	mu sync.Mutex

	owner    string
	target   string
	quantity string
	data     []byte
	reward   string
	lastTx   string
	tags     types.Tags
	sealed   bool
}

// NewUnsignedTransaction validates params and returns a data-only transaction. The
// payload is copied.
func NewUnsignedTransaction(params UnsignedTransactionParams) (*UnsignedTransaction, error) {
	if !isDecimal(params.Reward) {
		return nil, uploadErrors.ValidationField("reward", "reward must be a decimal winston amount, got %q", params.Reward)
	}
	if params.LastTx == "" {
		return nil, uploadErrors.ValidationField("last_tx", "anchor is required")
	}
	if _, err := util.B64UrlDecode(params.LastTx); err != nil {
		return nil, uploadErrors.Validation(err, "anchor is not base64url")
	}
	if params.Owner != "" {
		if _, err := util.B64UrlDecode(params.Owner); err != nil {
			return nil, uploadErrors.Validation(err, "owner is not base64url")
		}
	}
	for i, tag := range params.Tags {
		if tag.Name == "" {
			return nil, uploadErrors.ValidationField(fmt.Sprintf("tags[%d].name", i), "tag name must not be empty")
		}
	}

	data := make([]byte, len(params.Data))
	copy(data, params.Data)

	return &UnsignedTransaction{
		owner:    params.Owner,
		target:   "",
		quantity: DefaultQuantity,
		data:     data,
		reward:   params.Reward,
		lastTx:   params.LastTx,
		tags:     params.Tags.Clone(),
	}, nil
}

// AddTag appends a tag. It fails once the transaction has been sealed for signing.
func (tx *UnsignedTransaction) AddTag(name, value string) error {
	if name == "" {
		return uploadErrors.ValidationField("name", "tag name must not be empty")
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.sealed {
		return ErrTransactionSealed
	}
	tx.tags = append(tx.tags, types.Tag{Name: name, Value: value})
	return nil
}

// Seal freezes tags and owner. An empty owner is set to owner; a different non-empty
// owner is an error. Sealing again with the same owner is a no-op.
func (tx *UnsignedTransaction) Seal(owner string) error {
	if owner == "" {
		return fmt.Errorf("cannot seal a transaction with an empty owner")
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.owner == "" {
		tx.owner = owner
	} else if tx.owner != owner {
		return fmt.Errorf("transaction owner does not match signing key")
	}
	tx.sealed = true
	return nil
}

// Sealed reports whether Seal has been called
func (tx *UnsignedTransaction) Sealed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.sealed
}

func (tx *UnsignedTransaction) Owner() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.owner
}

func (tx *UnsignedTransaction) Tags() types.Tags {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.tags.Clone()
}

func (tx *UnsignedTransaction) Format() int { return Format }
func (tx *UnsignedTransaction) Target() string { return tx.target }
func (tx *UnsignedTransaction) Quantity() string { return tx.quantity }
func (tx *UnsignedTransaction) Reward() string { return tx.reward }
func (tx *UnsignedTransaction) LastTx() string { return tx.lastTx }
func (tx *UnsignedTransaction) DataSize() int64 { return int64(len(tx.data)) }
func (tx *UnsignedTransaction) Data() []byte { return cloneBytes(tx.data) }
func (tx *UnsignedTransaction) payload() []byte { return tx.data }

// SigningFields returns the signed portion of the transaction with the given data root
func (tx *UnsignedTransaction) SigningFields(dataRoot string) SigningFields {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return SigningFields{
		Format:   Format,
		Owner:    tx.owner,
		Target:   tx.target,
		Quantity: tx.quantity,
		Reward:   tx.reward,
		LastTx:   tx.lastTx,
		Tags:     tx.tags.Clone(),
		DataSize: int64(len(tx.data)),
		DataRoot: dataRoot,
	}
}

// SigningFields is every field covered by a format-2 signature, in wire (base64url)
// form except Tags, which are raw UTF-8.
type SigningFields struct {
	Format   int
	Owner    string
	Target   string
	Quantity string
	Reward   string
	LastTx   string
	Tags     types.Tags
	DataSize int64
	DataRoot string
}

// SignedTransaction is immutable. Its id is SHA-256 of its signature.
type SignedTransaction struct {
	owner     string
	target    string
	quantity  string
	data      []byte
	dataSize  int64
	dataRoot  string
	reward    string
	lastTx    string
	tags      types.Tags
	signature string
	id        string
}

// NewSignedTransaction combines a sealed transaction with its data root and raw
// signature. The id is derived here and cannot be supplied.
func NewSignedTransaction(tx *UnsignedTransaction, dataRoot string, signature []byte) (*SignedTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is nil")
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("signature is empty")
	}
	fields := tx.SigningFields(dataRoot)
	if !tx.Sealed() {
		return nil, fmt.Errorf("transaction must be sealed before it is signed")
	}
	if fields.Owner == "" {
		return nil, fmt.Errorf("transaction has no owner")
	}

	return &SignedTransaction{
		owner:     fields.Owner,
		target:    fields.Target,
		quantity:  fields.Quantity,
		data:      tx.payload(),
		dataSize:  fields.DataSize,
		dataRoot:  dataRoot,
		reward:    fields.Reward,
		lastTx:    fields.LastTx,
		tags:      fields.Tags,
		signature: util.B64UrlEncode(signature),
		id:        DeriveID(signature),
	}, nil
}

// DeriveID returns base64url(SHA-256(signature))
func DeriveID(signature []byte) string {
	sum := sha256.Sum256(signature)
	return util.B64UrlEncode(sum[:])
}

func (s *SignedTransaction) Format() int { return Format }
func (s *SignedTransaction) ID() string { return s.id }
func (s *SignedTransaction) Owner() string { return s.owner }
func (s *SignedTransaction) Target() string { return s.target }
func (s *SignedTransaction) Quantity() string { return s.quantity }
func (s *SignedTransaction) Reward() string { return s.reward }
func (s *SignedTransaction) LastTx() string { return s.lastTx }
func (s *SignedTransaction) DataSize() int64 { return s.dataSize }
func (s *SignedTransaction) DataRoot() string { return s.dataRoot }
func (s *SignedTransaction) Signature() string { return s.signature }
func (s *SignedTransaction) Tags() types.Tags { return s.tags.Clone() }
func (s *SignedTransaction) Data() []byte { return cloneBytes(s.data) }

// HasData reports whether the payload bytes travel with the transaction
func (s *SignedTransaction) HasData() bool {
	return len(s.data) > 0
}

// SigningFields returns the portion of the transaction covered by the signature
func (s *SignedTransaction) SigningFields() SigningFields {
	return SigningFields{
		Format:   Format,
		Owner:    s.owner,
		Target:   s.target,
		Quantity: s.quantity,
		Reward:   s.reward,
		LastTx:   s.lastTx,
		Tags:     s.tags.Clone(),
		DataSize: s.dataSize,
		DataRoot: s.dataRoot,
	}
}

// OwnerAddress is the wallet address of the signer
func (s *SignedTransaction) OwnerAddress() string {
	addr, err := util.OwnerToAddress(s.owner)
	if err != nil {
		return ""
	}
	return addr
}

func (s *SignedTransaction) String() string {
	return fmt.Sprintf("SignedTransaction{id: %s, dataSize: %d, tags: %d}", s.id, s.dataSize, len(s.tags))
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
