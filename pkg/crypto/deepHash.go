package crypto

import (
	"crypto/sha512"
	"strconv"
)

// DeepHashSize is the length in bytes of a deep hash (SHA-384)
const DeepHashSize = sha512.Size384

// DeepHashItem is one node of the structure fed to DeepHash: either a byte blob or an
// ordered list of further items. Build values with Blob and List.
type DeepHashItem struct {
	blob   []byte
	list   []DeepHashItem
	isList bool
}

// Blob wraps raw bytes as a deep hash leaf
func Blob(data []byte) DeepHashItem {
	return DeepHashItem{blob: data}
}

// BlobString wraps the UTF-8 bytes of s
func BlobString(s string) DeepHashItem {
	return DeepHashItem{blob: []byte(s)}
}

// List wraps an ordered list of items. An empty list is distinct from an empty blob.
func List(items ...DeepHashItem) DeepHashItem {
	if items == nil {
		items = []DeepHashItem{}
	}
	return DeepHashItem{list: items, isList: true}
}

// DeepHash computes the tagged SHA-384 tree hash used as transaction signature data.
//
//	blob:  SHA384(SHA384("blob" || len) || SHA384(bytes))
//	list:  acc = SHA384("list" || count); acc = SHA384(acc || DeepHash(item)) for each item
//
// Lengths and counts are rendered as decimal ASCII.
func DeepHash(item DeepHashItem) [DeepHashSize]byte {
	if item.isList {
		acc := sha512.Sum384([]byte("list" + strconv.Itoa(len(item.list))))
		for _, child := range item.list {
			childHash := DeepHash(child)
			pair := make([]byte, 0, 2*DeepHashSize)
			pair = append(pair, acc[:]...)
			pair = append(pair, childHash[:]...)
			acc = sha512.Sum384(pair)
		}
		return acc
	}

	tag := sha512.Sum384([]byte("blob" + strconv.Itoa(len(item.blob))))
	data := sha512.Sum384(item.blob)
	tagged := make([]byte, 0, 2*DeepHashSize)
	tagged = append(tagged, tag[:]...)
	tagged = append(tagged, data[:]...)
	return sha512.Sum384(tagged)
}
