package types

// Tag is one name/value pair attached to a transaction. Both fields are raw UTF-8; the
// wire encoding base64url-encodes them.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Tags is an ordered tag list. Order is part of the signed digest.
type Tags []Tag

// ByteSize is the combined UTF-8 length of every tag name and value
func (t Tags) ByteSize() int {
	size := 0
	for _, tag := range t {
		size += len(tag.Name) + len(tag.Value)
	}
	return size
}

// Clone returns a copy that shares no backing array with t
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// Get returns the value of the first tag named name
func (t Tags) Get(name string) (string, bool) {
	for _, tag := range t {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}
