package store

import "sync"

// Key prefixes used by the document backends.
const (
	collectionPrefix = "col:"
	kvPrefix         = "kv:"
)

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// Collection names and drawing keys are short; 128 bytes covers
		// "kv:" plus a drawing sub-key with a long slide title.
		return make([]byte, 0, 128)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// The returned slice is valid until releaseKey is called.
//
// Usage:
//
//	key := buildKey(collectionPrefix, "books")
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
