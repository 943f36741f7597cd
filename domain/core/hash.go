package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Fingerprint accumulates float data and labels into a stable hash
type Fingerprint struct {
	buf []byte
}

// Floats appends raw IEEE-754 bits of every value
func (f *Fingerprint) Floats(values ...float64) *Fingerprint {
	var b [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		f.buf = append(f.buf, b[:]...)
	}
	return f
}

// Label appends a length-prefixed string
func (f *Fingerprint) Label(s string) *Fingerprint {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(len(s)))
	f.buf = append(f.buf, b[:]...)
	f.buf = append(f.buf, s...)
	return f
}

// Params appends a parameter map in key order
func (f *Fingerprint) Params(params map[string]float64) *Fingerprint {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.Label(k).Floats(params[k])
	}
	return f
}

// Sum returns the hash of everything appended so far
func (f *Fingerprint) Sum() Hash {
	return NewHash(f.buf)
}
