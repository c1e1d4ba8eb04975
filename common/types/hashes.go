package types

import (
	"github.com/spacemeshos/go-scale"
	"github.com/zeebo/blake3"

	"github.com/spacemeshos/go-randomness/common/util"
)

// Hash32Length is the length of a blake3 digest used across the ledger.
const Hash32Length = 32

// Hash32 is a 32-byte blake3 digest.
type Hash32 [Hash32Length]byte

// CalcHash32 returns the blake3 digest of the concatenated chunks.
func CalcHash32(chunks ...[]byte) Hash32 {
	hasher := blake3.New()
	for _, chunk := range chunks {
		hasher.Write(chunk)
	}
	var h Hash32
	hasher.Sum(h[:0])
	return h
}

// Bytes returns the digest as a byte slice.
func (h Hash32) Bytes() []byte { return h[:] }

// Hex returns the digest in 0x prefixed hex.
func (h Hash32) Hex() string { return util.Encode(h[:]) }

// String implements fmt.Stringer.
func (h Hash32) String() string { return h.Hex() }

// ShortString returns the first 5 hex characters of the digest, for logging purposes.
func (h Hash32) ShortString() string { return h.Hex()[2:7] }

// Empty is true if the digest is all zeroes.
func (h Hash32) Empty() bool { return h == Hash32{} }

// EncodeScale implements scale codec interface.
func (h *Hash32) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, h[:])
}

// DecodeScale implements scale codec interface.
func (h *Hash32) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, h[:])
}
