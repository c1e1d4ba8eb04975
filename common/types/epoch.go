package types

import (
	"strconv"

	"github.com/spacemeshos/go-scale"
)

// EpochID is the running index of a validator committee period.
type EpochID uint32

// Uint32 returns the epoch as uint32.
func (e EpochID) Uint32() uint32 { return uint32(e) }

// String implements fmt.Stringer.
func (e EpochID) String() string { return strconv.FormatUint(uint64(e), 10) }

// EncodeScale implements scale codec interface.
func (e *EpochID) EncodeScale(enc *scale.Encoder) (int, error) {
	return scale.EncodeCompact32(enc, uint32(*e))
}

// DecodeScale implements scale codec interface.
func (e *EpochID) DecodeScale(dec *scale.Decoder) (int, error) {
	v, n, err := scale.DecodeCompact32(dec)
	if err != nil {
		return n, err
	}
	*e = EpochID(v)
	return n, nil
}

// RoundID is the generic ordering counter of consensus commits. Every commit delivered by the
// ordering layer carries one and they never decrease.
type RoundID uint64

// Uint64 returns the round as uint64.
func (r RoundID) Uint64() uint64 { return uint64(r) }

// String implements fmt.Stringer.
func (r RoundID) String() string { return strconv.FormatUint(uint64(r), 10) }

// RandomnessRound identifies which beacon value is delivered. It is independent of RoundID.
type RandomnessRound uint64

// Uint64 returns the randomness round as uint64.
func (r RandomnessRound) Uint64() uint64 { return uint64(r) }

// String implements fmt.Stringer.
func (r RandomnessRound) String() string { return strconv.FormatUint(uint64(r), 10) }

// CheckpointSequence is the index of a sealed checkpoint.
type CheckpointSequence uint64

// Uint64 returns the sequence as uint64.
func (c CheckpointSequence) Uint64() uint64 { return uint64(c) }

// String implements fmt.Stringer.
func (c CheckpointSequence) String() string { return strconv.FormatUint(uint64(c), 10) }
