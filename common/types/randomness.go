package types

import (
	"bytes"
	"fmt"

	"github.com/spacemeshos/go-scale"
)

//go:generate scalegen -types RandomnessStateUpdate,RandomnessStateCreate

const (
	// RandomnessStateType is the type tag of the randomness beacon object.
	RandomnessStateType = "0x2::random::Random"

	// MaxRandomBytes bounds the size of a single beacon value.
	MaxRandomBytes = 1024
)

// RandomnessState is the content of the randomness beacon object.
type RandomnessState struct {
	// Epoch is the epoch of the last state change.
	Epoch EpochID
	// RandomnessRound is nil until the first update.
	RandomnessRound *RandomnessRound
	// RandomBytes is nil until the first update.
	RandomBytes []byte
}

// Initialized is true once at least one update was applied.
func (s *RandomnessState) Initialized() bool {
	return s.RandomnessRound != nil
}

// Equal compares two states field by field.
func (s *RandomnessState) Equal(other *RandomnessState) bool {
	if s.Epoch != other.Epoch || !bytes.Equal(s.RandomBytes, other.RandomBytes) {
		return false
	}
	if s.RandomnessRound == nil || other.RandomnessRound == nil {
		return s.RandomnessRound == other.RandomnessRound
	}
	return *s.RandomnessRound == *other.RandomnessRound
}

// EncodeScale implements scale codec interface. It is written by hand since scalegen has no
// encoding for an optional integer.
func (s *RandomnessState) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact32(enc, uint32(s.Epoch))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		var present byte
		if s.RandomnessRound != nil {
			present = 1
		}
		n, err := scale.EncodeByte(enc, present)
		if err != nil {
			return total, err
		}
		total += n
	}
	if s.RandomnessRound != nil {
		n, err := scale.EncodeCompact64(enc, uint64(*s.RandomnessRound))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, s.RandomBytes, MaxRandomBytes)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (s *RandomnessState) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Epoch = EpochID(field)
	}
	var present bool
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		switch field {
		case 0:
		case 1:
			present = true
		default:
			return total, fmt.Errorf("invalid option tag %d", field)
		}
	}
	s.RandomnessRound = nil
	if present {
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		round := RandomnessRound(field)
		s.RandomnessRound = &round
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxRandomBytes)
		if err != nil {
			return total, err
		}
		total += n
		if len(field) > 0 {
			s.RandomBytes = field
		} else {
			s.RandomBytes = nil
		}
	}
	return total, nil
}

// RandomnessStateUpdate is the system transaction that delivers one beacon value.
type RandomnessStateUpdate struct {
	// Epoch is the epoch the update is executed in.
	Epoch EpochID
	// Round is the consensus commit round the update was sequenced in.
	Round RoundID
	// RandomnessRound is the beacon round the value belongs to.
	RandomnessRound RandomnessRound
	RandomBytes     []byte `scale:"max=1024"` // MaxRandomBytes
	// RandomnessObjInitialSharedVersion pins the beacon object the update is meant for.
	RandomnessObjInitialSharedVersion ObjectVersion
}

// RandomnessStateCreate is recorded when the beacon object is created at an epoch boundary.
type RandomnessStateCreate struct {
	Epoch   EpochID
	Version ObjectVersion
}
