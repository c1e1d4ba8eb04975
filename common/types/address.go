package types

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/go-randomness/common/util"
)

// AddressLength is the length of an object address in bytes.
const AddressLength = 32

var (
	// SystemStateAddress is the reserved address of the system state object.
	SystemStateAddress = systemAddress(0x05)
	// RandomnessStateAddress is the reserved address of the randomness beacon object.
	RandomnessStateAddress = systemAddress(0x08)
)

// ErrInvalidAddress is returned when an address string can't be parsed.
var ErrInvalidAddress = errors.New("invalid address")

func systemAddress(b byte) Address {
	var addr Address
	addr[AddressLength-1] = b
	return addr
}

// Address identifies an object in the object store.
type Address [AddressLength]byte

// ParseAddress parses a 0x prefixed hex address. Short forms such as "0x8" are left padded with zeroes.
func ParseAddress(s string) (Address, error) {
	b, err := util.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, s, err)
	}
	if len(b) > AddressLength {
		return Address{}, fmt.Errorf("%w %q: too long", ErrInvalidAddress, s)
	}
	var addr Address
	copy(addr[AddressLength-len(b):], b)
	return addr, nil
}

// BytesToAddress left pads b into an address.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return addr
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// String returns the full 0x prefixed hex form.
func (a Address) String() string { return util.Encode(a[:]) }

// ShortString returns the 0x prefixed hex form with leading zeroes stripped, e.g. 0x8.
func (a Address) ShortString() string {
	for i, b := range a {
		if b != 0 {
			s := util.Encode(a[i:])
			if s[2] == '0' {
				return "0x" + s[3:]
			}
			return s
		}
	}
	return "0x0"
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EncodeScale implements scale codec interface.
func (a *Address) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, a[:])
}

// DecodeScale implements scale codec interface.
func (a *Address) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, a[:])
}
