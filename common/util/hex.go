package util

import (
	"encoding/hex"
	"errors"
	"strings"
)

// ErrSyntax is returned if a hex string can't be decoded.
var ErrSyntax = errors.New("invalid hex string")

// Encode encodes b as a hex string with 0x prefix.
func Encode(b []byte) string {
	enc := make([]byte, len(b)*2+2)
	copy(enc, "0x")
	hex.Encode(enc[2:], b)
	return string(enc)
}

// Decode decodes a hex string with an optional 0x prefix.
// Odd length input is left padded with a zero nibble, so "0x8" decodes to []byte{0x08}.
func Decode(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrSyntax, err)
	}
	return b, nil
}
