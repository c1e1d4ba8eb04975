package types

import (
	"encoding/base64"
	"encoding/json"
)

// Base64Enc is a byte string that travels as standard base64 text.
type Base64Enc []byte

// MarshalText implements encoding.TextMarshaler.
func (b Base64Enc) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Base64Enc) UnmarshalText(text []byte) error {
	v, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalJSON encodes nil as null and anything else as a base64 string.
func (b Base64Enc) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base64Enc) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return b.UnmarshalText([]byte(s))
}

// String returns the base64 form.
func (b Base64Enc) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64FromString decodes a standard base64 string.
func Base64FromString(s string) (Base64Enc, error) {
	var b Base64Enc
	if err := b.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return b, nil
}

// MustBase64FromString is like Base64FromString but panics on error.
func MustBase64FromString(s string) Base64Enc {
	b, err := Base64FromString(s)
	if err != nil {
		panic(err)
	}
	return b
}
