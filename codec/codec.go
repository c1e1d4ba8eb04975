// Package codec wraps go-scale for the values stored in the object store and the transaction
// history.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spacemeshos/go-scale"
)

// ErrTrailingBytes is returned by Decode if the buffer was not consumed completely.
var ErrTrailingBytes = errors.New("trailing bytes after decoding")

// Encodable is implemented by every value that can be encoded.
type Encodable = scale.Encodable

// Decodable is implemented by every value that can be decoded.
type Decodable = scale.Decodable

// EncodeTo encodes value to a writer stream.
func EncodeTo(w io.Writer, value Encodable) (int, error) {
	return value.EncodeScale(scale.NewEncoder(w))
}

// DecodeFrom decodes a value using data from a reader stream.
func DecodeFrom(r io.Reader, value Decodable) (int, error) {
	return value.DecodeScale(scale.NewDecoder(r))
}

var encoderPool = sync.Pool{
	New: func() any {
		b := new(bytes.Buffer)
		b.Grow(64)
		return b
	},
}

// Encode value to a byte buffer.
func Encode(value Encodable) ([]byte, error) {
	b := encoderPool.Get().(*bytes.Buffer)
	defer func() {
		b.Reset()
		encoderPool.Put(b)
	}()
	if _, err := EncodeTo(b, value); err != nil {
		return nil, fmt.Errorf("encode %T: %w", value, err)
	}
	return bytes.Clone(b.Bytes()), nil
}

// MustEncode is Encode for values that are known to be encodable.
func MustEncode(value Encodable) []byte {
	buf, err := Encode(value)
	if err != nil {
		panic(err)
	}
	return buf
}

// Decode value from a byte buffer. The whole buffer must be consumed.
func Decode(buf []byte, value Decodable) error {
	n, err := DecodeFrom(bytes.NewReader(buf), value)
	if err != nil {
		return fmt.Errorf("decode %T: %w", value, err)
	}
	if n != len(buf) {
		return fmt.Errorf("decode %T: %w (%d of %d)", value, ErrTrailingBytes, n, len(buf))
	}
	return nil
}
