// Package bitstring implements the fixed-length bit array carried by
// status list credentials as a gzip-compressed, base64url-encoded string.
package bitstring

import (
	"fmt"

	"github.com/iotaledger/identity.rs-sub007/credential/common/util"
)

const bitsPerByte = 8

// BitString is a fixed-length sequence of bits. Bits are addressed
// right-to-left within each byte.
type BitString struct {
	bits   []byte
	length int
}

// New creates a zeroed bit string holding length bits.
func New(length int) *BitString {
	size := 1 + ((length - 1) / bitsPerByte)

	return &BitString{bits: make([]byte, size), length: length}
}

// Len returns the number of addressable bits.
func (b *BitString) Len() int {
	return b.length
}

// Get returns the bit at position.
func (b *BitString) Get(position int) (bool, error) {
	if err := b.checkPosition(position); err != nil {
		return false, err
	}

	return b.bits[position/bitsPerByte]&(1<<(position%bitsPerByte)) != 0, nil
}

// Set writes the bit at position.
func (b *BitString) Set(position int, value bool) error {
	if err := b.checkPosition(position); err != nil {
		return err
	}

	mask := byte(1 << (position % bitsPerByte))
	if value {
		b.bits[position/bitsPerByte] |= mask
	} else {
		b.bits[position/bitsPerByte] &^= mask
	}

	return nil
}

func (b *BitString) checkPosition(position int) error {
	if position < 0 || position >= b.length {
		return fmt.Errorf("position %d is out of range [0, %d)", position, b.length)
	}

	return nil
}

// Encode compresses the bits with gzip and encodes them as base64url.
func (b *BitString) Encode() (string, error) {
	encoded, err := util.GzipCompressToBase64URL(b.bits)
	if err != nil {
		return "", fmt.Errorf("failed to encode bit string: %w", err)
	}

	return encoded, nil
}

// Decode reverses Encode. The length is the number of addressable bits
// the caller expects; the decoded data must cover at least that many.
// A non-positive length accepts whatever the decoded data covers.
func Decode(encoded string, length int) (*BitString, error) {
	bits, err := util.GzipDecompressFromBase64URL(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bit string: %w", err)
	}

	if length <= 0 {
		length = len(bits) * bitsPerByte
	}

	if len(bits)*bitsPerByte < length {
		return nil, fmt.Errorf("decoded bit string holds %d bits, expected at least %d",
			len(bits)*bitsPerByte, length)
	}

	return &BitString{bits: bits, length: length}, nil
}
