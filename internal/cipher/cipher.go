// Package cipher is the block-cipher external collaborator: a fixed-key,
// in-place transform over arbitrary-length buffers at arbitrary absolute
// offsets, consumed by the verify/decrypt pipeline. It is grounded on the
// standard library crypto/aes and crypto/cipher primitives, the same ones
// the pack's darkprince558-JEND example uses for its own stream cipher.
package cipher

import (
	"crypto/aes"
	cryptocipher "crypto/cipher"
	"fmt"
)

// StreamCipher transforms ciphertext to plaintext (or back) in place, at an
// absolute byte offset into the artifact. Implementations must be safe to
// call concurrently across independent, non-overlapping chunks: the
// keystream position for a chunk is computed fresh from its offset, never
// carried over from a previous call.
type StreamCipher interface {
	// XORKeyStreamAt decrypts (or encrypts — CTR mode is its own inverse)
	// buf in place, treating buf[0] as the byte at absolute offset.
	XORKeyStreamAt(buf []byte, offset int64) error
}

const blockSize = aes.BlockSize // 16

// AESCTR implements StreamCipher using AES in counter mode. CTR is chosen
// because it is trivially seekable: the keystream block for any offset is
// derivable from the offset alone, which the verify pipeline requires since
// it processes the ciphertext in fixed-size chunks rather than one
// contiguous stream.
type AESCTR struct {
	block cryptocipher.Block
	// iv is the 16-byte base counter value for offset 0.
	iv [blockSize]byte
}

// NewAESCTR builds an AESCTR cipher from a key (16, 24, or 32 bytes for
// AES-128/192/256) and a 16-byte base IV.
func NewAESCTR(key []byte, iv []byte) (*AESCTR, error) {
	if len(iv) != blockSize {
		return nil, fmt.Errorf("aes-ctr: iv must be %d bytes, got %d", blockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-ctr: %w", err)
	}
	a := &AESCTR{block: block}
	copy(a.iv[:], iv)
	return a, nil
}

// XORKeyStreamAt decrypts/encrypts buf in place as if it were positioned at
// absolute offset within a single logical CTR stream starting at the base IV.
func (a *AESCTR) XORKeyStreamAt(buf []byte, offset int64) error {
	if offset < 0 {
		return fmt.Errorf("aes-ctr: negative offset %d", offset)
	}

	blockOffset := offset / blockSize
	withinBlock := int(offset % blockSize)

	counterIV := addCounter(a.iv, blockOffset)
	stream := cryptocipher.NewCTR(a.block, counterIV[:])

	// Discard the leading partial-block keystream so buf[0] aligns with the
	// keystream byte for the true absolute offset.
	if withinBlock > 0 {
		discard := make([]byte, withinBlock)
		stream.XORKeyStream(discard, discard)
	}

	stream.XORKeyStream(buf, buf)
	return nil
}

// addCounter returns iv, read as a 128-bit big-endian counter, incremented
// by n (wrapping at 2^128). This is the same counter arithmetic
// crypto/cipher's CTR stream uses, so a stream started at the returned value
// continues the stream started at iv.
func addCounter(iv [blockSize]byte, n int64) [blockSize]byte {
	out := iv
	carry := uint64(n)
	for i := blockSize - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(out[i]) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}
