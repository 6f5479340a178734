package shield

import (
	"fmt"
)

// padByte marks the start of the padding. Everything after it is zero.
const padByte = 0x80

// Blocks is plaintext padded to a whole number of blocks.
type Blocks struct {
	blockSize int
	data      []byte
}

// Pad pads the data to a multiple of blockSize using ISO/IEC 7816-4 padding: a 0x80 byte followed by
// as many zeros as are needed. At least one byte of padding is always added, so empty input pads to
// a full block. Returns ErrInvalidBlockSize if blockSize is not positive.
func Pad(unpadded []byte, blockSize int) (*Blocks, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	n := len(unpadded) + blockSize - len(unpadded)%blockSize
	data := make([]byte, n)
	copy(data, unpadded)
	data[len(unpadded)] = padByte

	return &Blocks{blockSize: blockSize, data: data}, nil
}

// BlockSize returns the block size.
func (b *Blocks) BlockSize() int {
	return b.blockSize
}

// Bytes returns the padded data.
func (b *Blocks) Bytes() []byte {
	return b.data
}

// Unpad returns the original data.
func (b *Blocks) Unpad() ([]byte, error) {
	return Unpad(b.data, b.blockSize)
}

// Unpad removes padding added by Pad. Returns ErrInvalidBlockSize if blockSize is not positive and
// ErrInvalidPadding if the data is not a whole number of blocks or doesn't end in valid padding.
//
// The scan for the padding byte always reads the full final block, so the time taken doesn't depend
// on the amount of padding.
func Unpad(padded []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	if len(padded) == 0 || len(padded)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}

	var acc, padLen, valid uint

	tail := len(padded) - 1

	for i := 0; i < blockSize; i++ {
		c := uint(padded[tail-i])

		// 1 iff every byte so far was zero, no barrier has been seen, and this is the barrier.
		isBarrier := (((acc - 1) & (padLen - 1) & ((c ^ padByte) - 1)) >> 8) & 1
		acc |= c
		padLen |= uint(i) & (1 + ^isBarrier)
		valid |= isBarrier
	}

	if valid != 1 {
		return nil, ErrInvalidPadding
	}

	return padded[:tail-int(padLen)], nil
}
