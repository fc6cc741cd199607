// Package types defines the value and error types shared by the sdb
// expression evaluator and the surfaces built on top of it.
package types

import (
	"fmt"
	"strconv"
)

// Word is a 32-bit machine word as seen by the debugger. Arithmetic on
// words wraps modulo 2^32.
type Word int32

// Uint returns the unsigned bit pattern of the word.
func (w Word) Uint() uint32 {
	return uint32(w)
}

// String returns the signed decimal form of the word.
func (w Word) String() string {
	return strconv.FormatInt(int64(w), 10)
}

// Hex returns the zero-padded hexadecimal bit pattern, e.g. 0x0000002a.
func (w Word) Hex() string {
	return fmt.Sprintf("0x%08x", uint32(w))
}

// Bool converts a truth value to the word 1 or 0.
func Bool(b bool) Word {
	if b {
		return 1
	}
	return 0
}

// ParseWord parses an unsigned decimal literal that must fit in 32 bits.
// Values above 2^31-1 are reinterpreted as negative words.
func ParseWord(s string) (Word, error) {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Word(int32(uint32(u))), nil
}
