package ioplus

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeCount assembles a 4 byte little-endian edge counter.
func DecodeCount(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("counter needs 4 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeEncoderCount assembles a signed 32-bit encoder counter. The board
// firmware stores it in its native (little-endian) layout.
func DecodeEncoderCount(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("encoder counter needs 4 bytes, got %d", len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// milli converts a unit value to its rounded thousandths.
func milli(v float64) uint16 {
	return uint16(math.Round(v * 1000))
}
