// Package leb128 implements the LEB128 variable-length integer encoding
// used throughout the Wasm binary format, plus the fixed-width and
// string reads the module decoder needs from the same byte cursor.
package leb128

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/bits"
)

// maxVarintLen32/64 bound the worst-case encoded length of a 32/64-bit
// value: ceil(32/7) and ceil(64/7) groups of 7 payload bits.
const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// DecodeUint32 reads an unsigned LEB128 value of at most 32 significant bits from r.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	ret, bytesRead, err := decodeUint(r, 32)
	if err != nil {
		return 0, 0, err
	}
	return uint32(ret), bytesRead, nil
}

// DecodeUint64 reads an unsigned LEB128 value of at most 64 significant bits from r.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	return decodeUint(r, 64)
}

func decodeUint(r io.ByteReader, width int) (result uint64, bytesRead uint64, err error) {
	// The largest number of bytes a width-bit value can occupy is ceil(width/7).
	maxBytes := (width + 6) / 7
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, bytesRead, fmt.Errorf("unexpected EOF decoding uleb128: %w", io.ErrUnexpectedEOF)
			}
			return 0, bytesRead, err
		}
		bytesRead++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, bytesRead, nil
		}
		shift += 7
		if bytesRead >= uint64(maxBytes) {
			return 0, bytesRead, fmt.Errorf("invalid uleb128: too many bytes for a %d-bit value", width)
		}
	}
}

// DecodeInt32 reads a signed LEB128 value of at most 32 significant bits from r.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	ret, bytesRead, err := decodeInt(r, 32)
	if err != nil {
		return 0, 0, err
	}
	return int32(ret), bytesRead, nil
}

// DecodeInt33AsInt64 reads a signed LEB128 of at most 33 significant bits, used for
// block-type immediates that distinguish empty/valtype/typeidx encodings.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeInt(r, 33)
}

// DecodeInt64 reads a signed LEB128 value of at most 64 significant bits from r.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeInt(r, 64)
}

func decodeInt(r io.ByteReader, width int) (result int64, bytesRead uint64, err error) {
	maxBytes := (width + 6) / 7
	var shift uint
	var b byte
	for {
		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, bytesRead, fmt.Errorf("unexpected EOF decoding sleb128: %w", io.ErrUnexpectedEOF)
			}
			return 0, bytesRead, err
		}
		bytesRead++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if bytesRead >= uint64(maxBytes) {
			return 0, bytesRead, fmt.Errorf("invalid sleb128: too many bytes for a %d-bit value", width)
		}
	}
	// Sign extend if the sign bit of the final byte is set and there is room left.
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, bytesRead, nil
}

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte { return EncodeUint64(uint64(v)) }

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte { return EncodeInt64(int64(v)) }

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	out := make([]byte, 0, maxVarintLen64)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// LoadUint32 decodes from the head of buf, returning the bytes consumed.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	v, n, err := DecodeUint32(bytes.NewReader(buf))
	return v, n, err
}

// LoadUint64 decodes from the head of buf, returning the bytes consumed.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	return DecodeUint64(bytes.NewReader(buf))
}

// LoadInt32 decodes from the head of buf, returning the bytes consumed.
func LoadInt32(buf []byte) (int32, uint64, error) {
	v, n, err := DecodeInt32(bytes.NewReader(buf))
	return v, n, err
}

// LoadInt64 decodes from the head of buf, returning the bytes consumed.
func LoadInt64(buf []byte) (int64, uint64, error) {
	return DecodeInt64(bytes.NewReader(buf))
}

// F32Bits reinterprets the IEEE-754 bit pattern of v as a float32.
func F32Bits(v uint32) float32 { return math.Float32frombits(v) }

// F64Bits reinterprets the IEEE-754 bit pattern of v as a float64.
func F64Bits(v uint64) float64 { return math.Float64frombits(v) }

// TrailingZeros returns the number of trailing zero bits in v.
func TrailingZeros(v uint32) int { return bits.TrailingZeros32(v) }
