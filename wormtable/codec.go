/*
Copyright 2024 The Wormtable Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file implements the packed row format: a fixed region with one
// slot per column followed by a variable region holding the payloads of
// variable-arity columns. See the element encode/decode helpers for the
// missing-value sentinels and the extended (3,5,6,7 byte) numeric widths.
package wormtable

import (
	"encoding/binary"
	"math"
)

func minInt(size int) int64 {
	if size >= 8 {
		return math.MinInt64
	}
	return -(int64(1) << uint(8*size-1))
}

func maxInt(size int) int64 {
	return (int64(1) << uint(8*size-1)) - 1
}

func maxUint(size int) uint64 {
	if size >= 8 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(8*size)) - 1
}

func encodeInt(size int, v int64) ([]byte, error) {
	if v < minInt(size) || v > maxInt(size) {
		return nil, newErr(KindType, "value %d overflows a %d-byte signed element", v, size)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return append([]byte(nil), buf[8-size:]...), nil
}

func decodeInt(size int, b []byte) int64 {
	var buf [8]byte
	if b[0]&0x80 != 0 {
		for i := range buf {
			buf[i] = 0xFF
		}
	}
	copy(buf[8-size:], b)
	return int64(binary.BigEndian.Uint64(buf[:]))
}

func encodeUint(size int, v uint64) ([]byte, error) {
	if v > maxUint(size) {
		return nil, newErr(KindType, "value %d overflows a %d-byte unsigned element", v, size)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append([]byte(nil), buf[8-size:]...), nil
}

func decodeUint(size int, b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-size:], b)
	return binary.BigEndian.Uint64(buf[:])
}

// missingFloat32Bits/missingFloat64Bits are the fixed NaN bit patterns
// written for a missing float element. Decoding treats ANY NaN payload as
// missing (per the round-trip law that classifies NaN as missing), not
// just this exact pattern.
const (
	missingFloat32Bits uint32 = 0x7fc00001
	missingFloat64Bits uint64 = 0x7ff8000000000001
)

func encodeFloat(size int, v float64) ([]byte, error) {
	buf := make([]byte, size)
	switch size {
	case 4:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case 8:
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	default:
		return nil, newErr(KindSchema, "float element_size must be 4 or 8, got %d", size)
	}
	return buf, nil
}

func decodeFloat(size int, b []byte) float64 {
	switch size {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
}

func isMissingInt(size int, v int64) bool   { return v == minInt(size) }
func isMissingUint(size int, v uint64) bool { return v == maxUint(size) }
func isMissingFloat(v float64) bool         { return math.IsNaN(v) }

// encodeMissingElement returns the size-byte sentinel for one element of
// col's type.
func encodeMissingElement(col Column) []byte {
	switch col.ElementType {
	case SignedInt:
		b, _ := encodeInt(col.ElementSize, minInt(col.ElementSize))
		return b
	case UnsignedInt:
		b, _ := encodeUint(col.ElementSize, maxUint(col.ElementSize))
		return b
	case Float:
		buf := make([]byte, col.ElementSize)
		if col.ElementSize == 4 {
			binary.BigEndian.PutUint32(buf, missingFloat32Bits)
		} else {
			binary.BigEndian.PutUint64(buf, missingFloat64Bits)
		}
		return buf
	default:
		return make([]byte, col.ElementSize)
	}
}

// --- fixed-region slot offsets ---

func (s *Schema) columnOffsets() []int {
	offs := make([]int, len(s.Columns))
	pos := 0
	for i, c := range s.Columns {
		offs[i] = pos
		pos += c.SlotSize()
	}
	return offs
}

// offset/length slot layout for a variable-arity column.
func putVarSlot(buf []byte, col Column, offset, length int) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(offset))
	switch col.LengthWidth() {
	case 1:
		buf[2] = byte(length)
	case 2:
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	}
}

func getVarSlot(buf []byte, col Column) (offset, length int) {
	offset = int(binary.BigEndian.Uint16(buf[0:2]))
	switch col.LengthWidth() {
	case 1:
		length = int(buf[2])
	case 2:
		length = int(binary.BigEndian.Uint16(buf[2:4]))
	}
	return offset, length
}

// EncodeRow packs a full row (one Value per schema column, including
// row_id at position 0) into its on-disk byte representation.
func EncodeRow(schema *Schema, values []Value) ([]byte, error) {
	if len(values) != len(schema.Columns) {
		return nil, newErr(KindType, "row has %d values, schema has %d columns", len(values), len(schema.Columns))
	}
	fixed := make([]byte, schema.FixedRegionSize())
	offs := schema.columnOffsets()
	var variable []byte
	for i, col := range schema.Columns {
		v := values[i]
		slot := fixed[offs[i] : offs[i]+col.SlotSize()]
		if col.IsVariable() {
			payload, n, err := encodeVarElements(col, v)
			if err != nil {
				return nil, err
			}
			if n > col.MaxElements() {
				return nil, newErr(KindType, "column %q: %d elements exceeds max of %d", col.Name, n, col.MaxElements())
			}
			offset := 0
			if n > 0 {
				offset = len(variable)
				variable = append(variable, payload...)
			}
			putVarSlot(slot, col, offset, n)
		} else {
			payload, err := encodeFixedElements(col, v)
			if err != nil {
				return nil, err
			}
			copy(slot, payload)
		}
	}
	return append(fixed, variable...), nil
}

// DecodeRow unpacks a full row from its on-disk byte representation.
func DecodeRow(schema *Schema, data []byte) ([]Value, error) {
	frs := schema.FixedRegionSize()
	if len(data) < frs {
		return nil, newErr(KindIO, "row too short: have %d bytes, fixed region is %d", len(data), frs)
	}
	offs := schema.columnOffsets()
	out := make([]Value, len(schema.Columns))
	for i, col := range schema.Columns {
		slot := data[offs[i] : offs[i]+col.SlotSize()]
		if col.IsVariable() {
			offset, length := getVarSlot(slot, col)
			if offset == 0 && length == 0 {
				out[i] = MissingValue()
				continue
			}
			start := frs + offset
			width := col.ElementSize
			end := start + length*width
			if end > len(data) {
				return nil, newErr(KindIO, "column %q: variable payload out of bounds", col.Name)
			}
			v, err := decodeVarElements(col, data[start:end])
			if err != nil {
				return nil, err
			}
			out[i] = v
		} else {
			v, err := decodeFixedElements(col, slot)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	}
	return out, nil
}

func encodeFixedElements(col Column, v Value) ([]byte, error) {
	k := col.NumElements
	if v.Missing {
		buf := make([]byte, 0, col.SlotSize())
		for i := 0; i < k; i++ {
			buf = append(buf, encodeMissingElement(col)...)
		}
		return buf, nil
	}
	switch col.ElementType {
	case SignedInt:
		if len(v.Ints) != k {
			return nil, newErr(KindType, "column %q: expected %d elements, got %d", col.Name, k, len(v.Ints))
		}
		buf := make([]byte, 0, col.SlotSize())
		for _, e := range v.Ints {
			b, err := encodeInt(col.ElementSize, e)
			if err != nil {
				return nil, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, nil
	case UnsignedInt:
		if len(v.UInts) != k {
			return nil, newErr(KindType, "column %q: expected %d elements, got %d", col.Name, k, len(v.UInts))
		}
		buf := make([]byte, 0, col.SlotSize())
		for _, e := range v.UInts {
			b, err := encodeUint(col.ElementSize, e)
			if err != nil {
				return nil, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, nil
	case Float:
		if len(v.Floats) != k {
			return nil, newErr(KindType, "column %q: expected %d elements, got %d", col.Name, k, len(v.Floats))
		}
		buf := make([]byte, 0, col.SlotSize())
		for _, e := range v.Floats {
			b, err := encodeFloat(col.ElementSize, e)
			if err != nil {
				return nil, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, nil
	case Char:
		if len(v.Chars) != k {
			return nil, newErr(KindType, "column %q: expected a %d-byte string, got %d", col.Name, k, len(v.Chars))
		}
		return append([]byte(nil), v.Chars...), nil
	}
	return nil, newErr(KindSchema, "column %q: unknown element type", col.Name)
}

func decodeFixedElements(col Column, buf []byte) (Value, error) {
	k := col.NumElements
	switch col.ElementType {
	case SignedInt:
		out := make([]int64, k)
		allMissing := true
		for i := 0; i < k; i++ {
			e := decodeInt(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
			out[i] = e
			if !isMissingInt(col.ElementSize, e) {
				allMissing = false
			}
		}
		if allMissing {
			return MissingValue(), nil
		}
		return Value{Ints: out}, nil
	case UnsignedInt:
		out := make([]uint64, k)
		allMissing := true
		for i := 0; i < k; i++ {
			e := decodeUint(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
			out[i] = e
			if !isMissingUint(col.ElementSize, e) {
				allMissing = false
			}
		}
		if allMissing {
			return MissingValue(), nil
		}
		return Value{UInts: out}, nil
	case Float:
		out := make([]float64, k)
		allMissing := true
		for i := 0; i < k; i++ {
			e := decodeFloat(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
			out[i] = e
			if !isMissingFloat(e) {
				allMissing = false
			}
		}
		if allMissing {
			return MissingValue(), nil
		}
		return Value{Floats: out}, nil
	case Char:
		if isMissingChars(buf) {
			return MissingValue(), nil
		}
		return Value{Chars: append([]byte(nil), buf...)}, nil
	}
	return Value{}, newErr(KindSchema, "column %q: unknown element type", col.Name)
}

// isMissingChars reports whether buf is the all-zero sentinel
// encodeMissingElement writes for a fixed-arity Char column. Like the
// numeric sentinels, this reserves one bit pattern (here, the all-zero
// string) to mean missing, so a legitimate value consisting entirely of
// NUL bytes is indistinguishable from missing on decode.
func isMissingChars(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func encodeVarElements(col Column, v Value) ([]byte, int, error) {
	if v.Missing {
		return nil, 0, nil
	}
	switch col.ElementType {
	case Char:
		return append([]byte(nil), v.Chars...), len(v.Chars), nil
	case SignedInt:
		buf := make([]byte, 0, len(v.Ints)*col.ElementSize)
		for _, e := range v.Ints {
			b, err := encodeInt(col.ElementSize, e)
			if err != nil {
				return nil, 0, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, len(v.Ints), nil
	case UnsignedInt:
		buf := make([]byte, 0, len(v.UInts)*col.ElementSize)
		for _, e := range v.UInts {
			b, err := encodeUint(col.ElementSize, e)
			if err != nil {
				return nil, 0, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, len(v.UInts), nil
	case Float:
		buf := make([]byte, 0, len(v.Floats)*col.ElementSize)
		for _, e := range v.Floats {
			b, err := encodeFloat(col.ElementSize, e)
			if err != nil {
				return nil, 0, wrapErr(KindType, err, "column %q", col.Name)
			}
			buf = append(buf, b...)
		}
		return buf, len(v.Floats), nil
	}
	return nil, 0, newErr(KindSchema, "column %q: unknown element type", col.Name)
}

func decodeVarElements(col Column, buf []byte) (Value, error) {
	if len(buf) == 0 {
		return MissingValue(), nil
	}
	switch col.ElementType {
	case Char:
		return Value{Chars: append([]byte(nil), buf...)}, nil
	case SignedInt:
		n := len(buf) / col.ElementSize
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			out[i] = decodeInt(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
		}
		return Value{Ints: out}, nil
	case UnsignedInt:
		n := len(buf) / col.ElementSize
		out := make([]uint64, n)
		for i := 0; i < n; i++ {
			out[i] = decodeUint(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
		}
		return Value{UInts: out}, nil
	case Float:
		n := len(buf) / col.ElementSize
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = decodeFloat(col.ElementSize, buf[i*col.ElementSize:(i+1)*col.ElementSize])
		}
		return Value{Floats: out}, nil
	}
	return Value{}, newErr(KindSchema, "column %q: unknown element type", col.Name)
}
