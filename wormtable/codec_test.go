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

package wormtable

import (
	"math"
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddIntColumn("x", "", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUIntColumn("y", "", 1, VAR1); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	s := testSchema(t)
	rows := [][]Value{
		{UInt(0), Int(-32768), UIntList([]uint64{1, 2, 3})},
		{UInt(1), Int(0), UIntList(nil)},
		{UInt(2), Int(32767), MissingValue()},
	}
	for i, row := range rows {
		enc, err := EncodeRow(s, row)
		if err != nil {
			t.Fatalf("row %d: EncodeRow: %v", i, err)
		}
		dec, err := DecodeRow(s, enc)
		if err != nil {
			t.Fatalf("row %d: DecodeRow: %v", i, err)
		}
		if dec[0].UInts[0] != row[0].UInts[0] {
			t.Errorf("row %d: row_id = %d, want %d", i, dec[0].UInts[0], row[0].UInts[0])
		}
		if dec[1].Ints[0] != row[1].Ints[0] {
			t.Errorf("row %d: x = %d, want %d", i, dec[1].Ints[0], row[1].Ints[0])
		}
		wantMissing := len(row[2].UInts) == 0
		if dec[2].Missing != wantMissing {
			t.Errorf("row %d: y.Missing = %v, want %v", i, dec[2].Missing, wantMissing)
		}
		if !wantMissing {
			if len(dec[2].UInts) != len(row[2].UInts) {
				t.Fatalf("row %d: y has %d elements, want %d", i, len(dec[2].UInts), len(row[2].UInts))
			}
			for j := range dec[2].UInts {
				if dec[2].UInts[j] != row[2].UInts[j] {
					t.Errorf("row %d: y[%d] = %d, want %d", i, j, dec[2].UInts[j], row[2].UInts[j])
				}
			}
		}
	}
}

func TestIntBoundaryRoundTrip(t *testing.T) {
	for size := 1; size <= 8; size++ {
		lo, hi := minInt(size), maxInt(size)
		for _, v := range []int64{lo + 1, 0, hi} { // lo itself is the missing sentinel
			enc, err := encodeInt(size, v)
			if err != nil {
				t.Fatalf("size %d: encodeInt(%d): %v", size, v, err)
			}
			if got := decodeInt(size, enc); got != v {
				t.Errorf("size %d: decodeInt(encodeInt(%d)) = %d", size, v, got)
			}
		}
		// For size 8, hi+1 wraps to math.MinInt64, which is in range, so
		// there is no int64 value above the range to try.
		if size < 8 {
			if _, err := encodeInt(size, hi+1); err == nil {
				t.Errorf("size %d: encodeInt(%d) should overflow", size, hi+1)
			}
		}
	}
}

func TestFloatMissingClassifiesAnyNaN(t *testing.T) {
	for _, bits := range []uint64{missingFloat64Bits, math.Float64bits(math.NaN()), 0x7ff0000000000001} {
		v := math.Float64frombits(bits)
		if !isMissingFloat(v) {
			t.Errorf("bits %#x: isMissingFloat = false, want true", bits)
		}
	}
	if isMissingFloat(0) || isMissingFloat(-0.0) || isMissingFloat(1.5) {
		t.Error("isMissingFloat should be false for finite values")
	}
}

func TestFloatRoundTripSignedZero(t *testing.T) {
	for _, size := range []int{4, 8} {
		for _, v := range []float64{0, math.Copysign(0, -1), 1.5, -1.5} {
			enc, err := encodeFloat(size, v)
			if err != nil {
				t.Fatal(err)
			}
			got := decodeFloat(size, enc)
			if math.Signbit(got) != math.Signbit(v) || got != v {
				t.Errorf("size %d: round trip of %v got %v", size, v, got)
			}
		}
	}
}

func TestVariableArityBoundary(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUIntColumn("v1", "", 1, VAR1); err != nil {
		t.Fatal(err)
	}
	ok255 := make([]uint64, 255)
	row := []Value{UInt(0), UIntList(ok255)}
	enc, err := EncodeRow(s, row)
	if err != nil {
		t.Fatalf("255-element VAR1 column should encode: %v", err)
	}
	if _, err := DecodeRow(s, enc); err != nil {
		t.Fatalf("255-element VAR1 column should decode: %v", err)
	}

	tooMany := make([]uint64, 256)
	if _, err := EncodeRow(s, []Value{UInt(0), UIntList(tooMany)}); err == nil {
		t.Fatal("256-element VAR1 column should be rejected")
	}
}

func TestRowTooShortIsIoError(t *testing.T) {
	s := testSchema(t)
	_, err := DecodeRow(s, []byte{0, 0})
	if err == nil {
		t.Fatal("expected error decoding truncated row")
	}
	werr, ok := err.(*Error)
	if !ok || werr.Kind != KindIO {
		t.Fatalf("got %v, want KindIO", err)
	}
}

func TestFixedCharMissingRoundTrips(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("code", "", 3); err != nil {
		t.Fatal(err)
	}
	buf, err := EncodeRow(s, []Value{UInt(0), MissingValue()})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRow(s, buf)
	if err != nil {
		t.Fatal(err)
	}
	if !got[1].Missing {
		t.Errorf("decoded fixed char column = %+v, want Missing", got[1])
	}

	buf, err = EncodeRow(s, []Value{UInt(0), Bytes([]byte("abc"))})
	if err != nil {
		t.Fatal(err)
	}
	got, err = DecodeRow(s, buf)
	if err != nil {
		t.Fatal(err)
	}
	if got[1].Missing || string(got[1].Chars) != "abc" {
		t.Errorf("decoded fixed char column = %+v, want abc", got[1])
	}
}
