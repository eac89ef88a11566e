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
	"bytes"
	"testing"
)

func schemaWithKeyColumns(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddIntColumn("si", "", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUIntColumn("ui", "", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFloatColumn("f", "", 8, 1); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestKeyCodecTotalOrderSignedInt(t *testing.T) {
	s := schemaWithKeyColumns(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "si"}})
	if err != nil {
		t.Fatal(err)
	}
	values := []int64{-32767, -100, -1, 0, 1, 100, 32767}
	var prev []byte
	for _, v := range values {
		enc, err := kc.EncodeKey([]Value{Int(v)})
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil && bytes.Compare(prev, enc) >= 0 {
			t.Errorf("encode(%d) did not sort after previous value", v)
		}
		prev = enc
	}
}

func TestKeyCodecTotalOrderUnsignedInt(t *testing.T) {
	s := schemaWithKeyColumns(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "ui"}})
	if err != nil {
		t.Fatal(err)
	}
	values := []uint64{0, 1, 100, 65534}
	var prev []byte
	for _, v := range values {
		enc, err := kc.EncodeKey([]Value{UInt(v)})
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil && bytes.Compare(prev, enc) >= 0 {
			t.Errorf("encode(%d) did not sort after previous value", v)
		}
		prev = enc
	}
}

func TestKeyCodecTotalOrderFloat(t *testing.T) {
	s := schemaWithKeyColumns(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "f"}})
	if err != nil {
		t.Fatal(err)
	}
	values := []float64{-100.5, -1.0, -0.001, 0, 0.001, 1.0, 100.5}
	var prev []byte
	for _, v := range values {
		enc, err := kc.EncodeKey([]Value{Float64(v)})
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil && bytes.Compare(prev, enc) >= 0 {
			t.Errorf("encode(%v) did not sort after previous value", v)
		}
		prev = enc
	}
}

func TestKeyCodecMissingSortsFirst(t *testing.T) {
	s := schemaWithKeyColumns(t)
	for _, col := range []string{"si", "ui", "f"} {
		kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: col}})
		if err != nil {
			t.Fatal(err)
		}
		missing, err := kc.EncodeKey([]Value{MissingValue()})
		if err != nil {
			t.Fatal(err)
		}
		var present []byte
		switch col {
		case "si":
			present, err = kc.EncodeKey([]Value{Int(-32767)})
		case "ui":
			present, err = kc.EncodeKey([]Value{UInt(0)})
		case "f":
			present, err = kc.EncodeKey([]Value{Float64(-1e300)})
		}
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Compare(missing, present) >= 0 {
			t.Errorf("column %q: missing key did not sort before the smallest present value", col)
		}
	}
}

func TestKeyCodecRejectsCharBinWidth(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("c", "", VAR1); err != nil {
		t.Fatal(err)
	}
	if _, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "c", BinWidth: 1}}); err == nil {
		t.Fatal("expected bin_width on a char column to be rejected")
	}
}

func TestKeyCodecBinning(t *testing.T) {
	s := schemaWithKeyColumns(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "f", BinWidth: 0.1}})
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		in   float64
		want float64
	}{
		{0.05, 0.0},
		{0.12, 0.1},
		{0.19, 0.1},
		{0.21, 0.2},
	} {
		enc, err := kc.EncodeKey([]Value{Float64(tc.in)})
		if err != nil {
			t.Fatal(err)
		}
		want, err := kc.EncodeKey([]Value{Float64(tc.want)})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(enc, want) {
			t.Errorf("bin(%v) encoded differently than bin target %v", tc.in, tc.want)
		}
	}
}

func TestPrefixSuccessor(t *testing.T) {
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0x00}, []byte{0x01}},
		{[]byte{0x01, 0xFF}, []byte{0x02}},
		{[]byte{0xFE}, []byte{0xFF}},
	}
	for _, c := range cases {
		got := prefixSuccessor(c.in)
		if !bytes.Equal(got, c.want) {
			t.Errorf("prefixSuccessor(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	if got := prefixSuccessor([]byte{0xFF, 0xFF}); got != nil {
		t.Errorf("prefixSuccessor(all 0xFF) = %v, want nil", got)
	}
}

func schemaWithCharFirstKey(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("chrom", "", VAR1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUIntColumn("pos", "", 4, 1); err != nil {
		t.Fatal(err)
	}
	return s
}

// A variable-length char component that isn't the key's last column must
// still round-trip, since the canonical composite index shape puts the
// variable column first (chrom, then pos).
func TestKeyCodecVariableCharNotLastRoundTrips(t *testing.T) {
	s := schemaWithCharFirstKey(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "chrom"}, {Name: "pos"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := kc.EncodeKey([]Value{String("1"), UInt(100)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := kc.DecodeKey(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[0].Chars) != "1" || got[1].UInts[0] != 100 {
		t.Errorf("DecodeKey(EncodeKey(1, 100)) = %+v, want chrom=1 pos=100", got)
	}
}

// A string must sort before any other string it is a strict prefix of,
// even though the encoded form appends an escape/terminator suffix.
func TestKeyCodecVariableCharOrderPreservesPrefixing(t *testing.T) {
	s := schemaWithCharFirstKey(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "chrom"}, {Name: "pos"}})
	if err != nil {
		t.Fatal(err)
	}
	short, err := kc.EncodeKey([]Value{String("1"), UInt(0)})
	if err != nil {
		t.Fatal(err)
	}
	long, err := kc.EncodeKey([]Value{String("10"), UInt(0)})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Compare(short, long) >= 0 {
		t.Errorf("encoded \"1\" (%v) should sort before encoded \"10\" (%v)", short, long)
	}
}

// An embedded NUL byte in a variable-length char component must survive
// the escape-and-terminate encoding.
func TestKeyCodecVariableCharEscapesEmbeddedNUL(t *testing.T) {
	s := schemaWithCharFirstKey(t)
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "chrom"}, {Name: "pos"}})
	if err != nil {
		t.Fatal(err)
	}
	in := []byte{'a', 0x00, 'b'}
	b, err := kc.EncodeKey([]Value{Bytes(in), UInt(1)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := kc.DecodeKey(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[0].Chars, in) {
		t.Errorf("DecodeKey(EncodeKey(%v)) chrom = %v, want %v", in, got[0].Chars, in)
	}
	if got[1].UInts[0] != 1 {
		t.Errorf("DecodeKey(EncodeKey(...)) pos = %d, want 1", got[1].UInts[0])
	}
}

// A fixed-arity char key component (not last) must also decode correctly,
// using its schema-known width rather than any escaping.
func TestKeyCodecFixedCharNotLastRoundTrips(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("code", "", 3); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUIntColumn("n", "", 4, 1); err != nil {
		t.Fatal(err)
	}
	kc, err := NewKeyCodec(s, []IndexKeyColumn{{Name: "code"}, {Name: "n"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := kc.EncodeKey([]Value{Bytes([]byte("abc")), UInt(7)})
	if err != nil {
		t.Fatal(err)
	}
	got, err := kc.DecodeKey(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(got[0].Chars) != "abc" || got[1].UInts[0] != 7 {
		t.Errorf("DecodeKey(EncodeKey(abc, 7)) = %+v, want code=abc n=7", got)
	}
}
