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
	"path/filepath"
	"testing"
)

// scenarioASchema builds the schema of spec Scenario A: row_id uint4, x
// int2, y uint1 var(1).
func scenarioASchema(t *testing.T) *Schema {
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

func TestScenarioAScalarInts(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]Value{
		{UInt(0), Int(-32768), UIntList([]uint64{1, 2, 3})},
		{UInt(0), Int(0), UIntList(nil)},
		{UInt(0), Int(32767), MissingValue()},
	}
	for _, r := range rows {
		if _, err := tbl.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}

	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	row0, err := tbl.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if row0[0].UInts[0] != 0 || row0[1].Ints[0] != -32768 {
		t.Errorf("get(0) = %+v", row0)
	}
	if len(row0[2].UInts) != 3 || row0[2].UInts[0] != 1 || row0[2].UInts[2] != 3 {
		t.Errorf("get(0).y = %+v, want (1,2,3)", row0[2])
	}

	row1, err := tbl.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if row1[0].UInts[0] != 1 || row1[1].Ints[0] != 0 {
		t.Errorf("get(1) = %+v", row1)
	}
	// An empty variable-length list is stored like a missing one and
	// reads back as missing.
	if !row1[2].Missing {
		t.Errorf("get(1).y = %+v, want missing", row1[2])
	} else if len(row1[2].UInts) != 0 {
		t.Errorf("get(1).y = %+v, want empty", row1[2])
	}

	row2, err := tbl.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if row2[0].UInts[0] != 2 || row2[1].Ints[0] != 32767 {
		t.Errorf("get(2) = %+v", row2)
	}
	if !row2[2].Missing {
		t.Errorf("get(2).y should be missing")
	}
}

func TestTableGetNegativeIndexWraps(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := tbl.Append([]Value{UInt(0), Int(int64(i)), MissingValue()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	last, err := tbl.Get(-1)
	if err != nil {
		t.Fatal(err)
	}
	if last[1].Ints[0] != 2 {
		t.Errorf("get(-1) = %+v, want row 2", last)
	}
	if _, err := tbl.Get(-4); err == nil {
		t.Fatal("get(-4) on a 3-row table should be NotFound")
	}
	if _, err := tbl.Get(3); err == nil {
		t.Fatal("get(3) on a 3-row table should be NotFound")
	}
}

func TestTableEmptyCloseReopen(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
}

func TestScenarioDMissingPropagation(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFloatColumn("q", "", 4, 1); err != nil {
		t.Fatal(err)
	}
	tbl, err := CreateTable(home, s, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Append([]Value{UInt(0), MissingValue()}); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Append([]Value{UInt(0), Float64(3.14)}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}

	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	row0, err := tbl.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if !row0[1].Missing {
		t.Fatal("row 0's q should be missing")
	}
	qCol, err := tbl.Schema().ColumnByName("q")
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatValue(qCol, row0[1]); got != "NA" {
		t.Errorf("FormatValue(missing) = %q, want NA", got)
	}
}

func TestScenarioFVariableLengthBoundary(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("s", "", VAR1); err != nil {
		t.Fatal(err)
	}
	tbl, err := CreateTable(home, s, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	long := make([]byte, 255)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := tbl.Append([]Value{UInt(0), Bytes(long)}); err != nil {
		t.Fatalf("255-byte string should be accepted: %v", err)
	}
	tooLong := make([]byte, 256)
	if _, err := tbl.Append([]Value{UInt(0), Bytes(tooLong)}); err == nil {
		t.Fatal("256-byte string should be rejected as TypeError")
	} else if werr, ok := err.(*Error); !ok || werr.Kind != KindType {
		t.Errorf("got %v, want KindType", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}

	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (the rejected append must not land a partial row)", tbl.Len())
	}
	row, err := tbl.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(row[1].Chars) != string(long) {
		t.Errorf("round-tripped string does not match")
	}
}

func TestTableCursorScansInOrder(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	n := 10
	for i := 0; i < n; i++ {
		if _, err := tbl.Append([]Value{UInt(0), Int(int64(i)), MissingValue()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	cur, err := tbl.Cursor(nil, 0, tbl.Len())
	if err != nil {
		t.Fatal(err)
	}
	defer cur.Close()
	var got []int64
	for cur.Next() {
		got = append(got, cur.Row()[1].Ints[0])
	}
	if err := cur.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("cursor yielded %d rows, want %d", len(got), n)
	}
	for i, v := range got {
		if v != int64(i) {
			t.Errorf("row %d: x = %d, want %d", i, v, i)
		}
	}
}

func TestCursorStopEqualsStartIsEmpty(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := tbl.Append([]Value{UInt(0), Int(int64(i)), MissingValue()}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	cur, err := tbl.Cursor(nil, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer cur.Close()
	if cur.Next() {
		t.Fatal("cursor with stop == start should yield no rows")
	}
}

func TestAppendOnReadOnlyTableIsStateError(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	tbl, err = OpenTable(home, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	_, err = tbl.Append([]Value{UInt(0), Int(1), MissingValue()})
	if err == nil {
		t.Fatal("append on a read-only table should fail")
	}
	if werr, ok := err.(*Error); !ok || werr.Kind != KindState {
		t.Errorf("got %v, want KindState", err)
	}
}

func TestDoubleCloseIsStateError(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err == nil {
		t.Fatal("second close should fail")
	}
}

func TestCreateTableWithoutForceRefusesExisting(t *testing.T) {
	home := filepath.Join(t.TempDir(), "t")
	tbl, err := CreateTable(home, scenarioASchema(t), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateTable(home, scenarioASchema(t), 0, false); err == nil {
		t.Fatal("re-creating an existing table without force should fail")
	}
	tbl, err = CreateTable(home, scenarioASchema(t), 0, true)
	if err != nil {
		t.Fatalf("re-creating with force should succeed: %v", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
}
