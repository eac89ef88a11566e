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
	"os"
	"path/filepath"
	"testing"
)

func TestSchemaRequiresRowIDFirst(t *testing.T) {
	s := NewSchema()
	if err := s.AddIntColumn("x", "", 2, 1); err == nil {
		t.Fatal("expected error adding a non-row_id column first")
	}
}

func TestSchemaRejectsDuplicateNames(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddIntColumn("x", "", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddIntColumn("x", "", 2, 1); err == nil {
		t.Fatal("expected error adding a duplicate column name")
	}
}

func TestTableMetadataRoundTrip(t *testing.T) {
	s := NewSchema()
	if err := s.AddIDColumn(4); err != nil {
		t.Fatal(err)
	}
	if err := s.AddIntColumn("x", "a signed column", 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCharColumn("name", "a variable string", VAR2); err != nil {
		t.Fatal(err)
	}
	stats := TableStats{NumRows: 10, MinRowSize: 8, MaxRowSize: 40, TotalRowSize: 200}

	path := filepath.Join(t.TempDir(), "table.xml")
	if err := writeTableMetadata(path, s, stats); err != nil {
		t.Fatal(err)
	}
	gotSchema, gotStats, err := readTableMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotSchema.Columns) != len(s.Columns) {
		t.Fatalf("got %d columns, want %d", len(gotSchema.Columns), len(s.Columns))
	}
	for i, c := range s.Columns {
		g := gotSchema.Columns[i]
		if g.Name != c.Name || g.ElementType != c.ElementType || g.ElementSize != c.ElementSize || g.NumElements != c.NumElements {
			t.Errorf("column %d: got %+v, want %+v", i, g, c)
		}
	}
	if gotStats != stats {
		t.Errorf("got stats %+v, want %+v", gotStats, stats)
	}
	if got := gotStats.MeanRowSize(); got != 20 {
		t.Errorf("MeanRowSize() = %v, want 20", got)
	}
}

func TestIndexMetadataRoundTrip(t *testing.T) {
	cols := []IndexKeyColumn{{Name: "chrom"}, {Name: "pos", BinWidth: 0}}
	path := filepath.Join(t.TempDir(), "index_chrom_pos.xml")
	if err := writeIndexMetadata(path, cols); err != nil {
		t.Fatal(err)
	}
	got, err := readIndexMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(cols) {
		t.Fatalf("got %d key columns, want %d", len(got), len(cols))
	}
	for i := range cols {
		if got[i] != cols[i] {
			t.Errorf("key column %d: got %+v, want %+v", i, got[i], cols[i])
		}
	}
}

func TestPreVersion0_3MetadataRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xml")
	data := `<?xml version="1.0"?><schema address_size="2" version="0.2"></schema>`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readTableMetadata(path); err == nil {
		t.Fatal("expected pre-0.3 schema document to be rejected")
	}
}
