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
	"encoding/xml"
	"os"
)

const (
	schemaAddressSize   = "2"
	tableMetadataVersion = "0.3"
	indexMetadataVersion = "0.4"
)

// RowIDColumnName is the name of the mandatory primary key column at
// schema position 0.
const RowIDColumnName = "row_id"

// Schema is the ordered list of columns making up a table, including its
// primary key column row_id at position 0.
type Schema struct {
	Columns []Column
}

// NewSchema returns an empty Schema. Callers must add the row_id column
// first via AddColumn or use AddIDColumn.
func NewSchema() *Schema {
	return &Schema{}
}

// AddIDColumn appends the mandatory row_id primary key column. size is the
// element size in bytes and must be >= 4.
func (s *Schema) AddIDColumn(size int) error {
	if len(s.Columns) != 0 {
		return newErr(KindSchema, "row_id column must be added first")
	}
	if size < 4 {
		return newErr(KindSchema, "row_id column size must be >= 4")
	}
	return s.AddColumn(Column{
		Name:        RowIDColumnName,
		Description: "Primary key",
		ElementType: UnsignedInt,
		ElementSize: size,
		NumElements: 1,
	})
}

// AddUIntColumn appends an unsigned integer column.
func (s *Schema) AddUIntColumn(name, description string, size, numElements int) error {
	return s.AddColumn(Column{Name: name, Description: description, ElementType: UnsignedInt, ElementSize: size, NumElements: numElements})
}

// AddIntColumn appends a signed integer column.
func (s *Schema) AddIntColumn(name, description string, size, numElements int) error {
	return s.AddColumn(Column{Name: name, Description: description, ElementType: SignedInt, ElementSize: size, NumElements: numElements})
}

// AddFloatColumn appends a floating point column.
func (s *Schema) AddFloatColumn(name, description string, size, numElements int) error {
	return s.AddColumn(Column{Name: name, Description: description, ElementType: Float, ElementSize: size, NumElements: numElements})
}

// AddCharColumn appends a character column. numElements is the fixed
// string length, or VAR1/VAR2 for a variable-length string.
func (s *Schema) AddCharColumn(name, description string, numElements int) error {
	return s.AddColumn(Column{Name: name, Description: description, ElementType: Char, ElementSize: 1, NumElements: numElements})
}

// AddColumn validates and appends col, assigning it the next position.
func (s *Schema) AddColumn(col Column) error {
	if err := col.validate(); err != nil {
		return err
	}
	if len(s.Columns) == 0 && col.Name != RowIDColumnName {
		return newErr(KindSchema, "first column of a schema must be %q", RowIDColumnName)
	}
	for _, existing := range s.Columns {
		if existing.Name == col.Name {
			return newErr(KindSchema, "duplicate column name %q", col.Name)
		}
	}
	col.Position = len(s.Columns)
	s.Columns = append(s.Columns, col)
	return nil
}

// ColumnByName returns the column with the given name and its position.
func (s *Schema) ColumnByName(name string) (Column, error) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, newErr(KindNotFound, "no such column %q", name)
}

// ColumnByPosition returns the column at position i.
func (s *Schema) ColumnByPosition(i int) (Column, error) {
	if i < 0 || i >= len(s.Columns) {
		return Column{}, newErr(KindNotFound, "no column at position %d", i)
	}
	return s.Columns[i], nil
}

// FixedRegionSize is the sum of every column's fixed-region slot size,
// i.e. the minimum possible size of an encoded row.
func (s *Schema) FixedRegionSize() int {
	total := 0
	for _, c := range s.Columns {
		total += c.SlotSize()
	}
	return total
}

func (s *Schema) validate() error {
	if len(s.Columns) == 0 {
		return newErr(KindSchema, "schema has no columns")
	}
	id := s.Columns[0]
	if id.Name != RowIDColumnName || id.ElementType != UnsignedInt || id.NumElements != 1 || id.ElementSize < 4 {
		return newErr(KindSchema, "column 0 must be %q, an unsigned scalar of size >= 4", RowIDColumnName)
	}
	return nil
}

// --- metadata document (table.xml) ---

type xmlColumn struct {
	XMLName     xml.Name `xml:"column"`
	Name        string   `xml:"name,attr"`
	Description string   `xml:"description,attr"`
	ElementSize int      `xml:"element_size,attr"`
	NumElements string   `xml:"num_elements,attr"`
	ElementType string   `xml:"element_type,attr"`
}

type xmlColumns struct {
	XMLName xml.Name    `xml:"columns"`
	Column  []xmlColumn `xml:"column"`
}

type xmlSchema struct {
	XMLName     xml.Name   `xml:"schema"`
	AddressSize string     `xml:"address_size,attr"`
	Version     string     `xml:"version,attr"`
	Columns     xmlColumns `xml:"columns"`
}

type xmlStat struct {
	XMLName xml.Name `xml:"stat"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type xmlStats struct {
	XMLName xml.Name  `xml:"stats"`
	Stat    []xmlStat `xml:"stat"`
}

type xmlTable struct {
	XMLName xml.Name  `xml:"table"`
	Version string    `xml:"version,attr"`
	Schema  xmlSchema `xml:"schema"`
	Stats   xmlStats  `xml:"stats"`
}

// TableStats holds the row-count and row-size statistics finalized at
// Table close time.
type TableStats struct {
	NumRows      int64
	MinRowSize   int64
	MaxRowSize   int64
	TotalRowSize int64
}

// MeanRowSize is derived, not stored: total_row_size / num_rows.
func (s TableStats) MeanRowSize() float64 {
	if s.NumRows == 0 {
		return 0
	}
	return float64(s.TotalRowSize) / float64(s.NumRows)
}

func schemaToXML(s *Schema) xmlSchema {
	cols := make([]xmlColumn, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = xmlColumn{
			Name:        c.Name,
			Description: c.Description,
			ElementSize: c.ElementSize,
			NumElements: c.numElementsString(),
			ElementType: c.ElementType.String(),
		}
	}
	return xmlSchema{AddressSize: schemaAddressSize, Version: tableMetadataVersion, Columns: xmlColumns{Column: cols}}
}

func schemaFromXML(x xmlSchema) (*Schema, error) {
	if x.Version != tableMetadataVersion {
		return nil, newErr(KindSchema, "unsupported schema version %q", x.Version)
	}
	if x.AddressSize != schemaAddressSize {
		return nil, newErr(KindSchema, "unsupported schema address_size %q", x.AddressSize)
	}
	s := &Schema{}
	for _, xc := range x.Columns.Column {
		et, err := parseElementType(xc.ElementType)
		if err != nil {
			return nil, err
		}
		n, err := parseNumElements(xc.NumElements)
		if err != nil {
			return nil, err
		}
		col := Column{
			Name:        xc.Name,
			Description: xc.Description,
			ElementType: et,
			ElementSize: xc.ElementSize,
			NumElements: n,
			Position:    len(s.Columns),
		}
		if err := col.validate(); err != nil {
			return nil, err
		}
		s.Columns = append(s.Columns, col)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var statNames = []string{"num_rows", "min_row_size", "max_row_size", "total_row_size"}

func statsToXML(st TableStats) xmlStats {
	vals := map[string]int64{
		"num_rows":        st.NumRows,
		"min_row_size":    st.MinRowSize,
		"max_row_size":    st.MaxRowSize,
		"total_row_size":  st.TotalRowSize,
	}
	out := make([]xmlStat, 0, len(statNames))
	for _, name := range statNames {
		out = append(out, xmlStat{Name: name, Value: itoa(vals[name])})
	}
	return xmlStats{Stat: out}
}

func statsFromXML(x xmlStats) (TableStats, error) {
	var st TableStats
	for _, s := range x.Stat {
		n, err := parseInt64(s.Value)
		if err != nil {
			return st, newErr(KindSchema, "invalid stat %q value %q", s.Name, s.Value)
		}
		switch s.Name {
		case "num_rows":
			st.NumRows = n
		case "min_row_size":
			st.MinRowSize = n
		case "max_row_size":
			st.MaxRowSize = n
		case "total_row_size":
			st.TotalRowSize = n
		default:
			return st, newErr(KindSchema, "unknown table statistic %q", s.Name)
		}
	}
	return st, nil
}

// writeTableMetadata serializes schema and stats to the named file.
func writeTableMetadata(path string, s *Schema, st TableStats) error {
	doc := xmlTable{
		Version: tableMetadataVersion,
		Schema:  schemaToXML(s),
		Stats:   statsToXML(st),
	}
	return writeXML(path, doc)
}

// readTableMetadata parses the table.xml metadata document at path.
func readTableMetadata(path string) (*Schema, TableStats, error) {
	var probe struct {
		XMLName xml.Name
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, TableStats{}, wrapErr(KindIO, err, "reading table metadata %s", path)
	}
	if err := xml.Unmarshal(data, &probe); err != nil {
		return nil, TableStats{}, wrapErr(KindSchema, err, "parsing table metadata %s", path)
	}
	if probe.XMLName.Local == "schema" {
		return nil, TableStats{}, newErr(KindSchema, "table metadata %s is a pre-0.3 layout; table must be rebuilt", path)
	}
	if probe.XMLName.Local != "table" {
		return nil, TableStats{}, newErr(KindSchema, "table metadata %s: invalid root element %q", path, probe.XMLName.Local)
	}
	var doc xmlTable
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, TableStats{}, wrapErr(KindSchema, err, "parsing table metadata %s", path)
	}
	if doc.Version != tableMetadataVersion {
		return nil, TableStats{}, newErr(KindSchema, "table metadata %s: unsupported version %q", path, doc.Version)
	}
	schema, err := schemaFromXML(doc.Schema)
	if err != nil {
		return nil, TableStats{}, err
	}
	stats, err := statsFromXML(doc.Stats)
	if err != nil {
		return nil, TableStats{}, err
	}
	return schema, stats, nil
}

// --- index metadata document (index_<name>.xml) ---

type xmlKeyColumn struct {
	XMLName  xml.Name `xml:"key_column"`
	Name     string   `xml:"name,attr"`
	BinWidth string   `xml:"bin_width,attr"`
}

type xmlKeyColumns struct {
	XMLName   xml.Name       `xml:"key_columns"`
	KeyColumn []xmlKeyColumn `xml:"key_column"`
}

type xmlIndex struct {
	XMLName    xml.Name      `xml:"index"`
	Version    string        `xml:"version,attr"`
	KeyColumns xmlKeyColumns `xml:"key_columns"`
}

// IndexKeyColumn names one key column and its bin width.
type IndexKeyColumn struct {
	Name     string
	BinWidth float64
}

func writeIndexMetadata(path string, cols []IndexKeyColumn) error {
	xc := make([]xmlKeyColumn, len(cols))
	for i, c := range cols {
		xc[i] = xmlKeyColumn{Name: c.Name, BinWidth: formatFloat(c.BinWidth)}
	}
	doc := xmlIndex{Version: indexMetadataVersion, KeyColumns: xmlKeyColumns{KeyColumn: xc}}
	return writeXML(path, doc)
}

func readIndexMetadata(path string) ([]IndexKeyColumn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(KindIO, err, "reading index metadata %s", path)
	}
	var doc xmlIndex
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, wrapErr(KindSchema, err, "parsing index metadata %s", path)
	}
	if doc.XMLName.Local != "index" {
		return nil, newErr(KindSchema, "index metadata %s: invalid root element %q", path, doc.XMLName.Local)
	}
	if doc.Version != indexMetadataVersion {
		return nil, newErr(KindSchema, "index metadata %s: unsupported version %q", path, doc.Version)
	}
	cols := make([]IndexKeyColumn, len(doc.KeyColumns.KeyColumn))
	for i, xc := range doc.KeyColumns.KeyColumn {
		w, err := parseFloat(xc.BinWidth)
		if err != nil {
			return nil, newErr(KindSchema, "index metadata %s: invalid bin_width %q", path, xc.BinWidth)
		}
		cols[i] = IndexKeyColumn{Name: xc.Name, BinWidth: w}
	}
	return cols, nil
}

func writeXML(path string, doc interface{}) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return wrapErr(KindIO, err, "marshaling %s", path)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return wrapErr(KindIO, err, "writing %s", path)
	}
	return nil
}
