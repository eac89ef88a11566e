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

// Table is the top-level handle on a wormtable home directory: the row
// data file, its row_id directory, and the table.xml metadata document
// describing the schema and accumulated row-size statistics.
package wormtable

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wormtable/wormtable/kv"
)

// DefaultCacheSize is the block cache size used when a Table or Index is
// opened without an explicit one.
const DefaultCacheSize = kv.DefaultCacheSize

// ParseCacheSize accepts a plain byte count or a K/M/G-suffixed string
// (e.g. "64M") and returns it in bytes.
func ParseCacheSize(v interface{}) (int, error) { return kv.ParseCacheSize(v) }

// Mode records whether a Table is a fresh, append-only table made by
// CreateTable or an existing, closed one opened for reading by OpenTable.
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

const (
	tableDataName = "table.dat"
	tableDirName  = "table.db"
	tableXMLName  = "table.xml"
)

func buildName(name string) string {
	return fmt.Sprintf("_build_%d_%s", os.Getpid(), name)
}

// Table is a handle on one wormtable home directory. A Table opened in
// WriteMode accepts Append calls and finalizes its metadata on Close. One
// opened in ReadMode supports Get, Cursor and OpenIndex.
type Table struct {
	homeDir string
	mode    Mode
	schema  *Schema
	rows    *rowStore

	mu            sync.Mutex
	closed        bool
	openIndexes   int
	minRowSize    int64
	maxRowSize    int64
	totalRowSize  int64
}

// CreateTable starts a new table under homeDir, which is created if
// necessary. If force is true, any existing table there is overwritten;
// otherwise CreateTable fails if one is already present.
func CreateTable(homeDir string, schema *Schema, cacheSize int, force bool) (*Table, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return nil, wrapErr(KindIO, err, "creating table directory %s", homeDir)
	}
	xmlPath := filepath.Join(homeDir, tableXMLName)
	if _, err := os.Stat(xmlPath); err == nil {
		if !force {
			return nil, newErr(KindState, "table already exists at %s", homeDir)
		}
		if err := removeIfExists(filepath.Join(homeDir, tableDataName)); err != nil {
			return nil, err
		}
		if err := removeIfExists(filepath.Join(homeDir, tableDirName)); err != nil {
			return nil, err
		}
		if err := removeIfExists(xmlPath); err != nil {
			return nil, err
		}
	}
	dataPath := filepath.Join(homeDir, buildName(tableDataName))
	dirPath := filepath.Join(homeDir, buildName(tableDirName))
	rows, err := openRowStoreWrite(dataPath, dirPath, cacheSize)
	if err != nil {
		return nil, err
	}
	return &Table{
		homeDir:    homeDir,
		mode:       WriteMode,
		schema:     schema,
		rows:       rows,
		minRowSize: -1,
	}, nil
}

// OpenTable opens an existing, closed table for reading.
func OpenTable(homeDir string, cacheSize int) (*Table, error) {
	schema, stats, err := readTableMetadata(filepath.Join(homeDir, tableXMLName))
	if err != nil {
		return nil, err
	}
	rows, err := openRowStoreRead(filepath.Join(homeDir, tableDataName), filepath.Join(homeDir, tableDirName), cacheSize, uint64(stats.NumRows))
	if err != nil {
		return nil, err
	}
	return &Table{
		homeDir:      homeDir,
		mode:         ReadMode,
		schema:       schema,
		rows:         rows,
		minRowSize:   stats.MinRowSize,
		maxRowSize:   stats.MaxRowSize,
		totalRowSize: stats.TotalRowSize,
	}, nil
}

// Schema returns the table's column schema.
func (t *Table) Schema() *Schema { return t.schema }

// HomeDir returns the directory the table was opened from.
func (t *Table) HomeDir() string { return t.homeDir }

// Len returns the number of rows committed so far.
func (t *Table) Len() uint64 { return t.rows.len() }

// Stats returns the table's row-count and row-size statistics. In
// WriteMode these reflect the rows appended so far, not yet finalized to
// table.xml.
func (t *Table) Stats() TableStats {
	return TableStats{
		NumRows:      int64(t.rows.len()),
		MinRowSize:   maxInt64(t.minRowSize, 0),
		MaxRowSize:   t.maxRowSize,
		TotalRowSize: t.totalRowSize,
	}
}

// Append encodes values through the table's codec and appends the
// resulting row. values must align 1:1 with the schema's columns,
// including row_id at position 0 — its value is ignored and replaced
// with the assigned row_id.
func (t *Table) Append(values []Value) (uint64, error) {
	if t.mode != WriteMode {
		return 0, newErr(KindState, "table %s is not open for writing", t.homeDir)
	}
	next := t.rows.len()
	rowValues := append([]Value(nil), values...)
	if len(rowValues) > 0 {
		rowValues[0] = UInt(next)
	}
	encoded, err := EncodeRow(t.schema, rowValues)
	if err != nil {
		return 0, err
	}
	return t.AppendEncoded(encoded)
}

// AppendEncoded appends a row that has already been run through
// EncodeRow. The bytes are stored as given; the row_id encoded in them is
// not rewritten.
func (t *Table) AppendEncoded(encoded []byte) (uint64, error) {
	if t.mode != WriteMode {
		return 0, newErr(KindState, "table %s is not open for writing", t.homeDir)
	}
	id, err := t.rows.append(encoded)
	if err != nil {
		return 0, err
	}
	n := int64(len(encoded))
	if t.minRowSize < 0 || n < t.minRowSize {
		t.minRowSize = n
	}
	if n > t.maxRowSize {
		t.maxRowSize = n
	}
	t.totalRowSize += n
	return id, nil
}

// Get returns the decoded row at index i. A negative i counts back from
// the end of the table, as in i := len(t) + i.
func (t *Table) Get(i int64) ([]Value, error) {
	n := int64(t.rows.len())
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, newErr(KindNotFound, "row index %d out of range for table of length %d", i, n)
	}
	raw, err := t.rows.get(uint64(i))
	if err != nil {
		return nil, err
	}
	return DecodeRow(t.schema, raw)
}

// GetEncoded returns the raw encoded bytes of row i, without decoding.
func (t *Table) GetEncoded(i uint64) ([]byte, error) {
	return t.rows.get(i)
}

// Cursor returns an iterator over rows with row_id in [start, stop),
// projected to the named columns. A nil columns list returns every
// column.
func (t *Table) Cursor(columns []string, start, stop uint64) (*Cursor, error) {
	positions, err := t.columnPositions(columns)
	if err != nil {
		return nil, err
	}
	if stop > t.rows.len() {
		stop = t.rows.len()
	}
	return newRowCursor(t, positions, start, stop), nil
}

func (t *Table) columnPositions(columns []string) ([]int, error) {
	if columns == nil {
		out := make([]int, len(t.schema.Columns))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, len(columns))
	for i, name := range columns {
		col, err := t.schema.ColumnByName(name)
		if err != nil {
			return nil, err
		}
		out[i] = col.Position
	}
	return out, nil
}

// Indexes lists the names of indexes already built against this table, by
// scanning the home directory for index_<name>.xml metadata documents.
func (t *Table) Indexes() ([]string, error) {
	entries, err := os.ReadDir(t.homeDir)
	if err != nil {
		return nil, wrapErr(KindIO, err, "reading table directory %s", t.homeDir)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasPrefix(n, "index_") && strings.HasSuffix(n, ".xml") {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(n, "index_"), ".xml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// OpenIndex opens an already-built index by name for querying.
func (t *Table) OpenIndex(name string, cacheSize int) (*Index, error) {
	idx, err := openIndex(t, name, cacheSize)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.openIndexes++
	t.mu.Unlock()
	return idx, nil
}

// BuildIndex creates a new index over keyCols and populates it from the
// table's current contents. progress, if non-nil, is called periodically
// with the number of rows processed so far; returning a non-nil error
// cancels the build.
func (t *Table) BuildIndex(name string, keyCols []IndexKeyColumn, cacheSize int, force bool, progress func(uint64) error) (*Index, error) {
	idx, err := buildIndex(t, name, keyCols, cacheSize, force, progress)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.openIndexes++
	t.mu.Unlock()
	return idx, nil
}

func (t *Table) releaseIndex() {
	t.mu.Lock()
	t.openIndexes--
	t.mu.Unlock()
}

// Close finalizes the table. In WriteMode this renames the build files to
// their permanent names and writes table.xml; in either mode it is an
// error to Close while an Index opened from this Table is still open.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return newErr(KindState, "table %s is already closed", t.homeDir)
	}
	if t.openIndexes > 0 {
		return newErr(KindState, "table %s has %d open index(es)", t.homeDir, t.openIndexes)
	}
	if err := t.rows.close(); err != nil {
		return err
	}
	t.closed = true
	if t.mode != WriteMode {
		return nil
	}
	dataPath := filepath.Join(t.homeDir, buildName(tableDataName))
	dirPath := filepath.Join(t.homeDir, buildName(tableDirName))
	if err := os.Rename(dataPath, filepath.Join(t.homeDir, tableDataName)); err != nil {
		return wrapErr(KindIO, err, "finalizing %s", tableDataName)
	}
	if err := os.Rename(dirPath, filepath.Join(t.homeDir, tableDirName)); err != nil {
		return wrapErr(KindIO, err, "finalizing %s", tableDirName)
	}
	stats := TableStats{
		NumRows:      int64(t.rows.len()),
		MinRowSize:   maxInt64(t.minRowSize, 0),
		MaxRowSize:   t.maxRowSize,
		TotalRowSize: t.totalRowSize,
	}
	return writeTableMetadata(filepath.Join(t.homeDir, tableXMLName), t.schema, stats)
}

// Abort discards a WriteMode table's build files without finalizing it,
// used when a build is interrupted by an error partway through.
func (t *Table) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.rows.close()
	removeIfExists(filepath.Join(t.homeDir, buildName(tableDataName)))
	removeIfExists(filepath.Join(t.homeDir, buildName(tableDirName)))
	return nil
}

func removeIfExists(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return wrapErr(KindIO, err, "removing %s", path)
	}
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// WithTable opens homeDir in ReadMode, passes the Table to fn, and
// guarantees Close runs afterward regardless of how fn returns.
func WithTable(homeDir string, cacheSize int, fn func(*Table) error) (err error) {
	t, err := OpenTable(homeDir, cacheSize)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := t.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(t)
}

// WithIndex opens the named index on t, passes it to fn, and guarantees
// Close runs afterward regardless of how fn returns.
func WithIndex(t *Table, name string, cacheSize int, fn func(*Index) error) (err error) {
	idx, err := t.OpenIndex(name, cacheSize)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := idx.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(idx)
}
