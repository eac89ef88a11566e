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

// Cursor is the shared iteration protocol returned by both Table.Cursor
// (row_id order) and Index.Cursor (key order): a column-projecting walk
// that must be closed after use.
package wormtable

import "encoding/binary"

// Cursor iterates rows, one decoded-and-projected row per Next call.
type Cursor struct {
	positions []int
	next      func() ([]Value, uint64, bool, error)
	closeFn   func() error
	row       []Value
	rowID     uint64
	err       error
}

// Next advances the cursor, returning false at the end of the range or
// on error (check Err to distinguish the two).
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	row, id, ok, err := c.next()
	if err != nil {
		c.err = err
		return false
	}
	if !ok {
		return false
	}
	c.row = row
	c.rowID = id
	return true
}

// Row returns the current row's values, projected to the cursor's
// requested columns.
func (c *Cursor) Row() []Value { return c.row }

// RowID returns the row_id of the current row.
func (c *Cursor) RowID() uint64 { return c.rowID }

// Err returns the first error encountered during iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the cursor's underlying iterator.
func (c *Cursor) Close() error { return c.closeFn() }

func project(values []Value, positions []int) []Value {
	out := make([]Value, len(positions))
	for i, p := range positions {
		out[i] = values[p]
	}
	return out
}

// newRowCursor walks a Table's rows in row_id order over [start, stop).
func newRowCursor(t *Table, positions []int, start, stop uint64) *Cursor {
	it := t.rows.scan(start, stop)
	c := &Cursor{positions: positions}
	c.next = func() ([]Value, uint64, bool, error) {
		if !it.Next() {
			return nil, 0, false, nil
		}
		values, err := DecodeRow(t.schema, it.Row())
		if err != nil {
			return nil, 0, false, err
		}
		return project(values, positions), it.RowID(), true, nil
	}
	c.closeFn = it.Close
	return c
}

// newIndexCursor walks an Index's entries in key order over the byte
// range [lo, hi), fetching and projecting the corresponding table row
// for each entry.
func newIndexCursor(idx *Index, positions []int, lo, hi []byte) *Cursor {
	it := idx.store.Find(lo, hi)
	c := &Cursor{positions: positions}
	c.next = func() ([]Value, uint64, bool, error) {
		if !it.Next() {
			return nil, 0, false, nil
		}
		entry := it.Key()
		id := binary.BigEndian.Uint64(entry[len(entry)-8:])
		raw, err := idx.table.rows.get(id)
		if err != nil {
			return nil, 0, false, err
		}
		values, err := DecodeRow(idx.table.schema, raw)
		if err != nil {
			return nil, 0, false, err
		}
		return project(values, positions), id, true, nil
	}
	c.closeFn = it.Close
	return c
}
