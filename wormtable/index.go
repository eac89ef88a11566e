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

// Index is a secondary ordered map from a key tuple drawn from a subset
// of a Table's columns to the row_ids that produced it. The on-disk entry
// for one row is encodedKey || row_id (8 bytes, big-endian), with the
// row_id repeated as the value; appending row_id to the key makes every
// entry unique without a read-modify-write step during the build, at the
// cost of one linear scan to stop when an exact key's entries run out.
package wormtable

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wormtable/wormtable/kv"
)

const indexBuildBatchSize = 4096

func indexXMLName(name string) string { return fmt.Sprintf("index_%s.xml", name) }
func indexDBName(name string) string  { return fmt.Sprintf("index_%s.db", name) }

// Index is a handle on one built index. It must be closed to release the
// reference it holds on its parent Table.
type Index struct {
	table  *Table
	name   string
	codec  *KeyCodec
	store  kv.KeyValue
	closed bool
}

func indexEntryKey(keyBytes []byte, rowID uint64) []byte {
	out := make([]byte, len(keyBytes)+8)
	copy(out, keyBytes)
	binary.BigEndian.PutUint64(out[len(keyBytes):], rowID)
	return out
}

// buildIndex streams every row of t through codec and writes one entry
// per row to a fresh store, then finalizes it under the table's home
// directory. progress, when non-nil, may return a caller-defined error to
// cancel the build; the partial build file is then removed and the error
// is wrapped as a BuildError.
func buildIndex(t *Table, name string, keyCols []IndexKeyColumn, cacheSize int, force bool, progress func(uint64) error) (*Index, error) {
	codec, err := NewKeyCodec(t.schema, keyCols)
	if err != nil {
		return nil, err
	}
	xmlPath := filepath.Join(t.homeDir, indexXMLName(name))
	if _, err := os.Stat(xmlPath); err == nil {
		if !force {
			return nil, newErr(KindState, "index %q already exists on table %s", name, t.homeDir)
		}
		if err := removeIfExists(filepath.Join(t.homeDir, indexDBName(name))); err != nil {
			return nil, err
		}
		if err := removeIfExists(xmlPath); err != nil {
			return nil, err
		}
	}
	buildPath := filepath.Join(t.homeDir, buildName(indexDBName(name)))
	store, err := kv.OpenFile(buildPath, cacheSize)
	if err != nil {
		return nil, wrapErr(KindIO, err, "creating index store for %q", name)
	}
	positions := codec.ColumnPositions()
	total := t.rows.len()
	batch := store.BeginBatch()
	pending := 0
	for id := uint64(0); id < total; id++ {
		raw, err := t.rows.get(id)
		if err != nil {
			store.Close()
			removeIfExists(buildPath)
			return nil, wrapErr(KindBuild, err, "building index %q", name)
		}
		values, err := DecodeRow(t.schema, raw)
		if err != nil {
			store.Close()
			removeIfExists(buildPath)
			return nil, wrapErr(KindBuild, err, "building index %q", name)
		}
		keyValues := make([]Value, len(positions))
		for i, p := range positions {
			keyValues[i] = values[p]
		}
		keyBytes, err := codec.EncodeKey(keyValues)
		if err != nil {
			store.Close()
			removeIfExists(buildPath)
			return nil, wrapErr(KindBuild, err, "building index %q: row %d", name, id)
		}
		rowIDBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(rowIDBytes, id)
		batch.Set(indexEntryKey(keyBytes, id), rowIDBytes)
		pending++
		if pending >= indexBuildBatchSize {
			if err := store.CommitBatch(batch); err != nil {
				store.Close()
				removeIfExists(buildPath)
				return nil, wrapErr(KindBuild, err, "building index %q", name)
			}
			batch = store.BeginBatch()
			pending = 0
		}
		if progress != nil && (id+1)%indexBuildBatchSize == 0 {
			if err := progress(id + 1); err != nil {
				store.Close()
				removeIfExists(buildPath)
				return nil, wrapErr(KindBuild, err, "building index %q: cancelled at row %d", name, id+1)
			}
		}
	}
	if pending > 0 {
		if err := store.CommitBatch(batch); err != nil {
			store.Close()
			removeIfExists(buildPath)
			return nil, wrapErr(KindBuild, err, "building index %q", name)
		}
	}
	if progress != nil {
		if err := progress(total); err != nil {
			store.Close()
			removeIfExists(buildPath)
			return nil, wrapErr(KindBuild, err, "building index %q: cancelled at row %d", name, total)
		}
	}
	if err := store.Close(); err != nil {
		removeIfExists(buildPath)
		return nil, wrapErr(KindBuild, err, "closing index %q build store", name)
	}
	if err := os.Rename(buildPath, filepath.Join(t.homeDir, indexDBName(name))); err != nil {
		return nil, wrapErr(KindIO, err, "finalizing index %q", name)
	}
	if err := writeIndexMetadata(xmlPath, codec.Columns()); err != nil {
		return nil, err
	}
	return openIndex(t, name, cacheSize)
}

// openIndex opens an already-built index for querying.
func openIndex(t *Table, name string, cacheSize int) (*Index, error) {
	cols, err := readIndexMetadata(filepath.Join(t.homeDir, indexXMLName(name)))
	if err != nil {
		return nil, err
	}
	codec, err := NewKeyCodec(t.schema, cols)
	if err != nil {
		return nil, err
	}
	store, err := kv.OpenFile(filepath.Join(t.homeDir, indexDBName(name)), cacheSize)
	if err != nil {
		return nil, wrapErr(KindIO, err, "opening index %q", name)
	}
	return &Index{table: t, name: name, codec: codec, store: store}, nil
}

// Name returns the index's name.
func (idx *Index) Name() string { return idx.name }

// Table returns the Index's parent Table.
func (idx *Index) Table() *Table { return idx.table }

// KeyColumns returns the index's key columns in order.
func (idx *Index) KeyColumns() []IndexKeyColumn { return idx.codec.Columns() }

// Close releases the index's store and the reference it held on its
// Table.
func (idx *Index) Close() error {
	if idx.closed {
		return newErr(KindState, "index %q is already closed", idx.name)
	}
	idx.closed = true
	idx.table.releaseIndex()
	return idx.store.Close()
}

// keyRangeBounds turns a pair of key tuples, each possibly shorter than
// the index's arity, into the [start, end) byte range covering every
// stored entry whose key tuple satisfies start <= k < stop. A nil tuple
// means unbounded on that side. Full-arity tuples are exact value
// bounds; shorter tuples are prefixes and widen their (exclusive) upper
// bound with prefixSuccessor to cover every key sharing that prefix.
func (idx *Index) keyRangeBounds(start, stop []Value) ([]byte, []byte, error) {
	var startBytes, stopBytes []byte
	if start != nil {
		b, err := idx.codec.EncodePrefix(start)
		if err != nil {
			return nil, nil, err
		}
		startBytes = b
	}
	if stop != nil {
		b, err := idx.codec.EncodePrefix(stop)
		if err != nil {
			return nil, nil, err
		}
		if len(stop) == idx.codec.Arity() {
			stopBytes = b
		} else {
			stopBytes = prefixSuccessor(b)
		}
	}
	return startBytes, stopBytes, nil
}

// Count returns the number of rows whose key equals the given full key,
// after binning.
func (idx *Index) Count(key []Value) (int64, error) {
	lo, hi, err := idx.groupBounds(key)
	if err != nil {
		return 0, err
	}
	it := idx.store.Find(lo, hi)
	defer it.Close()
	var n int64
	for it.Next() {
		n++
	}
	return n, it.Close()
}

// groupBounds returns the byte range covering every entry whose key has
// the given prefix, or the unbounded range if prefix is nil.
func (idx *Index) groupBounds(prefix []Value) ([]byte, []byte, error) {
	if prefix == nil {
		return nil, nil, nil
	}
	b, err := idx.codec.EncodePrefix(prefix)
	if err != nil {
		return nil, nil, err
	}
	return b, prefixSuccessor(b), nil
}

// MinKey returns the smallest key within the given prefix's group.
func (idx *Index) MinKey(prefix []Value) ([]Value, error) {
	lo, hi, err := idx.groupBounds(prefix)
	if err != nil {
		return nil, err
	}
	it := idx.store.Find(lo, hi)
	defer it.Close()
	if !it.Next() {
		return nil, newErr(KindNotFound, "index %q: no keys in range", idx.name)
	}
	key := it.Key()
	return idx.codec.DecodeKey(key[:len(key)-8])
}

// MaxKey returns the largest key within the given prefix's group. It is a
// full scan to the end of the range: the underlying kv.Iterator only
// walks forward, so there is no cheaper way to find the last entry.
func (idx *Index) MaxKey(prefix []Value) ([]Value, error) {
	lo, hi, err := idx.groupBounds(prefix)
	if err != nil {
		return nil, err
	}
	it := idx.store.Find(lo, hi)
	defer it.Close()
	var last []byte
	for it.Next() {
		last = append([]byte(nil), it.Key()...)
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, newErr(KindNotFound, "index %q: no keys in range", idx.name)
	}
	return idx.codec.DecodeKey(last[:len(last)-8])
}

// KeysIterator walks the index's distinct keys in order, skipping the
// repeated entries that share a key.
type KeysIterator struct {
	idx     *Index
	it      kv.Iterator
	lastRaw []byte
	current []Value
	err     error
}

// Keys returns an iterator over the index's distinct keys in order.
func (idx *Index) Keys() *KeysIterator {
	return &KeysIterator{idx: idx, it: idx.store.Find(nil, nil)}
}

func (k *KeysIterator) Next() bool {
	for k.it.Next() {
		raw := k.it.Key()
		keyPart := raw[:len(raw)-8]
		if k.lastRaw != nil && bytesEqual(keyPart, k.lastRaw) {
			continue
		}
		k.lastRaw = append([]byte(nil), keyPart...)
		values, err := k.idx.codec.DecodeKey(keyPart)
		if err != nil {
			k.err = err
			return false
		}
		k.current = values
		return true
	}
	return false
}

func (k *KeysIterator) Key() []Value { return k.current }
func (k *KeysIterator) Close() error {
	cerr := k.it.Close()
	if k.err != nil {
		return k.err
	}
	return cerr
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Cursor returns an iterator, in key order, over rows whose key falls in
// [start, stop), projected to the named columns.
func (idx *Index) Cursor(columns []string, start, stop []Value) (*Cursor, error) {
	lo, hi, err := idx.keyRangeBounds(start, stop)
	if err != nil {
		return nil, err
	}
	positions, err := idx.table.columnPositions(columns)
	if err != nil {
		return nil, err
	}
	return newIndexCursor(idx, positions, lo, hi), nil
}
