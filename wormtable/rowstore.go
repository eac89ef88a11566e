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

// RowStore is the append-only sequential file of packed row records plus
// the row_id -> file offset directory (one entry per row) that makes random access to
// any row O(log n) or better.
package wormtable

import (
	"encoding/binary"
	"os"

	"github.com/wormtable/wormtable/kv"
)

// rowStore pairs the table.dat data file with the table.db directory
// mapping row_id to (offset, length) within it.
type rowStore struct {
	dataPath string
	data     *os.File
	dir      kv.KeyValue
	nextOff  int64
	numRows  uint64
	write    bool
}

func rowIDKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func encodeDirEntry(offset int64, length int) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint64(b[0:8], uint64(offset))
	binary.BigEndian.PutUint32(b[8:12], uint32(length))
	return b
}

func decodeDirEntry(b []byte) (offset int64, length int) {
	return int64(binary.BigEndian.Uint64(b[0:8])), int(binary.BigEndian.Uint32(b[8:12]))
}

// openRowStoreWrite creates a fresh rowStore at dataPath/dirPath. Both
// paths must not already exist.
func openRowStoreWrite(dataPath, dirPath string, cacheSize int) (*rowStore, error) {
	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, wrapErr(KindIO, err, "creating %s", dataPath)
	}
	dir, err := kv.OpenFile(dirPath, cacheSize)
	if err != nil {
		f.Close()
		return nil, wrapErr(KindIO, err, "creating %s", dirPath)
	}
	return &rowStore{dataPath: dataPath, data: f, dir: dir, write: true}, nil
}

// openRowStoreRead opens an existing, closed rowStore for random and
// sequential reads.
func openRowStoreRead(dataPath, dirPath string, cacheSize int, numRows uint64) (*rowStore, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, wrapErr(KindIO, err, "opening %s", dataPath)
	}
	dir, err := kv.OpenFile(dirPath, cacheSize)
	if err != nil {
		f.Close()
		return nil, wrapErr(KindIO, err, "opening %s", dirPath)
	}
	return &rowStore{dataPath: dataPath, data: f, dir: dir, numRows: numRows}, nil
}

// append writes encoded (the output of EncodeRow) to the end of the data
// file and records its directory entry. It returns the assigned row_id.
func (rs *rowStore) append(encoded []byte) (uint64, error) {
	if !rs.write {
		return 0, newErr(KindState, "rowStore is not open for writing")
	}
	n, err := rs.data.Write(encoded)
	if err != nil {
		return 0, wrapErr(KindIO, err, "writing row to %s", rs.dataPath)
	}
	id := rs.numRows
	if err := rs.dir.Set(rowIDKey(id), encodeDirEntry(rs.nextOff, n)); err != nil {
		return 0, wrapErr(KindIO, err, "recording directory entry for row %d", id)
	}
	rs.nextOff += int64(n)
	rs.numRows++
	return id, nil
}

func (rs *rowStore) len() uint64 { return rs.numRows }

func (rs *rowStore) get(rowID uint64) ([]byte, error) {
	if rowID >= rs.numRows {
		return nil, newErr(KindNotFound, "row_id %d out of range (len=%d)", rowID, rs.numRows)
	}
	entry, err := rs.dir.Get(rowIDKey(rowID))
	if err != nil {
		return nil, wrapErr(KindNotFound, err, "row %d has no directory entry", rowID)
	}
	offset, length := decodeDirEntry(entry)
	buf := make([]byte, length)
	if _, err := rs.data.ReadAt(buf, offset); err != nil {
		return nil, wrapErr(KindIO, err, "reading row %d from %s", rowID, rs.dataPath)
	}
	return buf, nil
}

// rowIDIterator walks directory entries for start <= row_id < stop,
// fetching the corresponding row bytes from the data file.
type rowIDIterator struct {
	rs   *rowStore
	it   kv.Iterator
	data []byte
	err  error
}

func (rs *rowStore) scan(start, stop uint64) *rowIDIterator {
	return &rowIDIterator{rs: rs, it: rs.dir.Find(rowIDKey(start), rowIDKey(stop))}
}

func (it *rowIDIterator) Next() bool {
	if !it.it.Next() {
		return false
	}
	entry := it.it.Value()
	offset, length := decodeDirEntry(entry)
	buf := make([]byte, length)
	if _, err := it.rs.data.ReadAt(buf, offset); err != nil {
		it.err = wrapErr(KindIO, err, "reading row from %s", it.rs.dataPath)
		return false
	}
	it.data = buf
	return true
}

func (it *rowIDIterator) RowID() uint64 { return binary.BigEndian.Uint64(it.it.Key()) }
func (it *rowIDIterator) Row() []byte   { return it.data }
func (it *rowIDIterator) Close() error {
	cerr := it.it.Close()
	if it.err != nil {
		return it.err
	}
	return cerr
}

func (rs *rowStore) close() error {
	var err error
	if e := rs.dir.Close(); e != nil {
		err = e
	}
	if e := rs.data.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
