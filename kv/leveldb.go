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

package kv

import (
	"errors"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// OpenFile opens (creating if necessary) a durable KeyValue store backed
// by a single goleveldb database directory at path. cacheSize is in bytes;
// zero selects DefaultCacheSize.
func OpenFile(path string, cacheSize int) (KeyValue, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	opts := &opt.Options{
		Filter:             filter.NewBloomFilter(10),
		BlockCacheCapacity: cacheSize,
	}
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, err
	}
	return &fileKV{db: db, path: path, opts: opts}, nil
}

type fileKV struct {
	path string
	db   *leveldb.DB
	opts *opt.Options
}

func (f *fileKV) Get(key []byte) ([]byte, error) {
	v, err := f.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (f *fileKV) Set(key, value []byte) error {
	return f.db.Put(key, value, nil)
}

func (f *fileKV) Delete(key []byte) error {
	return f.db.Delete(key, nil)
}

func (f *fileKV) Find(start, end []byte) Iterator {
	r := &util.Range{Start: start, Limit: end}
	return &fileIter{it: f.db.NewIterator(r, nil)}
}

func (f *fileKV) BeginBatch() BatchMutation {
	return &ldbBatch{b: new(leveldb.Batch)}
}

func (f *fileKV) CommitBatch(bm BatchMutation) error {
	b, ok := bm.(*ldbBatch)
	if !ok {
		return errors.New("kv: batch from a different KeyValue implementation")
	}
	return f.db.Write(b.b, nil)
}

func (f *fileKV) Close() error {
	return f.db.Close()
}

// Wipe closes the database, deletes it from disk, and reopens an empty one
// at the same path.
func (f *fileKV) Wipe() error {
	if err := f.db.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(f.path); err != nil {
		return err
	}
	db, err := leveldb.OpenFile(f.path, f.opts)
	if err != nil {
		return err
	}
	f.db = db
	return nil
}

type ldbBatch struct {
	b *leveldb.Batch
}

func (b *ldbBatch) Set(key, value []byte) { b.b.Put(key, value) }
func (b *ldbBatch) Delete(key []byte)     { b.b.Delete(key) }

type fileIter struct {
	it iterator.Iterator
}

func (it *fileIter) Next() bool    { return it.it.Next() }
func (it *fileIter) Key() []byte   { return it.it.Key() }
func (it *fileIter) Value() []byte { return it.it.Value() }
func (it *fileIter) Close() error {
	err := it.it.Error()
	it.it.Release()
	return err
}
