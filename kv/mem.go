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
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// NewMemory returns a KeyValue implementation backed only by memory. It
// is used by tests; Table and Index always open file-backed stores
// through OpenFile.
func NewMemory() KeyValue {
	return &memKV{db: memdb.New(comparer.DefaultComparer, 0)}
}

type memKV struct {
	mu sync.RWMutex
	db *memdb.DB
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.db.Get(key)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(key, value)
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.db.Delete(key); err != nil && err != leveldb.ErrNotFound {
		return err
	}
	return nil
}

func (m *memKV) Find(start, end []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := m.db.NewIterator(&util.Range{Start: start, Limit: end})
	return &memIter{it: it}
}

func (m *memKV) BeginBatch() BatchMutation { return NewBatchMutation() }

func (m *memKV) CommitBatch(bm BatchMutation) error {
	b, ok := bm.(interface{ Mutations() []Mutation })
	if !ok {
		return errors.New("kv: batch from a different KeyValue implementation")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mut := range b.Mutations() {
		if mut.IsDelete() {
			if err := m.db.Delete(mut.Key()); err != nil && err != leveldb.ErrNotFound {
				return err
			}
		} else if err := m.db.Put(mut.Key(), mut.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (m *memKV) Close() error { return nil }

// Wipe discards all entries.
func (m *memKV) Wipe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = memdb.New(comparer.DefaultComparer, 0)
	return nil
}

type memIter struct {
	it iterator.Iterator
}

func (it *memIter) Next() bool    { return it.it.Next() }
func (it *memIter) Key() []byte   { return it.it.Key() }
func (it *memIter) Value() []byte { return it.it.Value() }
func (it *memIter) Close() error {
	err := it.it.Error()
	it.it.Release()
	return err
}
