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

// Package kv provides the ordered, enumerable key-value interface that
// the row directory and the index key maps are built on.
package kv

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrNotFound is returned by Get when the store does not contain the key.
var ErrNotFound = errors.New("kv: key not found")

// KeyValue is a sorted, enumerable byte-string key-value store supporting
// batch mutation and range iteration. Keys compare byte-wise; all range
// semantics in this package and its callers are expressed in terms of
// that comparison.
type KeyValue interface {
	// Get returns the value for key, or ErrNotFound if it is absent.
	Get(key []byte) ([]byte, error)

	Set(key, value []byte) error
	Delete(key []byte) error

	BeginBatch() BatchMutation
	CommitBatch(b BatchMutation) error

	// Find returns an iterator over the half-open range [start, end).
	// A nil start means "from the first key"; a nil end means "to the
	// last key".
	Find(start, end []byte) Iterator

	// Close releases the store's underlying file handles. Implementations
	// must not lose data written before Close.
	Close() error
}

// Wiper is implemented by KeyValue stores that support a destructive
// reset. Table, Index and wtadmin do not call it: removal and forced
// re-creation delete the store directories from disk instead.
type Wiper interface {
	Wipe() error
}

// Iterator walks a KeyValue's entries in ascending key order. It must be
// closed after use. It is not goroutine-safe; concurrent readers must each
// use their own Iterator.
type Iterator interface {
	// Next advances to the next entry, returning false when exhausted or
	// on error. Accumulated errors surface from Close.
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}

// BatchMutation accumulates a set of writes to be applied atomically by
// CommitBatch.
type BatchMutation interface {
	Set(key, value []byte)
	Delete(key []byte)
}

// Mutation is a single operation recorded in a BatchMutation.
type Mutation interface {
	Key() []byte
	Value() []byte
	IsDelete() bool
}

type mutation struct {
	key, value []byte
	del        bool
}

func (m mutation) Key() []byte   { return m.key }
func (m mutation) Value() []byte { return m.value }
func (m mutation) IsDelete() bool { return m.del }

// batch is a storage-agnostic BatchMutation; concrete KeyValue
// implementations type-assert to the batch interface (Mutations) inside
// CommitBatch.
type batch struct {
	ms []Mutation
}

// NewBatchMutation returns a BatchMutation implementation usable by any
// KeyValue backend that doesn't need a native batch type.
func NewBatchMutation() BatchMutation { return &batch{} }

func (b *batch) Set(key, value []byte) {
	b.ms = append(b.ms, mutation{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *batch) Delete(key []byte) {
	b.ms = append(b.ms, mutation{key: append([]byte(nil), key...), del: true})
}

// Mutations returns the accumulated mutations in insertion order.
func (b *batch) Mutations() []Mutation { return b.ms }

// DefaultCacheSize is used when a Table or Index is opened without an
// explicit cache size.
const DefaultCacheSize = 16 << 20 // 16 MiB

// ParseCacheSize accepts either a plain byte count or a string with a
// binary K/M/G suffix (e.g. "16M" is 16 MiB) and returns the size in bytes. Cache sizes are
// advisory: callers pass the result to an Open call as a hint, never a
// hard limit.
func ParseCacheSize(v interface{}) (int, error) {
	switch t := v.(type) {
	case nil:
		return DefaultCacheSize, nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		if t == "" {
			return DefaultCacheSize, nil
		}
		// A bare K/M/G suffix is 1024-based, so "16M" equals
		// DefaultCacheSize; humanize alone reads a bare suffix as decimal.
		s := strings.TrimSpace(t)
		if k := len(s); k > 0 && strings.IndexByte("KkMmGg", s[k-1]) >= 0 {
			s += "iB"
		}
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return 0, err
		}
		return int(n), nil
	default:
		return 0, errors.New("kv: unsupported cache size type")
	}
}
