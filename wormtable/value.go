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

// Value is a tagged union of the forms a column value can take: absent, a
// list of signed integers, a list of unsigned integers, a list of floats,
// or a raw char/string payload. Scalar columns (arity 1) use a
// length-one list. Replaces the dynamic int/float/bytes/tuple/None typing
// of the system this package is modeled on with one explicit sum type,
// validated against the target column's element_type at encode time.
type Value struct {
	Missing bool
	Ints    []int64
	UInts   []uint64
	Floats  []float64
	Chars   []byte
}

// MissingValue returns the absent-value marker.
func MissingValue() Value { return Value{Missing: true} }

// Int returns a scalar signed-integer value.
func Int(v int64) Value { return Value{Ints: []int64{v}} }

// IntList returns a fixed- or variable-arity signed-integer list value.
func IntList(v []int64) Value { return Value{Ints: v} }

// UInt returns a scalar unsigned-integer value.
func UInt(v uint64) Value { return Value{UInts: []uint64{v}} }

// UIntList returns a fixed- or variable-arity unsigned-integer list value.
func UIntList(v []uint64) Value { return Value{UInts: v} }

// Float64 returns a scalar float value.
func Float64(v float64) Value { return Value{Floats: []float64{v}} }

// FloatList returns a fixed- or variable-arity float list value.
func FloatList(v []float64) Value { return Value{Floats: v} }

// String returns a char column value.
func String(s string) Value { return Value{Chars: []byte(s)} }

// Bytes returns a char column value from raw bytes.
func Bytes(b []byte) Value { return Value{Chars: b} }
