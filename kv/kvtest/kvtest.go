/*
Copyright 2013 The Camlistore Authors
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

// Package kvtest is a conformance suite run against every kv.KeyValue
// implementation, so the file- and memory-backed stores are held to the
// same contract.
package kvtest

import (
	"testing"

	"github.com/wormtable/wormtable/kv"
)

// TestKeyValue exercises the full kv.KeyValue contract against store.
func TestKeyValue(t *testing.T, store kv.KeyValue) {
	if !isEmpty(t, store) {
		t.Fatal("store is expected to be initially empty")
	}
	set := func(k, v string) {
		if err := store.Set([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Set(%q, %q): %v", k, v, err)
		}
	}
	set("foo", "bar")
	if isEmpty(t, store) {
		t.Fatal("store reports empty after Set(foo, bar)")
	}
	if v, err := store.Get([]byte("foo")); err != nil || string(v) != "bar" {
		t.Errorf("Get(foo) = %q, %v; want bar, nil", v, err)
	}
	if _, err := store.Get([]byte("NOT_EXIST")); err != kv.ErrNotFound {
		t.Errorf("Get(NOT_EXIST) = %v; want kv.ErrNotFound", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Delete([]byte("foo")); err != nil {
			t.Errorf("Delete(foo) (loop %d) = %v; want nil", i, err)
		}
	}

	set("a", "av")
	set("b", "bv")
	set("c", "cv")
	testFind(t, store, "", "", "av", "bv", "cv")
	testFind(t, store, "a", "", "av", "bv", "cv")
	testFind(t, store, "b", "", "bv", "cv")
	testFind(t, store, "a", "c", "av", "bv")
	testFind(t, store, "a", "b", "av")
	testFind(t, store, "a", "a")
	testFind(t, store, "d", "")
	testFind(t, store, "d", "e")

	set("foo|abc", "foo|abcv")
	testFind(t, store, "foo|", "", "foo|abcv")
	testFind(t, store, "foo|", "foo}", "foo|abcv")

	set("y", "x:foo")
	testFind(t, store, "x:", "x~")

	testBatch(t, store)
}

func isEmpty(t *testing.T, store kv.KeyValue) bool {
	it := store.Find(nil, nil)
	defer it.Close()
	return !it.Next()
}

func testFind(t *testing.T, store kv.KeyValue, start, end string, want ...string) {
	t.Helper()
	var startB, endB []byte
	if start != "" {
		startB = []byte(start)
	}
	if end != "" {
		endB = []byte(end)
	}
	it := store.Find(startB, endB)
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Value()))
	}
	if err := it.Close(); err != nil {
		t.Fatalf("Find(%q, %q): iterator error: %v", start, end, err)
	}
	if len(got) != len(want) {
		t.Fatalf("Find(%q, %q) = %v; want %v", start, end, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("Find(%q, %q)[%d] = %q; want %q", start, end, i, got[i], want[i])
		}
	}
}

func testBatch(t *testing.T, store kv.KeyValue) {
	b := store.BeginBatch()
	b.Set([]byte("batch1"), []byte("v1"))
	b.Set([]byte("batch2"), []byte("v2"))
	b.Delete([]byte("a"))
	if err := store.CommitBatch(b); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if v, err := store.Get([]byte("batch1")); err != nil || string(v) != "v1" {
		t.Errorf("Get(batch1) after batch = %q, %v; want v1, nil", v, err)
	}
	if _, err := store.Get([]byte("a")); err != kv.ErrNotFound {
		t.Errorf("Get(a) after batch delete = %v; want kv.ErrNotFound", err)
	}
}
