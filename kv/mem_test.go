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

package kv_test

import (
	"testing"

	"github.com/wormtable/wormtable/kv"
	"github.com/wormtable/wormtable/kv/kvtest"
)

func TestMemoryKeyValue(t *testing.T) {
	kvtest.TestKeyValue(t, kv.NewMemory())
}

func TestMemoryWipe(t *testing.T) {
	store := kv.NewMemory()
	if err := store.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	w, ok := store.(kv.Wiper)
	if !ok {
		t.Fatal("in-memory store does not implement kv.Wiper")
	}
	if err := w.Wipe(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get([]byte("k")); err != kv.ErrNotFound {
		t.Errorf("Get after Wipe = %v; want kv.ErrNotFound", err)
	}
}
