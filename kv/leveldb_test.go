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
	"path/filepath"
	"testing"

	"github.com/wormtable/wormtable/kv"
	"github.com/wormtable/wormtable/kv/kvtest"
)

func TestFileKeyValue(t *testing.T) {
	store, err := kv.OpenFile(filepath.Join(t.TempDir(), "store.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	kvtest.TestKeyValue(t, store)
}

func TestFileWipe(t *testing.T) {
	store, err := kv.OpenFile(filepath.Join(t.TempDir(), "store.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	w, ok := store.(kv.Wiper)
	if !ok {
		t.Fatal("file store does not implement kv.Wiper")
	}
	if err := w.Wipe(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get([]byte("k")); err != kv.ErrNotFound {
		t.Errorf("Get after Wipe = %v; want kv.ErrNotFound", err)
	}
}

func TestParseCacheSize(t *testing.T) {
	cases := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{nil, kv.DefaultCacheSize, false},
		{"", kv.DefaultCacheSize, false},
		{1024, 1024, false},
		{int64(2048), 2048, false},
		{"16M", 16 << 20, false},
		{"not-a-size", 0, true},
	}
	for _, c := range cases {
		got, err := kv.ParseCacheSize(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseCacheSize(%v) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if err == nil && got != c.want {
			t.Errorf("ParseCacheSize(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
