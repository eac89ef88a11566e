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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wormtable/wormtable"
)

// parseKeyBound parses a comma-separated tuple like "1,150" against the
// element types of idx's key columns, in order. An empty string means
// unbounded (nil).
func parseKeyBound(s string, idx *wormtable.Index) ([]wormtable.Value, error) {
	if s == "" {
		return nil, nil
	}
	cols := idx.KeyColumns()
	parts := strings.Split(s, ",")
	if len(parts) > len(cols) {
		return nil, fmt.Errorf("key bound %q has more components than the index's %d key columns", s, len(cols))
	}
	out := make([]wormtable.Value, len(parts))
	for i, p := range parts {
		col, err := idx.Table().Schema().ColumnByName(cols[i].Name)
		if err != nil {
			return nil, err
		}
		switch col.ElementType {
		case wormtable.SignedInt:
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key bound %q: column %q: %v", s, col.Name, err)
			}
			out[i] = wormtable.Int(n)
		case wormtable.UnsignedInt:
			n, err := strconv.ParseUint(p, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key bound %q: column %q: %v", s, col.Name, err)
			}
			out[i] = wormtable.UInt(n)
		case wormtable.Float:
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("key bound %q: column %q: %v", s, col.Name, err)
			}
			out[i] = wormtable.Float64(f)
		case wormtable.Char:
			out[i] = wormtable.String(p)
		}
	}
	return out, nil
}
