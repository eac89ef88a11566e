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
	"regexp"
	"strconv"
	"strings"

	"github.com/wormtable/wormtable"
)

var colSpecRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\[([^\]]+)\])?$`)

// parseColSpec parses the `add` subcommand's COLSPEC grammar:
// col[+col]*, where col := NAME ( "[" FLOAT "]" )?.
func parseColSpec(spec string) ([]wormtable.IndexKeyColumn, error) {
	parts := strings.Split(spec, "+")
	out := make([]wormtable.IndexKeyColumn, 0, len(parts))
	for _, p := range parts {
		m := colSpecRE.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("invalid column spec %q", p)
		}
		col := wormtable.IndexKeyColumn{Name: m[1]}
		if m[2] != "" {
			w, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid bin width in %q: %v", p, err)
			}
			col.BinWidth = w
		}
		out = append(out, col)
	}
	return out, nil
}
