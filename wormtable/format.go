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

import "strings"

// FormatValue renders v as the CLI and dump tools display it: a bare
// scalar when v has exactly one element, a comma-separated, parenthesized
// list otherwise, and "NA" for a missing value.
func FormatValue(col Column, v Value) string {
	if v.Missing {
		return "NA"
	}
	switch col.ElementType {
	case Char:
		return string(v.Chars)
	case SignedInt:
		return formatScalarOrList(len(v.Ints), func(i int) string { return itoa(v.Ints[i]) })
	case UnsignedInt:
		return formatScalarOrList(len(v.UInts), func(i int) string { return utoa(v.UInts[i]) })
	case Float:
		return formatScalarOrList(len(v.Floats), func(i int) string { return formatFloat(v.Floats[i]) })
	}
	return "NA"
}

func formatScalarOrList(n int, at func(int) string) string {
	if n == 1 {
		return at(0)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = at(i)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
