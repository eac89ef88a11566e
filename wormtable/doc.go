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

// Package wormtable implements an append-only, column-oriented table
// store: rows are written once in row_id order and never modified, and
// secondary indexes provide ordered access by any subset of columns.
//
// A table lives in a home directory holding its row data file
// (table.dat), a row_id directory (table.db) and a schema/statistics
// metadata document (table.xml). An index adds its own ordered key map
// (index_<name>.db) and metadata document (index_<name>.xml) alongside
// it. Both the row directory and the index key maps are backed by the
// package's kv.KeyValue abstraction.
package wormtable
