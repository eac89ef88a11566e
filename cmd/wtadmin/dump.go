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
	"flag"
	"fmt"
	"strings"

	"github.com/wormtable/wormtable"
	"github.com/wormtable/wormtable/pkg/cmdmain"
)

type dumpCommand struct {
	index     string
	start     string
	stop      string
	cacheSize string
}

func init() {
	cmdmain.RegisterCommand("dump", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &dumpCommand{}
		flags.StringVar(&c.index, "index", "", "index name to iterate in key order")
		flags.StringVar(&c.start, "start", "", "inclusive key bound, comma-separated")
		flags.StringVar(&c.stop, "stop", "", "exclusive key bound, comma-separated")
		flags.StringVar(&c.cacheSize, "cache-size", "", "block cache size, e.g. 64M")
		return c
	})
}

func (c *dumpCommand) Describe() string { return "dump rows as tab-separated text" }

func (c *dumpCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin dump HOMEDIR [COLUMN...] [--index N] [--start K] [--stop K] [--cache-size S]\n")
}

func (c *dumpCommand) RunCommand(args []string) error {
	if len(args) < 1 {
		return cmdmain.ErrUsage
	}
	home := args[0]
	var columns []string
	if len(args) > 1 {
		columns = args[1:]
	}
	cacheSize, err := wormtable.ParseCacheSize(c.cacheSize)
	if err != nil {
		return err
	}
	t, err := wormtable.OpenTable(home, cacheSize)
	if err != nil {
		return err
	}
	defer t.Close()

	projected := columns
	if projected == nil {
		for _, col := range t.Schema().Columns {
			projected = append(projected, col.Name)
		}
	}
	var cols []wormtable.Column
	for _, name := range projected {
		col, err := t.Schema().ColumnByName(name)
		if err != nil {
			return err
		}
		cols = append(cols, col)
	}

	var cursor *wormtable.Cursor
	if c.index != "" {
		idx, err := t.OpenIndex(c.index, cacheSize)
		if err != nil {
			return err
		}
		defer idx.Close()
		start, err := parseKeyBound(c.start, idx)
		if err != nil {
			return err
		}
		stop, err := parseKeyBound(c.stop, idx)
		if err != nil {
			return err
		}
		cursor, err = idx.Cursor(projected, start, stop)
		if err != nil {
			return err
		}
	} else {
		cursor, err = t.Cursor(projected, 0, t.Len())
		if err != nil {
			return err
		}
	}
	defer cursor.Close()

	for cursor.Next() {
		row := cursor.Row()
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = wormtable.FormatValue(cols[i], v)
		}
		fmt.Fprintln(cmdmain.Stdout, strings.Join(fields, "\t"))
	}
	return cursor.Err()
}
