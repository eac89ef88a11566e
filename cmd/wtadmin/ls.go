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
	"os"
	"path/filepath"

	"github.com/wormtable/wormtable"
	"github.com/wormtable/wormtable/pkg/cmdmain"
)

type lsCommand struct{}

func init() {
	cmdmain.RegisterCommand("ls", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &lsCommand{}
	})
}

func (c *lsCommand) Describe() string { return "summarize a table and its indexes" }

func (c *lsCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin ls HOMEDIR\n")
}

func (c *lsCommand) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.ErrUsage
	}
	home := args[0]
	t, err := wormtable.OpenTable(home, wormtable.DefaultCacheSize)
	if err != nil {
		return err
	}
	defer t.Close()

	stats := t.Stats()
	dataSize, _ := fileSize(filepath.Join(home, "table.dat"))
	dbSize, _ := dirSize(filepath.Join(home, "table.db"))
	fmt.Fprintf(cmdmain.Stdout, "rows: %d\n", t.Len())
	fmt.Fprintf(cmdmain.Stdout, "data file: %d bytes\n", dataSize)
	fmt.Fprintf(cmdmain.Stdout, "directory: %d bytes\n", dbSize)
	fmt.Fprintf(cmdmain.Stdout, "row size: min=%d max=%d mean=%.1f\n", stats.MinRowSize, stats.MaxRowSize, stats.MeanRowSize())
	fmt.Fprintf(cmdmain.Stdout, "fixed region size: %d\n", t.Schema().FixedRegionSize())

	names, err := t.Indexes()
	if err != nil {
		return err
	}
	for _, name := range names {
		idx, err := t.OpenIndex(name, wormtable.DefaultCacheSize)
		if err != nil {
			fmt.Fprintf(cmdmain.Stdout, "index %s: error: %v\n", name, err)
			continue
		}
		var colNames []string
		for _, kc := range idx.KeyColumns() {
			colNames = append(colNames, kc.Name)
		}
		fmt.Fprintf(cmdmain.Stdout, "index %s: %v\n", name, colNames)
		idx.Close()
	}
	return nil
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
