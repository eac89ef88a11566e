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
	"text/tabwriter"

	"github.com/wormtable/wormtable"
	"github.com/wormtable/wormtable/pkg/cmdmain"
)

type showCommand struct{}

func init() {
	cmdmain.RegisterCommand("show", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &showCommand{}
	})
}

func (c *showCommand) Describe() string { return "show a table's column schema" }

func (c *showCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin show HOMEDIR\n")
}

func (c *showCommand) RunCommand(args []string) error {
	if len(args) != 1 {
		return cmdmain.ErrUsage
	}
	t, err := wormtable.OpenTable(args[0], wormtable.DefaultCacheSize)
	if err != nil {
		return err
	}
	defer t.Close()

	w := tabwriter.NewWriter(cmdmain.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POSITION\tNAME\tTYPE\tSIZE\tARITY\tDESCRIPTION")
	for _, col := range t.Schema().Columns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			col.Position, col.Name, col.ElementType, col.ElementSize, arityString(col), col.Description)
	}
	return w.Flush()
}

func arityString(col wormtable.Column) string {
	if col.IsVariable() {
		if col.NumElements == wormtable.VAR1 {
			return "var(1)"
		}
		return "var(2)"
	}
	return fmt.Sprintf("%d", col.NumElements)
}
