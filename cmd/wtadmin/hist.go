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

	"github.com/wormtable/wormtable"
	"github.com/wormtable/wormtable/pkg/cmdmain"
)

type histCommand struct{}

func init() {
	cmdmain.RegisterCommand("hist", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &histCommand{}
	})
}

func (c *histCommand) Describe() string { return "print (count, key) rows for an index" }

func (c *histCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin hist HOMEDIR NAME\n")
}

func (c *histCommand) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.ErrUsage
	}
	home, name := args[0], args[1]
	t, err := wormtable.OpenTable(home, wormtable.DefaultCacheSize)
	if err != nil {
		return err
	}
	defer t.Close()
	idx, err := t.OpenIndex(name, wormtable.DefaultCacheSize)
	if err != nil {
		return err
	}
	defer idx.Close()

	keyCols := idx.KeyColumns()
	schema := t.Schema()
	keys := idx.Keys()
	defer keys.Close()
	for keys.Next() {
		key := keys.Key()
		n, err := idx.Count(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmdmain.Stdout, "%d", n)
		for i, v := range key {
			col, _ := schema.ColumnByName(keyCols[i].Name)
			fmt.Fprintf(cmdmain.Stdout, "\t%s", wormtable.FormatValue(col, v))
		}
		fmt.Fprintln(cmdmain.Stdout)
	}
	return keys.Close()
}
