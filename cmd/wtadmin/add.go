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

type addCommand struct {
	name      string
	cacheSize string
	force     bool
	quiet     bool
}

func init() {
	cmdmain.RegisterCommand("add", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := &addCommand{}
		flags.StringVar(&c.name, "name", "", "index name (defaults to COLSPEC)")
		flags.StringVar(&c.cacheSize, "cache-size", "", "block cache size, e.g. 64M")
		flags.BoolVar(&c.force, "force", false, "overwrite an existing index of the same name")
		flags.BoolVar(&c.quiet, "quiet", false, "suppress build progress output")
		return c
	})
}

func (c *addCommand) Describe() string { return "build a secondary index" }

func (c *addCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin add HOMEDIR COLSPEC [--name N] [--cache-size S] [--force] [--quiet]\n")
}

func (c *addCommand) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.ErrUsage
	}
	home, spec := args[0], args[1]
	cols, err := parseColSpec(spec)
	if err != nil {
		return err
	}
	name := c.name
	if name == "" {
		name = spec
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

	var progress func(uint64) error
	if !c.quiet {
		progress = func(n uint64) error {
			fmt.Fprintf(cmdmain.Stderr, "\r%s: %d/%d rows", name, n, t.Len())
			return nil
		}
	}
	idx, err := t.BuildIndex(name, cols, cacheSize, c.force, progress)
	if err != nil {
		return err
	}
	if !c.quiet {
		fmt.Fprintf(cmdmain.Stderr, "\r%s: %d/%d rows\n", name, t.Len(), t.Len())
	}
	return idx.Close()
}
