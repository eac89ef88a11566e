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

	"github.com/wormtable/wormtable/pkg/cmdmain"
)

type rmCommand struct{}

func init() {
	cmdmain.RegisterCommand("rm", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		return &rmCommand{}
	})
}

func (c *rmCommand) Describe() string { return "delete an index" }

func (c *rmCommand) Usage() {
	cmdmain.Errorf("Usage: wtadmin rm HOMEDIR NAME\n")
}

func (c *rmCommand) RunCommand(args []string) error {
	if len(args) != 2 {
		return cmdmain.ErrUsage
	}
	home, name := args[0], args[1]
	xmlPath := filepath.Join(home, fmt.Sprintf("index_%s.xml", name))
	dbPath := filepath.Join(home, fmt.Sprintf("index_%s.db", name))
	if _, err := os.Stat(xmlPath); err != nil {
		return fmt.Errorf("no such index %q on %s", name, home)
	}
	// Remove the metadata document last, so a crash mid-delete leaves a
	// dangling .db directory rather than a dangling .xml pointing at
	// nothing — the former is detectable and cleanable, the latter looks
	// like a valid index.
	if err := os.RemoveAll(dbPath); err != nil {
		return err
	}
	return os.Remove(xmlPath)
}
