// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog is the static program catalog of spec §1: "user programs
// ... are launched from a catalog compiled into the image." There is no
// dynamic loading — every program reachable by process_create must have a
// *process.Program registered here at build time.
package catalog

import (
	"fmt"

	"github.com/suyog44/dnx-go/internal/kernel/process"
)

// Catalog is a name-indexed table of statically linked programs.
type Catalog struct {
	programs map[string]*process.Program
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{programs: make(map[string]*process.Program)}
}

// Register adds prog to the catalog under prog.Name. It panics on a
// duplicate name — a build-time programmer error, not a runtime fault.
func (c *Catalog) Register(prog *process.Program) {
	if _, exists := c.programs[prog.Name]; exists {
		panic(fmt.Sprintf("catalog: duplicate program name %q", prog.Name))
	}
	c.programs[prog.Name] = prog
}

// Programs returns the catalog as the name→*Program map process.Table.Create
// expects.
func (c *Catalog) Programs() map[string]*process.Program {
	return c.programs
}

// Default builds the catalog of programs kept as references in
// original_source/src/programs: helloworld (smoke-test program), initd
// (the first process; here it spawns nothing and exits 0), and mbusd (the
// mbus IPC daemon, kept here as a stub — mbus itself is out of scope per
// spec §1).
func Default() *Catalog {
	c := New()
	c.Register(&process.Program{
		Name:       "helloworld",
		GlobalSize: 0,
		Main: func(ctx *process.Context, argv []string) int {
			fmt.Fprintln(ctx.Proc.Stdout, "Hello, world!")
			return 0
		},
	})
	c.Register(&process.Program{
		Name:       "initd",
		GlobalSize: 0,
		Main: func(ctx *process.Context, argv []string) int {
			// This initd starts no other programs; it keeps the catalog
			// slot and exits cleanly.
			return 0
		},
	})
	c.Register(&process.Program{
		Name:       "mbusd",
		GlobalSize: 0,
		Main: func(ctx *process.Context, argv []string) int {
			// mbus IPC is out of scope (spec §1); this is a placeholder
			// that keeps the catalog slot and exits cleanly.
			return 0
		},
	})
	return c
}
