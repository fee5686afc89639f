/*
Package lattice is a builder-state graph compiler: it turns a declarative graph of typed
nodes (UI pages, REST APIs, DB tables, auth, payments, file stores, agent tools) into a
deterministic scaffold of generated files packed into a zip archive.

It follows a one-way pipeline: raw graph → normalized BuilderState → per-node artifacts →
file tree → archive. Every stage is observable through LifecycleHooks, and every compile
returns a structured Result, including on failure.

# Concept

Nodes carry type-specific props; the type registry fills every missing required field
with a default, so even a bare `{"type": "ui_page"}` compiles. Pages bind to tables,
file stores and endpoints by node id. Generators run in a fixed order (REST, DB,
integrations, UI, config) and a failing node never takes its siblings down.

# Key Features

  - Deterministic Output: the same graph and clock always produce the same archive bytes.
  - Hexagonal Architecture: stores, planners and graph sources are ports (see pkg/ports).
  - Multiple Inputs: JSON, YAML and HCL graphs, or a Loam directory of node documents.
  - Strict Contracts: unknown node types, dangling edges and mistyped props are typed errors.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/lattice"
		"github.com/aretw0/lattice/pkg/domain"
	)

	func main() {
		eng := lattice.New(lattice.WithSmokeTest(true))

		res := eng.Compile(context.Background(), &domain.RawState{
			ProjectID: "hello",
			Nodes:     []domain.Node{{Type: domain.NodeTypeUIPage, Props: map[string]any{"name": "Hello"}}},
		})
		if !res.Success {
			fmt.Println(res.Errors)
			return
		}
		fmt.Println(res.DefaultPreviewURL, res.Archive.SHA256)
	}
*/
package lattice
