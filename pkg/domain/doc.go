/*
Package domain contains the core model of the Lattice builder-state compiler.

It defines the graph being compiled (Nodes, Edges and the validated BuilderState),
the typed property views of each node type, the artifacts and results the compiler
produces, and the error taxonomy shared by every stage. The package is free of I/O
and external dependencies.

# Key Entities

  - Node: a typed unit of the graph (ui_page, rest_api, db_table, auth, payment, file_store, agent_tool).
  - Edge: a typed relation between two nodes.
  - BuilderState: the normalized graph; Arena offers an index-addressed view of it.
  - Visitor: exhaustive dispatch over the closed set of node types.
  - Result: the structured outcome of a compile, returned even on failure.
*/
package domain
