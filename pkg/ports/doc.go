/*
Package ports defines the driven ports (interfaces) of the Lattice compiler.

These interfaces decouple the compile pipeline from external implementations, allowing
it to work with various storage backends, graph sources and planners.

# Key Interfaces

  - ProjectStore: persists normalized BuilderStates by project id.
  - BlobStore: stores packaged scaffold archives.
  - DistributedLocker: provides distributed locking for concurrent compiles of one project.
  - GraphSource: produces raw IR from an external document set (e.g. Loam).
  - Planner: turns a natural-language goal into raw IR.
*/
package ports
