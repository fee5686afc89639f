/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing Lattice graphs.

It allows developers to describe an application as pages, APIs, tables and integrations using a
fluent builder instead of JSON, YAML or a directory of node documents. This is particularly useful
for generated graphs, unit tests, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New("blog")

	b.Table("posts").
		Column("title", "varchar(120)").
		Column("body", "text")

	b.Page("home").
		Name("Home").
		Route("/").
		BindTable("posts")

	b.API("list_posts").
		Name("Posts").
		Method("GET").
		Route("/posts")

	b.Edge("posts", "home", domain.EdgeKindDataFlow)

	// The builder yields raw IR for lattice.Engine.Compile,
	// or a ports.GraphSource.
	res := lattice.New().Compile(ctx, b.Raw())
*/
package dsl
