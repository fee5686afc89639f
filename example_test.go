package lattice_test

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/dsl"
)

// ExampleEngine_Compile compiles a single page with a fixed clock and build id,
// so the result is reproducible.
func ExampleEngine_Compile() {
	eng := lattice.New(
		lattice.WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }),
		lattice.WithBuildIDGenerator(func() string { return "build-1" }),
	)

	res := eng.Compile(context.Background(), &domain.RawState{
		ProjectID: "hello",
		Nodes:     []domain.Node{{ID: "home", Type: domain.NodeTypeUIPage, Props: map[string]any{"name": "HelloPage"}}},
	})

	fmt.Println(res.Success, res.Stage, res.BuildID)
	fmt.Println(res.DefaultPreviewURL)
	for _, f := range res.Files {
		fmt.Println(f)
	}
	// Output:
	// true done build-1
	// /ui/hello-page
	// Dockerfile
	// README.md
	// app.py
	// docker-compose.yml
	// openapi.yaml
	// requirements.txt
	// templates/hello-page.html
}

// ExampleEngine_Compile_dsl builds the graph with the Go DSL instead of raw IR.
func ExampleEngine_Compile_dsl() {
	b := dsl.New("blog")
	b.Table("posts").Column("title", "string")
	b.Page("posts_page").Name("Posts").Route("/posts").BindTable("posts")
	b.Edge("posts", "posts_page", domain.EdgeKindDataFlow)

	res := lattice.New().Compile(context.Background(), b.Raw())

	fmt.Println(res.Success, res.DefaultPreviewURL, len(res.Warnings))
	// Output:
	// true /ui/posts 0
}
