package generator

import (
	"bytes"
	"sort"
	"strings"

	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Counts summarizes a generated application in its README.
type Counts struct {
	Models       int
	Pages        int
	APIs         int
	Auth         int
	Storage      int
	Integrations int
}

type configStep struct {
	path  string
	build func() ([]byte, error)
}

func (r *run) configPass() {
	steps := []configStep{
		{"app.py", r.appFile},
		{"requirements.txt", r.requirementsFile},
		{"Dockerfile", r.dockerfile},
		{"docker-compose.yml", r.composeFile},
		{"README.md", r.readmeFile},
		{"openapi.yaml", r.openAPIFile},
	}
	if len(r.index.models) > 0 {
		steps = append(steps, configStep{"models/base.py", modelsBase})
	}

	for _, step := range steps {
		content, err := step.build()
		if err != nil {
			r.fail(GenConfig, err)
			continue
		}
		r.out.Files = append(r.out.Files, r.file(nil, GenConfig, step.path, content))
	}

	artifact := domain.Artifact{Type: domain.ArtifactConfig, Name: r.state.ProjectID}
	for _, f := range r.out.Files {
		if f.NodeID == "" {
			artifact.Files = append(artifact.Files, f.Path)
		}
	}
	r.out.Artifacts = append(r.out.Artifacts, artifact)
}

func (r *run) counts() Counts {
	return Counts{
		Models:       len(r.index.models),
		Pages:        len(r.index.pages),
		APIs:         len(r.index.apiOrder),
		Auth:         len(r.index.auths),
		Storage:      len(r.index.storeOrder),
		Integrations: len(r.index.payments) + len(r.index.tools),
	}
}

func (r *run) appFile() ([]byte, error) {
	return render("app.py", map[string]any{
		"Project": r.state.ProjectID,
		"HasAPIs": len(r.index.apiOrder) > 0,
		"HasAuth": len(r.index.auths) > 0,
		"Pages":   r.index.pages,
	})
}

func (r *run) requirementsFile() ([]byte, error) {
	reqs := map[string]bool{
		"flask>=3.0":      true,
		"gunicorn>=22.0":  true,
		"sqlalchemy>=2.0": true,
	}
	if len(r.index.models) > 0 {
		reqs["alembic>=1.13"] = true
		reqs["psycopg2-binary>=2.9"] = true
	}
	for _, auth := range r.index.auths {
		if auth.Strategy == "jwt" {
			reqs["pyjwt>=2.8"] = true
		}
		reqs["werkzeug>=3.0"] = true
	}
	for _, p := range r.index.payments {
		if p.Provider == "stripe" {
			reqs["stripe>=9.0"] = true
		}
	}
	for _, s := range r.index.storeOrder {
		if s.Provider == "s3" {
			reqs["boto3>=1.34"] = true
		}
	}

	lines := make([]string, 0, len(reqs))
	for req := range reqs {
		lines = append(lines, req)
	}
	sort.Strings(lines)
	return []byte(strings.Join(lines, "\n") + "\n"), nil
}

func (r *run) dockerfile() ([]byte, error) {
	hasLocal := false
	for _, s := range r.index.storeOrder {
		hasLocal = hasLocal || s.Provider == "local"
	}
	return render("Dockerfile", map[string]any{"HasStorage": hasLocal})
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]map[string]any `yaml:"volumes,omitempty"`
}

type composeService struct {
	Build       string            `yaml:"build,omitempty"`
	Image       string            `yaml:"image,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
}

func (r *run) composeFile() ([]byte, error) {
	web := composeService{
		Build:       ".",
		Ports:       []string{"8000:8000"},
		Environment: map[string]string{"PORT": "8000"},
	}
	compose := composeFile{Services: map[string]composeService{}}

	if len(r.index.models) > 0 {
		compose.Services["db"] = composeService{
			Image: "postgres:16-alpine",
			Environment: map[string]string{
				"POSTGRES_USER":     "app",
				"POSTGRES_PASSWORD": "app",
				"POSTGRES_DB":       "app",
			},
			Volumes: []string{"db-data:/var/lib/postgresql/data"},
		}
		web.Environment["DATABASE_URL"] = "postgresql://app:app@db:5432/app"
		web.DependsOn = []string{"db"}
		compose.Volumes = map[string]map[string]any{"db-data": {}}
	}
	for _, s := range r.index.storeOrder {
		if s.Provider != "local" {
			continue
		}
		if compose.Volumes == nil {
			compose.Volumes = map[string]map[string]any{}
		}
		volume := "uploads-" + strings.ReplaceAll(s.Name, "_", "-")
		compose.Volumes[volume] = map[string]any{}
		web.Volumes = append(web.Volumes, volume+":/app/"+strings.TrimPrefix(s.Location, "./"))
	}
	compose.Services["web"] = web

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(compose); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *run) readmeFile() ([]byte, error) {
	mermaid := graph.GenerateMermaid(r.state, &graph.GraphOverlay{
		GeneratedNodes: r.out.Generated,
		FailedNodes:    r.out.Failed,
	})
	return render("README.md", map[string]any{
		"Project": r.state.ProjectID,
		"Version": r.state.Version,
		"Counts":  r.counts(),
		"Pages":   r.index.pages,
		"Mermaid": mermaid,
	})
}

func (r *run) openAPIFile() ([]byte, error) {
	return buildOpenAPI(r.state.ProjectID, r.state.Version, r.index.apiOrder)
}

func modelsBase() ([]byte, error) {
	return []byte("from sqlalchemy.orm import DeclarativeBase\n\n\nclass Base(DeclarativeBase):\n    pass\n"), nil
}
