package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

type columnEntry struct {
	Name  string
	Ident string
	Type  ColumnType
}

func (r *run) dbPass(nodes []*domain.Node) {
	for _, node := range nodes {
		res, err := r.dbNode(node)
		r.commit(node, GenDB, res, err)
	}
}

func (r *run) dbNode(node *domain.Node) (*nodeResult, error) {
	table, err := registry.Decode[domain.DBTable](node.Props)
	if err != nil {
		return nil, err
	}

	name := registry.TableName(table.Name)
	files, columns, err := r.tableFiles(node, GenDB, name, table.Columns)
	if err != nil {
		return nil, err
	}

	r.index.tables[node.ID] = domain.TableBinding{NodeID: node.ID, Name: name, Columns: columns}
	return &nodeResult{
		files: files,
		artifact: &domain.Artifact{
			Type:    string(domain.NodeTypeDBTable),
			ID:      node.ID,
			Name:    table.Name,
			Table:   name,
			Columns: columns,
		},
	}, nil
}

// tableFiles renders the model and the migration of one table.
// The migration is rendered last, so a failure never consumes a revision.
func (r *run) tableFiles(node *domain.Node, generator, table string, cols []domain.Column) ([]domain.File, []domain.Column, error) {
	entries, err := parseColumns(cols)
	if err != nil {
		return nil, nil, err
	}

	model, err := render("model.py", map[string]any{
		"Class":   className(table),
		"Table":   table,
		"Columns": entries,
	})
	if err != nil {
		return nil, nil, err
	}

	seq := r.migrationSeq + 1
	revision := fmt.Sprintf("%s_%03d", r.opts.Now.UTC().Format("20060102150405"), seq)
	migration, err := render("migration.py", map[string]any{
		"Table":        table,
		"Revision":     revision,
		"DownRevision": r.lastRevision,
		"CreatedAt":    r.opts.Now.UTC().Format(time.RFC3339),
		"Columns":      entries,
	})
	if err != nil {
		return nil, nil, err
	}
	r.migrationSeq = seq
	r.lastRevision = revision
	r.index.models = append(r.index.models, table)

	out := make([]domain.Column, len(cols))
	copy(out, cols)
	return []domain.File{
		r.file(node, generator, "models/"+table+".py", model),
		r.file(node, generator, fmt.Sprintf("migrations/%s_create_%s.py", revision, table), migration),
	}, out, nil
}

func parseColumns(cols []domain.Column) ([]columnEntry, error) {
	entries := make([]columnEntry, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true

		typ, err := ParseColumnType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		entries = append(entries, columnEntry{Name: col.Name, Ident: identifier(col.Name, "column"), Type: typ})
	}
	return entries, nil
}

// className turns "blog_posts" into "BlogPosts".
func className(table string) string {
	var sb strings.Builder
	for _, part := range strings.Split(table, "_") {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	if sb.Len() == 0 || (sb.String()[0] >= '0' && sb.String()[0] <= '9') {
		return "Model" + sb.String()
	}
	return sb.String()
}
