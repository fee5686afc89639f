package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// CoerceDefaults returns a copy of the node's props completed with the defaults of its type.
// The node itself is not modified. Applying it to its own output changes nothing.
func CoerceDefaults(node *domain.Node) (map[string]any, error) {
	d := &defaulter{props: domain.CopyMap(node.Props)}
	if d.props == nil {
		d.props = make(map[string]any)
	}
	if err := node.Accept(d); err != nil {
		return nil, err
	}
	return d.props, nil
}

// defaulter fills props in place. It implements domain.Visitor, so a new
// node type cannot be added without a defaulting rule.
type defaulter struct {
	props map[string]any
}

var _ domain.Visitor = (*defaulter)(nil)

func (d *defaulter) VisitUIPage(*domain.Node) error {
	p := d.props

	name, ok := text(p, "name")
	if !ok {
		name, ok = text(p, "title")
	}
	if !ok {
		name = "Page"
	}
	setDefault(p, "name", name)

	if route, ok := text(p, "route"); ok {
		if !strings.HasPrefix(route, "/") {
			p["route"] = "/" + route
		}
	} else if absent(p, "route") || p["route"] == "" {
		p["route"] = "/" + SlugOr(name, "page")
	}

	setDefault(p, "title", name)
	title, _ := p["title"].(string)
	setDefault(p, "content", fmt.Sprintf("<h1>%s</h1>\n<p>Welcome to %s.</p>", title, title))

	if s, ok := p["consumes"].(string); ok {
		p["consumes"] = []any{s}
	}
	setDefault(p, "consumes", []any{})
	setNullable(p, "bind_table")
	setNullable(p, "bind_file_store")
	setDefault(p, "form", map[string]any{"enabled": false, "fields": []any{}})
	setDefault(p, "requires_auth", false)
	setDefault(p, "requires_subscription", false)
	return nil
}

func (d *defaulter) VisitRestAPI(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "Api")
	setDefault(p, "method", "GET")

	switch v := p["sample_response"].(type) {
	case nil, string:
	default:
		if data, err := json.Marshal(v); err == nil {
			p["sample_response"] = string(data)
		}
	}
	setDefault(p, "sample_response", `{"ok": true}`)

	if route, ok := text(p, "route"); ok {
		p["route"] = apiRoute(route)
	} else if absent(p, "route") || p["route"] == "" {
		name, _ := p["name"].(string)
		p["route"] = "/api/" + SlugOr(name, "endpoint")
	}
	setDefault(p, "requires_auth", false)
	return nil
}

// apiRoute forces a route under the /api/ prefix.
func apiRoute(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/"):
		return route
	case strings.HasPrefix(route, "/"):
		return "/api" + route
	default:
		return "/api/" + route
	}
}

func (d *defaulter) VisitDBTable(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "table")
	if cols, ok := p["columns"].([]any); ok && len(cols) > 0 {
		p["columns"] = fillColumns(cols)
	} else if absent(p, "columns") || ok {
		p["columns"] = []any{
			column("id", "INTEGER PRIMARY KEY AUTOINCREMENT"),
			column("title", "TEXT"),
		}
	}
	return nil
}

// fillColumns gives every column a name and a type.
// Bare strings are read as column names.
func fillColumns(cols []any) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		switch col := c.(type) {
		case map[string]any:
			filled := domain.CopyMap(col)
			if _, ok := text(filled, "name"); !ok {
				filled["name"] = "column"
			}
			if _, ok := text(filled, "type"); !ok {
				filled["type"] = "TEXT"
			}
			out[i] = filled
		case string:
			out[i] = column(col, "TEXT")
		default:
			out[i] = c
		}
	}
	return out
}

func (d *defaulter) VisitAuth(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "Auth")
	setDefault(p, "strategy", "jwt")
	setDefault(p, "roles", []any{"admin", "user"})
	setDefault(p, "user_table", "users")
	if cols, ok := p["user_columns"].([]any); ok && len(cols) > 0 {
		p["user_columns"] = fillColumns(cols)
	} else if ok {
		delete(p, "user_columns")
	}
	setDefault(p, "user_columns", []any{
		column("id", "INTEGER PRIMARY KEY AUTOINCREMENT"),
		column("email", "TEXT UNIQUE NOT NULL"),
		column("password_hash", "TEXT NOT NULL"),
		column("role", "TEXT DEFAULT 'user'"),
		column("subscription_plan", "TEXT"),
		column("subscription_status", "TEXT"),
		column("trial_end", "DATETIME"),
		column("created_at", "DATETIME DEFAULT CURRENT_TIMESTAMP"),
		column("updated_at", "DATETIME DEFAULT CURRENT_TIMESTAMP"),
	})
	return nil
}

func (d *defaulter) VisitPayment(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "Payments")
	setDefault(p, "provider", "stripe")
	setDefault(p, "plans", []any{
		plan("Basic", 9, "Core features", "Email support"),
		plan("Pro", 29, "Everything in Basic", "Priority support", "Team members"),
		plan("Enterprise", 99, "Everything in Pro", "SLA", "Dedicated support"),
	})
	setDefault(p, "trial_days", 14)
	setDefault(p, "currency", "usd")
	return nil
}

func (d *defaulter) VisitFileStore(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "FileStore")
	setDefault(p, "provider", "local")
	setDefault(p, "local_path", "./instance/uploads")
	setDefault(p, "allowed_types", []any{"*"})
	setDefault(p, "max_size_mb", 20)
	setNullable(p, "bucket")
	return nil
}

func (d *defaulter) VisitAgentTool(*domain.Node) error {
	p := d.props

	setDefault(p, "name", "NewTool")
	setDefault(p, "description", "A tool exposed to agents by the generated application.")
	return nil
}

// --- helpers ---

func column(name, typ string) map[string]any {
	return map[string]any{"name": name, "type": typ}
}

func plan(name string, price int, features ...string) map[string]any {
	fs := make([]any, len(features))
	for i, f := range features {
		fs[i] = f
	}
	return map[string]any{"name": name, "price": price, "interval": "month", "features": fs}
}

// text returns a non-empty string property.
func text(p map[string]any, key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok && s != ""
}

func present(p map[string]any, key string) bool {
	_, ok := p[key]
	return ok
}

// absent reports a missing or null property.
func absent(p map[string]any, key string) bool {
	v, ok := p[key]
	return !ok || v == nil
}

// setDefault assigns v when key is missing, null or an empty string.
func setDefault(p map[string]any, key string, v any) {
	if absent(p, key) || p[key] == "" {
		p[key] = v
	}
}

// setNullable makes sure key is present, defaulting to null.
func setNullable(p map[string]any, key string) {
	if !present(p, key) || p[key] == "" {
		p[key] = nil
	}
}
