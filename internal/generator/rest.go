package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

var (
	// <id> or <int:id>
	flaskParam = regexp.MustCompile(`<(?:[a-z]+:)?([A-Za-z_][A-Za-z0-9_]*)>`)
	// {id}
	openAPIParam = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

func (r *run) restPass(nodes []*domain.Node) {
	for _, node := range nodes {
		res, err := r.restNode(node)
		r.commit(node, GenREST, res, err)
	}
	if len(r.index.apiOrder) == 0 {
		return
	}

	content, err := render("routes.py", map[string]any{
		"Project": r.state.ProjectID,
		"APIs":    r.index.apiOrder,
	})
	if err != nil {
		r.fail(GenREST, err)
		return
	}
	r.out.Files = append(r.out.Files, r.file(nil, GenREST, "routes.py", content))
}

func (r *run) restNode(node *domain.Node) (*nodeResult, error) {
	api, err := registry.Decode[domain.RestAPI](node.Props)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(api.Method))
	if !httpMethods[method] {
		return nil, fmt.Errorf("unsupported HTTP method %q", api.Method)
	}

	var sample any
	if err := json.Unmarshal([]byte(api.SampleResponse), &sample); err != nil {
		return nil, fmt.Errorf("sample_response is not valid JSON: %w", err)
	}

	flaskRoute := openAPIParam.ReplaceAllString(api.Route, "<$1>")
	var params []string
	for _, m := range flaskParam.FindAllStringSubmatch(flaskRoute, -1) {
		params = append(params, m[1])
	}

	entry := apiEntry{
		APIBinding:   domain.APIBinding{NodeID: node.ID, Route: api.Route, Method: method},
		Name:         api.Name,
		Func:         r.handlerName(method, flaskRoute),
		FlaskRoute:   flaskRoute,
		Params:       params,
		RequiresAuth: api.RequiresAuth,
		Sample:       sample,
	}

	content, err := render("handler.py", map[string]any{
		"Method":         method,
		"Route":          api.Route,
		"Name":           api.Name,
		"Func":           entry.Func,
		"Params":         params,
		"RequiresAuth":   api.RequiresAuth,
		"SampleResponse": api.SampleResponse,
	})
	if err != nil {
		return nil, err
	}

	r.index.handlers[entry.Func] = method + " " + flaskRoute
	r.index.apis[node.ID] = entry
	r.index.apiOrder = append(r.index.apiOrder, entry)

	return &nodeResult{
		files: []domain.File{r.file(node, GenREST, "handlers/"+entry.Func+".py", content)},
		artifact: &domain.Artifact{
			Type:   string(domain.NodeTypeRestAPI),
			ID:     node.ID,
			Name:   api.Name,
			Route:  api.Route,
			Method: method,
		},
	}, nil
}

// handlerName names the handler of a method and route. Distinct routes that
// reduce to the same identifier get a numeric suffix; the same method and
// route twice keep one name, so the packager reports the duplicate.
func (r *run) handlerName(method, flaskRoute string) string {
	base := strings.ToLower(method) + "_" + routeIdent(flaskRoute)
	key := method + " " + flaskRoute
	name := base
	for n := 2; ; n++ {
		owner, taken := r.index.handlers[name]
		if !taken || owner == key {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
}

// routeIdent turns "/api/users/<int:id>" into "api_users_id".
func routeIdent(route string) string {
	route = flaskParam.ReplaceAllString(route, "$1")
	return identifier(strings.ReplaceAll(route, "/", " "), "root")
}

// identifier derives a Python identifier from free text.
func identifier(s, fallback string) string {
	slug := registry.Slugify(strings.ReplaceAll(s, "_", " "))
	if slug == "" {
		return fallback
	}
	id := strings.ReplaceAll(slug, "-", "_")
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return id
}
