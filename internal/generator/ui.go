package generator

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

// PreviewPrefix is prepended to a page slug to form its preview URL.
const PreviewPrefix = "/ui/"

func (r *run) uiPass(nodes []*domain.Node) {
	for _, node := range nodes {
		res, err := r.uiNode(node)
		r.commit(node, GenUI, res, err)
	}
}

func (r *run) uiNode(node *domain.Node) (*nodeResult, error) {
	page, err := registry.Decode[domain.UIPage](node.Props)
	if err != nil {
		return nil, err
	}

	binding, err := r.resolveBinding(page)
	if err != nil {
		return nil, err
	}

	slug := registry.RouteToSlug(page.Route)
	aliases := aliasesOf(slug, page.Name, page.Title)
	preview := PreviewPrefix + slug
	template := "templates/" + slug + ".html"

	content, err := render("page.html", map[string]any{
		"Title":   page.Title,
		"Slug":    slug,
		"Content": page.Content,
		"Binding": binding,
	})
	if err != nil {
		return nil, err
	}

	previewRoutes := []string{}
	for _, route := range append([]string{slug}, aliases...) {
		if p := PreviewPrefix + route; p != page.Route {
			previewRoutes = append(previewRoutes, p)
		}
	}
	r.index.pages = append(r.index.pages, pageEntry{
		Route:                page.Route,
		Title:                page.Title,
		Slug:                 slug,
		Func:                 strings.ReplaceAll(slug, "-", "_"),
		Template:             slug + ".html",
		Preview:              preview,
		PreviewRoutes:        previewRoutes,
		RequiresAuth:         page.RequiresAuth,
		RequiresSubscription: page.RequiresSubscription,
	})

	r.out.PreviewURLs = append(r.out.PreviewURLs, preview)
	if r.out.DefaultPreviewURL == "" {
		r.out.DefaultPreviewURL = preview
	}

	return &nodeResult{
		files: []domain.File{r.file(node, GenUI, template, content)},
		artifact: &domain.Artifact{
			Type:    string(domain.NodeTypeUIPage),
			ID:      node.ID,
			Name:    page.Name,
			Route:   page.Route,
			Slug:    slug,
			Aliases: aliases,
			Title:   page.Title,
			Binding: binding,
		},
	}, nil
}

// resolveBinding looks up the page's references in what earlier passes generated.
func (r *run) resolveBinding(page *domain.UIPage) (*domain.Binding, error) {
	b := &domain.Binding{}

	if page.BindTable != "" {
		if err := r.checkRef("bind_table", page.BindTable, domain.NodeTypeDBTable); err != nil {
			return nil, err
		}
		table, ok := r.index.tables[page.BindTable]
		if !ok {
			return nil, fmt.Errorf("bind_table %q failed to generate", page.BindTable)
		}
		b.Table = &table
	}

	if page.BindFileStore != "" {
		if err := r.checkRef("bind_file_store", page.BindFileStore, domain.NodeTypeFileStore); err != nil {
			return nil, err
		}
		store, ok := r.index.fileStores[page.BindFileStore]
		if !ok {
			return nil, fmt.Errorf("bind_file_store %q failed to generate", page.BindFileStore)
		}
		b.FileStore = &store.FileStoreBinding
	}

	for _, ref := range page.Consumes {
		if err := r.checkRef("consumes", ref, domain.NodeTypeRestAPI); err != nil {
			return nil, err
		}
		api, ok := r.index.apis[ref]
		if !ok {
			return nil, fmt.Errorf("consumes %q failed to generate", ref)
		}
		b.APIs = append(b.APIs, api.APIBinding)
	}

	if page.Form.Enabled {
		form := page.Form
		b.Form = &form
	}
	return b, nil
}

func (r *run) checkRef(prop, id string, want domain.NodeType) error {
	node, ok := r.arena.Lookup(id)
	if !ok {
		return fmt.Errorf("%s references unknown node %q", prop, id)
	}
	if node.Type != want {
		return fmt.Errorf("%s references %q, a %s node, not a %s", prop, id, node.Type, want)
	}
	return nil
}

// aliasesOf returns the distinct non-empty slugs of names that differ from slug.
func aliasesOf(slug string, names ...string) []string {
	var aliases []string
	seen := map[string]bool{slug: true}
	for _, name := range names {
		alias := registry.Slugify(name)
		if alias == "" || seen[alias] {
			continue
		}
		seen[alias] = true
		aliases = append(aliases, alias)
	}
	return aliases
}
