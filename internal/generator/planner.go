package generator

import (
	"github.com/aretw0/lattice/pkg/domain"
)

// passPlan buckets nodes by the pass that generates them.
// Each bucket keeps the order of state.Nodes.
type passPlan struct {
	rest         []*domain.Node
	db           []*domain.Node
	integrations []*domain.Node
	ui           []*domain.Node
}

var _ domain.Visitor = (*passPlan)(nil)

func planPasses(state *domain.BuilderState) *passPlan {
	p := &passPlan{}
	for i := range state.Nodes {
		// Types are valid in a normalized state, so Accept cannot fail.
		_ = state.Nodes[i].Accept(p)
	}
	return p
}

func (p *passPlan) VisitUIPage(n *domain.Node) error {
	p.ui = append(p.ui, n)
	return nil
}

func (p *passPlan) VisitRestAPI(n *domain.Node) error {
	p.rest = append(p.rest, n)
	return nil
}

func (p *passPlan) VisitDBTable(n *domain.Node) error {
	p.db = append(p.db, n)
	return nil
}

func (p *passPlan) VisitAuth(n *domain.Node) error {
	p.integrations = append(p.integrations, n)
	return nil
}

func (p *passPlan) VisitPayment(n *domain.Node) error {
	p.integrations = append(p.integrations, n)
	return nil
}

func (p *passPlan) VisitFileStore(n *domain.Node) error {
	p.integrations = append(p.integrations, n)
	return nil
}

func (p *passPlan) VisitAgentTool(n *domain.Node) error {
	p.integrations = append(p.integrations, n)
	return nil
}

// index holds what earlier passes produced, keyed by node id,
// plus the ordered lists the Config pass summarizes.
type index struct {
	apis       map[string]apiEntry
	tables     map[string]domain.TableBinding
	fileStores map[string]fileStoreEntry
	// handlers maps a handler function name to the "METHOD route" it serves.
	handlers map[string]string

	apiOrder   []apiEntry
	models     []string
	auths      []*domain.Auth
	payments   []*domain.Payment
	storeOrder []fileStoreEntry
	tools      []string
	pages      []pageEntry
}

func newIndex() *index {
	return &index{
		apis:       make(map[string]apiEntry),
		tables:     make(map[string]domain.TableBinding),
		fileStores: make(map[string]fileStoreEntry),
		handlers:   make(map[string]string),
	}
}

type apiEntry struct {
	domain.APIBinding
	Name         string
	Func         string
	FlaskRoute   string
	Params       []string
	RequiresAuth bool
	Sample       any
}

type fileStoreEntry struct {
	domain.FileStoreBinding
	AllowedTypes []string
	MaxSizeMB    int
}

type pageEntry struct {
	Route                string
	Title                string
	Slug                 string
	Func                 string
	Template             string
	Preview              string
	PreviewRoutes        []string
	RequiresAuth         bool
	RequiresSubscription bool
}
