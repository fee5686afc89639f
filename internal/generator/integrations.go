package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

var planIntervals = map[string]bool{"day": true, "week": true, "month": true, "year": true}

// integrationsVisitor generates auth, payment, file_store and agent_tool nodes.
// The other types never reach this pass.
type integrationsVisitor struct {
	r   *run
	res *nodeResult
}

var _ domain.Visitor = (*integrationsVisitor)(nil)

func (r *run) integrationsPass(nodes []*domain.Node) {
	for _, node := range nodes {
		v := &integrationsVisitor{r: r}
		err := node.Accept(v)
		r.commit(node, GenIntegrations, v.res, err)
	}
	r.authFile()
	r.paymentsFile()
	r.storageFile()
}

var errWrongPass = errors.New("node type is not generated by the integrations pass")

func (v *integrationsVisitor) VisitUIPage(*domain.Node) error  { return errWrongPass }
func (v *integrationsVisitor) VisitRestAPI(*domain.Node) error { return errWrongPass }
func (v *integrationsVisitor) VisitDBTable(*domain.Node) error { return errWrongPass }

func (v *integrationsVisitor) VisitAuth(node *domain.Node) error {
	auth, err := registry.Decode[domain.Auth](node.Props)
	if err != nil {
		return err
	}
	if len(auth.Roles) == 0 {
		return errors.New("roles must not be empty")
	}

	table := registry.TableName(auth.UserTable)
	files, columns, err := v.r.tableFiles(node, GenIntegrations, table, auth.UserColumns)
	if err != nil {
		return err
	}

	v.r.index.auths = append(v.r.index.auths, auth)
	v.res = &nodeResult{
		files: files,
		artifact: &domain.Artifact{
			Type:    string(domain.NodeTypeAuth),
			ID:      node.ID,
			Name:    auth.Name,
			Table:   table,
			Columns: columns,
		},
	}
	return nil
}

func (v *integrationsVisitor) VisitPayment(node *domain.Node) error {
	payment, err := registry.Decode[domain.Payment](node.Props)
	if err != nil {
		return err
	}
	if len(payment.Currency) != 3 {
		return fmt.Errorf("currency %q is not an ISO 4217 code", payment.Currency)
	}
	if payment.TrialDays < 0 {
		return fmt.Errorf("trial_days must not be negative, got %d", payment.TrialDays)
	}
	for i, plan := range payment.Plans {
		switch {
		case plan.Name == "":
			return fmt.Errorf("plan %d: missing name", i)
		case plan.Price < 0:
			return fmt.Errorf("plan %q: negative price", plan.Name)
		case plan.Interval == "":
			payment.Plans[i].Interval = "month"
		case !planIntervals[plan.Interval]:
			return fmt.Errorf("plan %q: unsupported interval %q", plan.Name, plan.Interval)
		}
	}
	payment.Currency = strings.ToLower(payment.Currency)

	v.r.index.payments = append(v.r.index.payments, payment)
	v.res = &nodeResult{artifact: &domain.Artifact{
		Type: string(domain.NodeTypePayment),
		ID:   node.ID,
		Name: payment.Name,
	}}
	return nil
}

func (v *integrationsVisitor) VisitFileStore(node *domain.Node) error {
	store, err := registry.Decode[domain.FileStore](node.Props)
	if err != nil {
		return err
	}
	if store.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got %d", store.MaxSizeMB)
	}

	var location string
	switch {
	case store.Provider == "local":
		if store.LocalPath == "" {
			return errors.New("local provider requires local_path")
		}
		location = store.LocalPath
	case store.Bucket == nil || *store.Bucket == "":
		return fmt.Errorf("provider %q requires a bucket", store.Provider)
	default:
		location = store.Provider + "://" + *store.Bucket
	}

	entry := fileStoreEntry{
		FileStoreBinding: domain.FileStoreBinding{
			NodeID:   node.ID,
			Name:     registry.TableName(store.Name),
			Provider: store.Provider,
			Location: location,
		},
		AllowedTypes: store.AllowedTypes,
		MaxSizeMB:    store.MaxSizeMB,
	}
	v.r.index.fileStores[node.ID] = entry
	v.r.index.storeOrder = append(v.r.index.storeOrder, entry)
	v.res = &nodeResult{artifact: &domain.Artifact{
		Type: string(domain.NodeTypeFileStore),
		ID:   node.ID,
		Name: store.Name,
		Slug: entry.Name,
	}}
	return nil
}

func (v *integrationsVisitor) VisitAgentTool(node *domain.Node) error {
	tool, err := registry.Decode[domain.AgentTool](node.Props)
	if err != nil {
		return err
	}

	module := identifier(tool.Name, "tool")
	content, err := render("tool.py", tool)
	if err != nil {
		return err
	}

	v.r.index.tools = append(v.r.index.tools, module)
	files := []domain.File{v.r.file(node, GenIntegrations, "tools/"+module+".py", content)}
	v.res = &nodeResult{
		files: files,
		artifact: &domain.Artifact{
			Type: string(domain.NodeTypeAgentTool),
			ID:   node.ID,
			Name: tool.Name,
			Slug: module,
		},
	}
	return nil
}

// authFile merges every auth node into auth.py. The first node sets the strategy.
func (r *run) authFile() {
	if len(r.index.auths) == 0 {
		return
	}
	var roles, tables []string
	seen := make(map[string]bool)
	for _, auth := range r.index.auths {
		for _, role := range auth.Roles {
			if !seen[role] {
				seen[role] = true
				roles = append(roles, role)
			}
		}
		tables = append(tables, registry.TableName(auth.UserTable))
	}

	content, err := render("auth.py", map[string]any{
		"Project":    r.state.ProjectID,
		"Strategy":   r.index.auths[0].Strategy,
		"Roles":      roles,
		"UserTables": tables,
	})
	if err != nil {
		r.fail(GenIntegrations, err)
		return
	}
	r.out.Files = append(r.out.Files, r.file(nil, GenIntegrations, "auth.py", content))
}

// paymentsFile merges every payment node into payments.py. The first node sets the provider.
func (r *run) paymentsFile() {
	if len(r.index.payments) == 0 {
		return
	}
	first := r.index.payments[0]
	var plans []domain.Plan
	stripe := false
	for _, p := range r.index.payments {
		plans = append(plans, p.Plans...)
		stripe = stripe || p.Provider == "stripe"
	}

	content, err := render("payments.py", map[string]any{
		"Project":   r.state.ProjectID,
		"Stripe":    stripe,
		"Provider":  first.Provider,
		"Currency":  first.Currency,
		"TrialDays": first.TrialDays,
		"Plans":     plans,
	})
	if err != nil {
		r.fail(GenIntegrations, err)
		return
	}
	r.out.Files = append(r.out.Files, r.file(nil, GenIntegrations, "payments.py", content))
}

func (r *run) storageFile() {
	if len(r.index.storeOrder) == 0 {
		return
	}
	content, err := render("storage.py", map[string]any{
		"Project": r.state.ProjectID,
		"Stores":  r.index.storeOrder,
	})
	if err != nil {
		r.fail(GenIntegrations, err)
		return
	}
	r.out.Files = append(r.out.Files, r.file(nil, GenIntegrations, "storage.py", content))
}
