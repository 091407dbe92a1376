package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/ado"
	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/model"
)

// detailFields are fetched for every listed work item
var detailFields = []string{
	model.FieldID,
	model.FieldWorkItemType,
	model.FieldTitle,
	model.FieldState,
	model.FieldIterationPath,
}

// AzureDevOpsProvider implements Provider for Azure Boards
type AzureDevOpsProvider struct {
	client *ado.Client
	logger *zap.Logger
}

// NewAzureDevOpsProvider creates a new Azure DevOps provider
func NewAzureDevOpsProvider(orgURL, project, team, pat string, logger *zap.Logger, opts ...ado.Option) *AzureDevOpsProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AzureDevOpsProvider{
		client: ado.NewClient(orgURL, project, team, pat, opts...),
		logger: logger.Named("ado"),
	}
}

// Name returns the display name
func (p *AzureDevOpsProvider) Name() string {
	return "Azure DevOps"
}

// IsAvailable checks that the token can read the team's iterations
func (p *AzureDevOpsProvider) IsAvailable(ctx context.Context) bool {
	return p.client.IsAuthenticated(ctx)
}

// ListIterations returns the team's iterations
func (p *AzureDevOpsProvider) ListIterations(ctx context.Context) ([]model.Iteration, error) {
	raw, err := p.client.GetTeamIterations(ctx)
	if err != nil {
		return nil, err
	}

	iterations := make([]model.Iteration, 0, len(raw))
	for _, it := range raw {
		iterations = append(iterations, toIteration(it))
	}
	p.logger.Debug("iterations fetched", zap.Int("count", len(iterations)))
	return iterations, nil
}

// QueryWorkItems runs the query as WIQL
func (p *AzureDevOpsProvider) QueryWorkItems(ctx context.Context, q carryover.Query) ([]int, error) {
	wiql := q.WIQL()
	p.logger.Debug("running wiql", zap.String("query", wiql))
	return p.client.QueryByWiql(ctx, wiql)
}

// GetWorkItems fetches item details in one batch
func (p *AzureDevOpsProvider) GetWorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error) {
	raw, err := p.client.GetWorkItems(ctx, ids, detailFields)
	if err != nil {
		return nil, err
	}

	items := make([]model.WorkItem, 0, len(raw))
	for _, wi := range raw {
		items = append(items, toWorkItem(wi))
	}
	return items, nil
}

// PatchIterationPath replaces System.IterationPath on one item
func (p *AzureDevOpsProvider) PatchIterationPath(ctx context.Context, id int, path string) error {
	return p.client.ReplaceField(ctx, id, model.FieldIterationPath, path)
}

// toIteration converts a service iteration to the domain type
func toIteration(it ado.Iteration) model.Iteration {
	out := model.Iteration{
		ID:   it.ID,
		Name: it.Name,
		Path: it.Path,
	}
	if it.Attributes.StartDate != nil {
		out.StartDate = it.Attributes.StartDate.Time
	}
	if it.Attributes.FinishDate != nil {
		out.FinishDate = it.Attributes.FinishDate.Time
	}
	return out
}

// toWorkItem converts a service work item to the domain type
func toWorkItem(wi ado.WorkItem) model.WorkItem {
	return model.WorkItem{
		ID:            wi.ID,
		WorkItemType:  wi.StringField(model.FieldWorkItemType),
		Title:         wi.StringField(model.FieldTitle),
		State:         wi.StringField(model.FieldState),
		IterationPath: wi.StringField(model.FieldIterationPath),
	}
}
