package tools

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/adviserops/chaser/internal/domain"
)

// ChaseSource provides read access to a firm's open chase items
type ChaseSource interface {
	ListOpenByFirm(ctx context.Context, firmID string) ([]*domain.ChaseItem, error)
}

// ScoreFunc scores a batch of chase items at one instant
type ScoreFunc func(items []*domain.ChaseItem, now time.Time) ([]*domain.ScoredChase, error)

// RecommendFunc ranks scored chases into an action list
type RecommendFunc func(scored []*domain.ScoredChase, now time.Time) []*domain.Recommendation

// Clock returns the current instant; injectable for tests
type Clock func() time.Time

// ChaseToolset builds the chase-side tools over the firm's chase book
type ChaseToolset struct {
	chases    ChaseSource
	score     ScoreFunc
	recommend RecommendFunc
	now       Clock
}

// NewChaseToolset creates a ChaseToolset
func NewChaseToolset(chases ChaseSource, score ScoreFunc, recommend RecommendFunc, now Clock) *ChaseToolset {
	if now == nil {
		now = time.Now
	}
	return &ChaseToolset{chases: chases, score: score, recommend: recommend, now: now}
}

// RegisterAll registers every chase tool on the catalog
func (t *ChaseToolset) RegisterAll(catalog *Catalog) error {
	for _, d := range t.descriptors() {
		if err := catalog.Register(d); err != nil {
			return err
		}
	}
	return nil
}

type chaseRow struct {
	ItemID       string  `json:"item_id"`
	ClientRef    string  `json:"client_ref"`
	ChaseType    string  `json:"chase_type"`
	Status       string  `json:"status"`
	Provider     string  `json:"provider,omitempty"`
	Subject      string  `json:"subject,omitempty"`
	ChaseCount   int     `json:"chase_count"`
	DaysOverdue  int     `json:"days_overdue"`
	Blocking     bool    `json:"blocking"`
	DaysSinceLog *int    `json:"days_since_last_chase,omitempty"`
	Urgency      float64 `json:"urgency,omitempty"`
	Stuck        float64 `json:"stuck,omitempty"`
	Composite    float64 `json:"composite,omitempty"`
	Priority     string  `json:"priority,omitempty"`
}

func (t *ChaseToolset) descriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name: "list_items_needing_chase",
			Description: "List every open item the firm is waiting on: provider authority requests, " +
				"client documents and post-advice items that are pending, sent or overdue. " +
				"Optionally filter by chase type.",
			Parameters: objectSchema(map[string]any{
				"chase_type": map[string]any{
					"type":        "string",
					"enum":        []string{"authorization_request", "client_document", "post_advice"},
					"description": "Restrict results to one chase type.",
				},
			}),
			Invoke: t.listItemsNeedingChase,
		},
		{
			Name: "find_stuck_items",
			Description: "Find chase items showing stuck risk: chased repeatedly or gone stale " +
				"without a response. Returns items with their stuck score, highest risk first.",
			Parameters: objectSchema(map[string]any{
				"min_stuck": map[string]any{
					"type":        "number",
					"description": "Minimum stuck score between 0 and 1 to include. Defaults to 0.5.",
				},
			}),
			Invoke: t.findStuckItems,
		},
		{
			Name: "prioritize_chase_items",
			Description: "Score and rank the firm's open chase items by priority. Returns urgency, " +
				"stuck and composite scores plus the priority tier for each item, most pressing first.",
			Parameters: objectSchema(map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of items to return.",
				},
			}),
			Invoke: t.prioritizeChaseItems,
		},
		{
			Name: "get_chase_recommendations",
			Description: "Get the ranked chase action list: which items to chase now, over which " +
				"channel, when, and with what suggested message.",
			Parameters: objectSchema(map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of recommendations to return.",
				},
			}),
			Invoke: t.getChaseRecommendations,
		},
		{
			Name: "analyze_provider_performance",
			Description: "Analyze how providers are responding to authority requests: open and " +
				"overdue counts, average days overdue and average chases needed, per provider.",
			Parameters: objectSchema(map[string]any{}),
			Invoke:     t.analyzeProviderPerformance,
		},
		{
			Name: "identify_blocking_items",
			Description: "Identify open chase items that block other work in a client's case, " +
				"ranked by how pressing they are.",
			Parameters: objectSchema(map[string]any{}),
			Invoke:     t.identifyBlockingItems,
		},
	}
}

func (t *ChaseToolset) listItemsNeedingChase(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	var params struct {
		ChaseType string `json:"chase_type"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	items, err := t.chases.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0, len(items))
	for _, item := range items {
		if params.ChaseType != "" && string(item.Type) != params.ChaseType {
			continue
		}
		rows = append(rows, baseRow(item, now))
	}
	return rows, nil
}

func (t *ChaseToolset) findStuckItems(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	params := struct {
		MinStuck float64 `json:"min_stuck"`
	}{MinStuck: 0.5}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	scored, err := t.scoreOpen(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0, len(scored))
	for _, s := range scored {
		if s.Stuck < params.MinStuck {
			continue
		}
		rows = append(rows, scoredRow(s, now))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Stuck > rows[j].Stuck })
	return rows, nil
}

func (t *ChaseToolset) prioritizeChaseItems(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	var params struct {
		Limit int `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	scored, err := t.scoreOpen(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0, len(scored))
	for _, s := range scored {
		rows = append(rows, scoredRow(s, now))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Composite > rows[j].Composite })
	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}
	return rows, nil
}

func (t *ChaseToolset) getChaseRecommendations(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	var params struct {
		Limit int `json:"limit"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	scored, err := t.scoreOpen(ctx, firmID)
	if err != nil {
		return nil, err
	}

	recs := t.recommend(scored, t.now())
	if params.Limit > 0 && len(recs) > params.Limit {
		recs = recs[:params.Limit]
	}

	type recRow struct {
		ItemID      string  `json:"item_id"`
		ClientRef   string  `json:"client_ref"`
		ChaseType   string  `json:"chase_type"`
		Priority    string  `json:"priority"`
		Composite   float64 `json:"composite"`
		DaysOverdue int     `json:"days_overdue"`
		Channel     string  `json:"channel"`
		Timing      string  `json:"timing"`
		Message     string  `json:"message"`
	}
	rows := make([]recRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, recRow{
			ItemID:      r.ItemID,
			ClientRef:   r.ClientRef,
			ChaseType:   string(r.ChaseType),
			Priority:    string(r.Priority),
			Composite:   r.Composite,
			DaysOverdue: r.DaysOverdue,
			Channel:     string(r.Channel),
			Timing:      string(r.Timing),
			Message:     r.Message,
		})
	}
	return rows, nil
}

func (t *ChaseToolset) analyzeProviderPerformance(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	items, err := t.chases.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	type providerStats struct {
		Provider       string  `json:"provider"`
		OpenRequests   int     `json:"open_requests"`
		OverdueCount   int     `json:"overdue_count"`
		AvgDaysOverdue float64 `json:"avg_days_overdue"`
		AvgChaseCount  float64 `json:"avg_chase_count"`
	}

	now := t.now()
	byProvider := make(map[string]*providerStats)
	for _, item := range items {
		if item.Type != domain.ChaseTypeAuthorizationRequest {
			continue
		}
		name := item.ProviderName
		if name == "" {
			name = "unknown"
		}
		stats, ok := byProvider[name]
		if !ok {
			stats = &providerStats{Provider: name}
			byProvider[name] = stats
		}
		stats.OpenRequests++
		stats.AvgChaseCount += float64(item.ChaseCount)
		if days := item.DaysOverdue(now); days > 0 {
			stats.OverdueCount++
			stats.AvgDaysOverdue += float64(days)
		}
	}

	out := make([]providerStats, 0, len(byProvider))
	for _, stats := range byProvider {
		if stats.OpenRequests > 0 {
			stats.AvgChaseCount /= float64(stats.OpenRequests)
		}
		if stats.OverdueCount > 0 {
			stats.AvgDaysOverdue /= float64(stats.OverdueCount)
		}
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverdueCount > out[j].OverdueCount })
	return out, nil
}

func (t *ChaseToolset) identifyBlockingItems(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	scored, err := t.scoreOpen(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0)
	for _, s := range scored {
		if !s.Item.Blocking {
			continue
		}
		rows = append(rows, scoredRow(s, now))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Composite > rows[j].Composite })
	return rows, nil
}

func (t *ChaseToolset) scoreOpen(ctx context.Context, firmID string) ([]*domain.ScoredChase, error) {
	items, err := t.chases.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}
	return t.score(items, t.now())
}

func baseRow(item *domain.ChaseItem, now time.Time) chaseRow {
	row := chaseRow{
		ItemID:      item.ID,
		ClientRef:   item.ClientRef,
		ChaseType:   string(item.Type),
		Status:      string(item.EffectiveStatus(now)),
		Provider:    item.ProviderName,
		Subject:     item.Subject,
		ChaseCount:  item.ChaseCount,
		DaysOverdue: item.DaysOverdue(now),
		Blocking:    item.Blocking,
	}
	if days, ok := item.DaysSinceLastChase(now); ok {
		row.DaysSinceLog = &days
	}
	return row
}

func scoredRow(s *domain.ScoredChase, now time.Time) chaseRow {
	row := baseRow(s.Item, now)
	row.Urgency = s.Urgency
	row.Stuck = s.Stuck
	row.Composite = s.Composite
	row.Priority = string(s.Priority)
	return row
}

// decodeArgs decodes reasoner-supplied arguments, treating empty input as an
// empty object
func decodeArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid tool arguments", err)
	}
	return nil
}
