package tools

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/adviserops/chaser/internal/domain"
)

// ClientSource provides read access to a firm's client book
type ClientSource interface {
	ListByFirm(ctx context.Context, firmID string) ([]*domain.Client, error)
}

// InsightToolset builds tools that answer questions about the client book
// rather than the chase queue
type InsightToolset struct {
	clients ClientSource
	chases  ChaseSource
	now     Clock
}

// NewInsightToolset creates an InsightToolset
func NewInsightToolset(clients ClientSource, chases ChaseSource, now Clock) *InsightToolset {
	if now == nil {
		now = time.Now
	}
	return &InsightToolset{clients: clients, chases: chases, now: now}
}

// RegisterAll registers every insight tool on the catalog
func (t *InsightToolset) RegisterAll(catalog *Catalog) error {
	for _, d := range t.descriptors() {
		if err := catalog.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func (t *InsightToolset) descriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name: "find_review_due_clients",
			Description: "Find clients whose annual review is due within a window of days, " +
				"soonest first.",
			Parameters: objectSchema(map[string]any{
				"window_days": map[string]any{
					"type":        "integer",
					"description": "Look-ahead window in days. Defaults to 30.",
				},
			}),
			Invoke: t.findReviewDueClients,
		},
		{
			Name: "check_allowance_availability",
			Description: "Check how much unused ISA and pension allowance each client still has " +
				"this tax year.",
			Parameters: objectSchema(map[string]any{
				"min_headroom": map[string]any{
					"type":        "number",
					"description": "Only include clients with at least this much combined unused allowance.",
				},
			}),
			Invoke: t.checkAllowanceAvailability,
		},
		{
			Name: "analyze_excess_cash",
			Description: "Find clients holding more cash than they likely need, who may be " +
				"candidates for investment conversations.",
			Parameters: objectSchema(map[string]any{
				"threshold": map[string]any{
					"type":        "number",
					"description": "Cash balance above which a client is included. Defaults to 50000.",
				},
			}),
			Invoke: t.analyzeExcessCash,
		},
		{
			Name: "list_documents_waiting",
			Description: "List the client documents the firm is still waiting to receive, with " +
				"how long each has been outstanding.",
			Parameters: objectSchema(map[string]any{}),
			Invoke:     t.listDocumentsWaiting,
		},
		{
			Name: "find_overdue_follow_ups",
			Description: "Find chase items that have slipped past their due date, most overdue " +
				"first.",
			Parameters: objectSchema(map[string]any{}),
			Invoke:     t.findOverdueFollowUps,
		},
		{
			Name: "find_birthday_clients",
			Description: "Find clients with a birthday coming up within a window of days, useful " +
				"for relationship touchpoints and age-triggered planning.",
			Parameters: objectSchema(map[string]any{
				"window_days": map[string]any{
					"type":        "integer",
					"description": "Look-ahead window in days. Defaults to 30.",
				},
			}),
			Invoke: t.findBirthdayClients,
		},
		{
			Name: "analyze_retirement_demographics",
			Description: "Summarize the client book by age band and count clients approaching " +
				"retirement age.",
			Parameters: objectSchema(map[string]any{}),
			Invoke:     t.analyzeRetirementDemographics,
		},
	}
}

type clientRow struct {
	ClientRef     string  `json:"client_ref"`
	Name          string  `json:"name"`
	ValueTier     string  `json:"value_tier"`
	NextReviewDue string  `json:"next_review_due,omitempty"`
	ISAHeadroom   float64 `json:"isa_headroom,omitempty"`
	PensionRoom   float64 `json:"pension_headroom,omitempty"`
	CashBalance   float64 `json:"cash_balance,omitempty"`
	Age           int     `json:"age,omitempty"`
}

func (t *InsightToolset) findReviewDueClients(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	params := struct {
		WindowDays int `json:"window_days"`
	}{WindowDays: 30}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	clients, err := t.clients.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	window := time.Duration(params.WindowDays) * 24 * time.Hour
	due := make([]*domain.Client, 0)
	for _, c := range clients {
		if c.ReviewDueWithin(now, window) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextReviewDue.Before(*due[j].NextReviewDue)
	})

	rows := make([]clientRow, 0, len(due))
	for _, c := range due {
		rows = append(rows, clientRow{
			ClientRef:     c.Ref,
			Name:          c.Name,
			ValueTier:     string(c.ValueTier),
			NextReviewDue: c.NextReviewDue.Format("2006-01-02"),
		})
	}
	return rows, nil
}

func (t *InsightToolset) checkAllowanceAvailability(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	var params struct {
		MinHeadroom float64 `json:"min_headroom"`
	}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	clients, err := t.clients.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	rows := make([]clientRow, 0, len(clients))
	for _, c := range clients {
		isa, pension := c.ISAHeadroom(), c.PensionHeadroom()
		if isa+pension < params.MinHeadroom {
			continue
		}
		rows = append(rows, clientRow{
			ClientRef:   c.Ref,
			Name:        c.Name,
			ValueTier:   string(c.ValueTier),
			ISAHeadroom: isa,
			PensionRoom: pension,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ISAHeadroom+rows[i].PensionRoom > rows[j].ISAHeadroom+rows[j].PensionRoom
	})
	return rows, nil
}

func (t *InsightToolset) analyzeExcessCash(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	params := struct {
		Threshold float64 `json:"threshold"`
	}{Threshold: 50000}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	clients, err := t.clients.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	rows := make([]clientRow, 0)
	for _, c := range clients {
		if c.CashBalance < params.Threshold {
			continue
		}
		rows = append(rows, clientRow{
			ClientRef:   c.Ref,
			Name:        c.Name,
			ValueTier:   string(c.ValueTier),
			CashBalance: c.CashBalance,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CashBalance > rows[j].CashBalance })
	return rows, nil
}

func (t *InsightToolset) listDocumentsWaiting(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	items, err := t.chases.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0)
	for _, item := range items {
		if item.Type != domain.ChaseTypeClientDocument {
			continue
		}
		rows = append(rows, baseRow(item, now))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysOverdue > rows[j].DaysOverdue })
	return rows, nil
}

func (t *InsightToolset) findOverdueFollowUps(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	items, err := t.chases.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]chaseRow, 0)
	for _, item := range items {
		if item.DaysOverdue(now) == 0 {
			continue
		}
		rows = append(rows, baseRow(item, now))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysOverdue > rows[j].DaysOverdue })
	return rows, nil
}

func (t *InsightToolset) findBirthdayClients(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	params := struct {
		WindowDays int `json:"window_days"`
	}{WindowDays: 30}
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	clients, err := t.clients.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	rows := make([]clientRow, 0)
	for _, c := range clients {
		if c.DateOfBirth == nil {
			continue
		}
		next := nextBirthday(*c.DateOfBirth, now)
		if next.Sub(now) > time.Duration(params.WindowDays)*24*time.Hour {
			continue
		}
		age, _ := c.Age(next)
		rows = append(rows, clientRow{
			ClientRef: c.Ref,
			Name:      c.Name,
			ValueTier: string(c.ValueTier),
			Age:       age,
		})
	}
	return rows, nil
}

func (t *InsightToolset) analyzeRetirementDemographics(ctx context.Context, firmID string, args json.RawMessage) (any, error) {
	clients, err := t.clients.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	summary := struct {
		TotalClients          int            `json:"total_clients"`
		KnownAges             int            `json:"known_ages"`
		ApproachingRetirement int            `json:"approaching_retirement"`
		ByAgeBand             map[string]int `json:"by_age_band"`
	}{ByAgeBand: make(map[string]int)}

	for _, c := range clients {
		summary.TotalClients++
		age, ok := c.Age(now)
		if !ok {
			continue
		}
		summary.KnownAges++
		summary.ByAgeBand[ageBand(age)]++
		if age >= 55 && age < 68 {
			summary.ApproachingRetirement++
		}
	}
	return summary, nil
}

// nextBirthday returns the next anniversary of dob at or after now
func nextBirthday(dob, now time.Time) time.Time {
	next := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if next.Before(now.Truncate(24 * time.Hour)) {
		next = next.AddDate(1, 0, 0)
	}
	return next
}

func ageBand(age int) string {
	switch {
	case age < 35:
		return "under_35"
	case age < 50:
		return "35_49"
	case age < 65:
		return "50_64"
	default:
		return "65_plus"
	}
}
