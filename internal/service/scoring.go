package service

import (
	"math"
	"time"

	"github.com/adviserops/chaser/internal/domain"
)

// ScoringConfig holds the weights and thresholds the scoring engine runs on.
// Weights are unitless; every score is clipped into [0, 1].
type ScoringConfig struct {
	OverdueWeight float64
	ValueWeight   float64
	TypeWeight    float64

	// SLA windows in days per chase type; overdue days are normalized
	// against these before weighting.
	AuthorizationSLADays  int
	ClientDocumentSLADays int
	PostAdviceSLADays     int

	// Stuck score: each recorded chase contributes with diminishing
	// returns, staleness accrues per day without progress up to a cap.
	ChaseIncrement  float64
	StalenessPerDay float64
	StalenessCap    float64

	UrgencyShare float64
	StuckShare   float64

	UrgentThreshold float64
	HighThreshold   float64
	MediumThreshold float64
}

// DefaultScoringConfig returns the scoring configuration used in production
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		OverdueWeight:         0.5,
		ValueWeight:           0.3,
		TypeWeight:            0.2,
		AuthorizationSLADays:  7,
		ClientDocumentSLADays: 10,
		PostAdviceSLADays:     14,
		ChaseIncrement:        0.25,
		StalenessPerDay:       0.02,
		StalenessCap:          0.3,
		UrgencyShare:          0.6,
		StuckShare:            0.4,
		UrgentThreshold:       0.80,
		HighThreshold:         0.60,
		MediumThreshold:       0.35,
	}
}

// ScoringEngine computes urgency, stuck and composite scores for chase items.
// Scoring is pure: identical inputs and instants yield identical scores, and
// the item itself is never mutated.
type ScoringEngine struct {
	cfg ScoringConfig
}

// NewScoringEngine creates a ScoringEngine with the given configuration
func NewScoringEngine(cfg ScoringConfig) *ScoringEngine {
	return &ScoringEngine{cfg: cfg}
}

// Score computes the score snapshot for one chase item at the given instant
func (e *ScoringEngine) Score(item *domain.ChaseItem, now time.Time) (*domain.ScoredChase, error) {
	if item == nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "chase item is required")
	}
	if item.Type == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "chase item type is required")
	}
	if err := domain.ValidateChaseItem(item); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "chase item failed validation", err)
	}

	daysOverdue := item.DaysOverdue(now)
	urgency := e.urgency(item, daysOverdue)
	stuck := e.stuck(item, now)
	composite := clip01(e.cfg.UrgencyShare*urgency + e.cfg.StuckShare*stuck)

	return &domain.ScoredChase{
		Item:        item,
		Urgency:     urgency,
		Stuck:       stuck,
		Composite:   composite,
		Priority:    e.priority(composite),
		DaysOverdue: daysOverdue,
	}, nil
}

// ScoreAll scores a batch of items at a single shared instant
func (e *ScoringEngine) ScoreAll(items []*domain.ChaseItem, now time.Time) ([]*domain.ScoredChase, error) {
	scored := make([]*domain.ScoredChase, 0, len(items))
	for _, item := range items {
		s, err := e.Score(item, now)
		if err != nil {
			return nil, err
		}
		scored = append(scored, s)
	}
	return scored, nil
}

func (e *ScoringEngine) urgency(item *domain.ChaseItem, daysOverdue int) float64 {
	overdueNorm := math.Min(1, float64(daysOverdue)/float64(e.slaDays(item.Type)))
	return clip01(e.cfg.OverdueWeight*overdueNorm +
		e.cfg.ValueWeight*tierWeight(item.ValueTier) +
		e.cfg.TypeWeight*typeWeight(item.Type))
}

func (e *ScoringEngine) stuck(item *domain.ChaseItem, now time.Time) float64 {
	chased := 1 - math.Pow(1-e.cfg.ChaseIncrement, float64(item.ChaseCount))

	// Staleness accrues from the last chase, or from creation when the
	// item has never been chased at all.
	reference := item.CreatedAt
	if item.LastChasedAt != nil {
		reference = *item.LastChasedAt
	}
	staleDays := 0.0
	if now.After(reference) {
		staleDays = math.Floor(now.Sub(reference).Hours() / 24)
	}
	staleness := math.Min(e.cfg.StalenessCap, staleDays*e.cfg.StalenessPerDay)

	return clip01(chased + staleness)
}

func (e *ScoringEngine) priority(composite float64) domain.Priority {
	switch {
	case composite >= e.cfg.UrgentThreshold:
		return domain.PriorityUrgent
	case composite >= e.cfg.HighThreshold:
		return domain.PriorityHigh
	case composite >= e.cfg.MediumThreshold:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func (e *ScoringEngine) slaDays(t domain.ChaseType) int {
	switch t {
	case domain.ChaseTypeAuthorizationRequest:
		return e.cfg.AuthorizationSLADays
	case domain.ChaseTypeClientDocument:
		return e.cfg.ClientDocumentSLADays
	default:
		return e.cfg.PostAdviceSLADays
	}
}

// typeWeight orders chase types by operational impact: waiting on a provider
// authority blocks the most downstream work.
func typeWeight(t domain.ChaseType) float64 {
	switch t {
	case domain.ChaseTypeAuthorizationRequest:
		return 1.0
	case domain.ChaseTypeClientDocument:
		return 0.7
	default:
		return 0.4
	}
}

func tierWeight(v domain.ValueTier) float64 {
	switch v {
	case domain.ValueTierHigh:
		return 1.0
	case domain.ValueTierMedium:
		return 0.6
	default:
		return 0.3
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
