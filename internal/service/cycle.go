package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/telemetry"
)

// Dispatcher sends one chase communication over its channel. Delivery is
// best effort; a failed dispatch is logged and skipped, never retried inside
// the cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, comm *domain.Communication) error
}

// CommunicationRepositoryInterface defines the repository interface for the
// communications audit trail
type CommunicationRepositoryInterface interface {
	Create(ctx context.Context, comm *domain.Communication) error
	ListByFirm(ctx context.Context, firmID string, limit int) ([]*domain.Communication, error)
}

// CommunicationArchiver writes dispatched communications to long-term
// storage for audit
type CommunicationArchiver interface {
	ArchiveCommunication(ctx context.Context, comm *domain.Communication) error
}

// QueryAnswerer is the slice of the orchestrator the cycle needs for
// llm-assisted rationales
type QueryAnswerer interface {
	AnswerQuery(ctx context.Context, firmID, query string, mode domain.QueryMode) (*QueryResult, error)
}

// CycleConfig bounds one autonomous cycle run
type CycleConfig struct {
	// MaxRationales caps how many high and urgent recommendations get an
	// LLM rationale per llm-assisted run.
	MaxRationales int
}

// DefaultCycleConfig returns the production cycle bounds
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{MaxRationales: 3}
}

// CycleResult is the outcome of one autonomous cycle run
type CycleResult struct {
	Actions []domain.CycleAction
	Stats   domain.CycleStats
}

// CycleService runs the autonomous chase cycle: score the open book, build
// recommendations, dispatch each one and record the audit trail. Chase items
// themselves are never written; running the cycle twice in the same window
// produces the same ordering and scores.
type CycleService struct {
	chaseRepo ChaseRepositoryInterface
	commRepo  CommunicationRepositoryInterface
	scorer    *ScoringEngine
	builder   *RecommendationBuilder
	dispatch  Dispatcher
	archive   CommunicationArchiver
	answerer  QueryAnswerer
	snapshots *SnapshotCache
	uuidGen   UUIDGenerator
	cfg       CycleConfig
}

// NewCycleService creates a CycleService. The archiver and answerer are
// optional; without an answerer every llm-assisted run degrades to
// rule-based.
func NewCycleService(
	chaseRepo ChaseRepositoryInterface,
	commRepo CommunicationRepositoryInterface,
	scorer *ScoringEngine,
	builder *RecommendationBuilder,
	dispatch Dispatcher,
	archive CommunicationArchiver,
	answerer QueryAnswerer,
	snapshots *SnapshotCache,
	cfg CycleConfig,
) *CycleService {
	if cfg.MaxRationales <= 0 {
		cfg.MaxRationales = DefaultCycleConfig().MaxRationales
	}
	return &CycleService{
		chaseRepo: chaseRepo,
		commRepo:  commRepo,
		scorer:    scorer,
		builder:   builder,
		dispatch:  dispatch,
		archive:   archive,
		answerer:  answerer,
		snapshots: snapshots,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
	}
}

// NewCycleServiceWithUUIDGen creates a CycleService with a custom UUID
// generator (for testing)
func NewCycleServiceWithUUIDGen(
	chaseRepo ChaseRepositoryInterface,
	commRepo CommunicationRepositoryInterface,
	scorer *ScoringEngine,
	builder *RecommendationBuilder,
	dispatch Dispatcher,
	archive CommunicationArchiver,
	answerer QueryAnswerer,
	snapshots *SnapshotCache,
	cfg CycleConfig,
	uuidGen UUIDGenerator,
) *CycleService {
	svc := NewCycleService(chaseRepo, commRepo, scorer, builder, dispatch, archive, answerer, snapshots, cfg)
	svc.uuidGen = uuidGen
	return svc
}

// RunCycle executes one autonomous cycle for a firm
func (s *CycleService) RunCycle(ctx context.Context, firmID string, mode domain.CycleMode) (*CycleResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CycleService.RunCycle", telemetry.SpanAttributes{
		FirmID:    firmID,
		Operation: string(mode),
	})
	defer span.End()

	if firmID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}
	if mode != domain.CycleModeRuleBased && mode != domain.CycleModeLLMAssisted {
		return nil, domain.ErrInvalidCycleMode
	}

	startedAt := time.Now().UTC()

	items, err := s.chaseRepo.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	scored, err := s.scorer.ScoreAll(items, startedAt)
	if err != nil {
		return nil, err
	}

	recs := s.builder.Build(scored, startedAt)

	degraded := false
	if mode == domain.CycleModeLLMAssisted {
		degraded = s.attachRationales(ctx, firmID, recs)
	}

	actions := make([]domain.CycleAction, 0, len(recs))
	dispatched := 0
	for _, rec := range recs {
		comm := &domain.Communication{
			ID:        s.uuidGen.NewString(),
			FirmID:    firmID,
			ChaseID:   rec.ItemID,
			ClientRef: rec.ClientRef,
			Channel:   rec.Channel,
			Priority:  rec.Priority,
			Message:   rec.Message,
			Rationale: rec.Rationale,
			SentAt:    time.Now().UTC(),
		}

		if err := s.dispatch.Dispatch(ctx, comm); err != nil {
			log.Printf("cycle: dispatch failed for item %s over %s: %v", rec.ItemID, rec.Channel, err)
			continue
		}
		dispatched++

		if err := s.commRepo.Create(ctx, comm); err != nil {
			log.Printf("cycle: failed to record communication for item %s: %v", rec.ItemID, err)
		}
		if s.archive != nil {
			if err := s.archive.ArchiveCommunication(ctx, comm); err != nil {
				log.Printf("cycle: failed to archive communication for item %s: %v", rec.ItemID, err)
			}
		}

		actions = append(actions, domain.CycleAction{
			ItemID:    rec.ItemID,
			ClientRef: rec.ClientRef,
			Channel:   rec.Channel,
			Priority:  rec.Priority,
			Timing:    rec.Timing,
			Message:   rec.Message,
			Rationale: rec.Rationale,
		})
	}

	if s.snapshots != nil {
		s.snapshots.Set(firmID, &ScoredSnapshot{Scored: scored, TakenAt: startedAt})
	}

	stats := domain.CycleStats{
		Mode:        mode,
		ItemsScored: len(scored),
		Dispatched:  dispatched,
		Degraded:    degraded,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}
	if degraded {
		stats.Mode = domain.CycleModeRuleBased
	}

	return &CycleResult{Actions: actions, Stats: stats}, nil
}

// attachRationales asks the orchestrator to explain the top high and urgent
// recommendations. Rationales never change priority, channel or ordering.
// Returns true when the run degraded to rule-based.
func (s *CycleService) attachRationales(ctx context.Context, firmID string, recs []*domain.Recommendation) bool {
	if s.answerer == nil {
		return true
	}

	attached := 0
	for _, rec := range recs {
		if attached >= s.cfg.MaxRationales {
			break
		}
		if rec.Priority != domain.PriorityUrgent && rec.Priority != domain.PriorityHigh {
			continue
		}

		query := fmt.Sprintf(
			"In one or two sentences, explain why chasing the %s for client %s (%d days overdue, chased %d times) over %s is the right next action.",
			rec.ChaseType, rec.ClientRef, rec.DaysOverdue, rec.ChaseCount, rec.Channel)

		result, err := s.answerer.AnswerQuery(ctx, firmID, query, domain.QueryModeLLMAssisted)
		if err != nil {
			var domainErr *domain.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeReasoningUnavailable {
				log.Printf("cycle: reasoning unavailable, degrading to rule_based: %v", err)
				return true
			}
			log.Printf("cycle: rationale skipped for item %s: %v", rec.ItemID, err)
			continue
		}

		rec.Rationale = result.Answer
		attached++
	}
	return false
}

// Dashboard serves point-in-time stats from the latest scored snapshot,
// scoring the open book on demand when no snapshot is live.
func (s *CycleService) Dashboard(ctx context.Context, firmID string) (*domain.DashboardStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "CycleService.Dashboard", telemetry.SpanAttributes{
		FirmID:    firmID,
		Operation: "dashboard",
	})
	defer span.End()

	if firmID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}

	var snapshot *ScoredSnapshot
	if s.snapshots != nil {
		if live, ok := s.snapshots.Get(firmID); ok {
			snapshot = live
		}
	}

	if snapshot == nil {
		now := time.Now().UTC()
		items, err := s.chaseRepo.ListOpenByFirm(ctx, firmID)
		if err != nil {
			return nil, err
		}
		scored, err := s.scorer.ScoreAll(items, now)
		if err != nil {
			return nil, err
		}
		snapshot = &ScoredSnapshot{Scored: scored, TakenAt: now}
		if s.snapshots != nil {
			s.snapshots.Set(firmID, snapshot)
		}
	}

	stats := &domain.DashboardStats{
		ByType:     make(map[domain.ChaseType]int),
		SnapshotAt: snapshot.TakenAt,
	}
	stuckTotal := 0.0
	for _, sc := range snapshot.Scored {
		stats.ActiveChases++
		stats.ByType[sc.Item.Type]++
		if sc.DaysOverdue > 0 {
			stats.OverdueChases++
		}
		if sc.Priority == domain.PriorityUrgent || sc.Priority == domain.PriorityHigh {
			stats.HighPriority++
		}
		if sc.Stuck >= 0.5 {
			stats.StuckRisk++
		}
		stuckTotal += sc.Stuck
	}
	if stats.ActiveChases > 0 {
		stats.AvgStuckScore = stuckTotal / float64(stats.ActiveChases)
	}
	return stats, nil
}
