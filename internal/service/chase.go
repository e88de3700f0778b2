package service

import (
	"context"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/pagination"
	"github.com/adviserops/chaser/internal/telemetry"
)

// ChaseRepositoryInterface defines the repository interface for chase item
// persistence
type ChaseRepositoryInterface interface {
	Create(ctx context.Context, item *domain.ChaseItem) error
	GetByID(ctx context.Context, id string) (*domain.ChaseItem, error)
	ListOpenByFirm(ctx context.Context, firmID string) ([]*domain.ChaseItem, error)
	ListByFirmWithCursor(ctx context.Context, firmID string, cursor *pagination.Cursor, limit int) (*ChasePageResult, error)
	Update(ctx context.Context, item *domain.ChaseItem) error
}

// ChasePageResult is one page of chase items
type ChasePageResult struct {
	Items      []*domain.ChaseItem
	NextCursor string
	HasMore    bool
}

// ChaseService handles business logic for chase items: intake, listing, the
// chase state machine, and on-demand scoring.
type ChaseService struct {
	chaseRepo ChaseRepositoryInterface
	scorer    *ScoringEngine
	builder   *RecommendationBuilder
	uuidGen   UUIDGenerator
}

// NewChaseService creates a new ChaseService instance
func NewChaseService(chaseRepo ChaseRepositoryInterface, scorer *ScoringEngine, builder *RecommendationBuilder) *ChaseService {
	return &ChaseService{
		chaseRepo: chaseRepo,
		scorer:    scorer,
		builder:   builder,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewChaseServiceWithUUIDGen creates a new ChaseService with a custom UUID
// generator (for testing)
func NewChaseServiceWithUUIDGen(chaseRepo ChaseRepositoryInterface, scorer *ScoringEngine, builder *RecommendationBuilder, uuidGen UUIDGenerator) *ChaseService {
	svc := NewChaseService(chaseRepo, scorer, builder)
	svc.uuidGen = uuidGen
	return svc
}

// CreateChaseInput represents the input for registering a chase item
type CreateChaseInput struct {
	FirmID       string
	ClientRef    string
	Type         domain.ChaseType
	ValueTier    domain.ValueTier
	ProviderName string
	Subject      string
	Blocking     bool
	DueAt        *time.Time
}

// Create registers a new pending chase item
func (s *ChaseService) Create(ctx context.Context, input CreateChaseInput) (*domain.ChaseItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChaseService.Create", telemetry.SpanAttributes{
		FirmID:    input.FirmID,
		Operation: "create",
	})
	defer span.End()

	item := domain.NewChaseItem(
		s.uuidGen.NewString(),
		input.FirmID,
		input.ClientRef,
		input.Type,
		input.ValueTier,
		input.ProviderName,
		input.Subject,
		input.Blocking,
		time.Now().UTC(),
		input.DueAt,
	)

	if err := domain.ValidateChaseItem(item); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chase item", err)
	}

	if err := s.chaseRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// Get fetches one chase item scoped to a firm
func (s *ChaseService) Get(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error) {
	item, err := s.chaseRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.FirmID != firmID {
		return nil, domain.ErrChaseNotFound
	}
	return item, nil
}

// ListChasesInput represents the input for listing chase items
type ListChasesInput struct {
	FirmID string
	Cursor string
	Limit  int
}

// List returns a page of the firm's chase items
func (s *ChaseService) List(ctx context.Context, input ListChasesInput) (*ChasePageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChaseService.List", telemetry.SpanAttributes{
		FirmID:    input.FirmID,
		Operation: "list",
	})
	defer span.End()

	if input.FirmID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 50
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	return s.chaseRepo.ListByFirmWithCursor(ctx, input.FirmID, cursor, input.Limit)
}

// ScoredListing pairs the scored snapshot with its recommendations
type ScoredListing struct {
	Scored          []*domain.ScoredChase
	Recommendations []*domain.Recommendation
}

// ScoreAndRecommend scores the firm's open chase book at one instant and
// builds the ranked action list from it
func (s *ChaseService) ScoreAndRecommend(ctx context.Context, firmID string) (*ScoredListing, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChaseService.ScoreAndRecommend", telemetry.SpanAttributes{
		FirmID:    firmID,
		Operation: "score_and_recommend",
	})
	defer span.End()

	if firmID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "firm ID is required")
	}

	items, err := s.chaseRepo.ListOpenByFirm(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scored, err := s.scorer.ScoreAll(items, now)
	if err != nil {
		return nil, err
	}

	return &ScoredListing{
		Scored:          scored,
		Recommendations: s.builder.Build(scored, now),
	}, nil
}

// RecordAction applies a chase action to an item: pending, sent and overdue
// items move to sent with their chase count bumped
func (s *ChaseService) RecordAction(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChaseService.RecordAction", telemetry.SpanAttributes{
		FirmID:    firmID,
		ChaseID:   itemID,
		Operation: "record_action",
	})
	defer span.End()

	item, err := s.Get(ctx, firmID, itemID)
	if err != nil {
		return nil, err
	}

	if err := item.RecordChase(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.chaseRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// Acknowledge marks a sent item as acknowledged, closing it
func (s *ChaseService) Acknowledge(ctx context.Context, firmID, itemID string) (*domain.ChaseItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChaseService.Acknowledge", telemetry.SpanAttributes{
		FirmID:    firmID,
		ChaseID:   itemID,
		Operation: "acknowledge",
	})
	defer span.End()

	item, err := s.Get(ctx, firmID, itemID)
	if err != nil {
		return nil, err
	}

	if err := item.Acknowledge(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.chaseRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}
