package service

import (
	"context"
	"testing"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCommunicationRepository struct {
	mock.Mock
}

func (m *MockCommunicationRepository) Create(ctx context.Context, comm *domain.Communication) error {
	args := m.Called(ctx, comm)
	return args.Error(0)
}

func (m *MockCommunicationRepository) ListByFirm(ctx context.Context, firmID string, limit int) ([]*domain.Communication, error) {
	args := m.Called(ctx, firmID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Communication), args.Error(1)
}

// fakeDispatcher records every communication it is asked to send and can be
// told to fail for specific chase items.
type fakeDispatcher struct {
	sent    []*domain.Communication
	failFor map[string]error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, comm *domain.Communication) error {
	if err, ok := d.failFor[comm.ChaseID]; ok {
		return err
	}
	d.sent = append(d.sent, comm)
	return nil
}

type fakeArchiver struct {
	archived []*domain.Communication
	err      error
}

func (a *fakeArchiver) ArchiveCommunication(_ context.Context, comm *domain.Communication) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, comm)
	return nil
}

// fakeAnswerer returns a canned rationale, or a fixed error, for every query.
type fakeAnswerer struct {
	answer  string
	err     error
	queries []string
}

func (a *fakeAnswerer) AnswerQuery(_ context.Context, _ string, query string, _ domain.QueryMode) (*QueryResult, error) {
	a.queries = append(a.queries, query)
	if a.err != nil {
		return nil, a.err
	}
	return &QueryResult{Answer: a.answer, Intent: "explain", Confidence: 0.9}, nil
}

func cycleBookItems(now time.Time) []*domain.ChaseItem {
	overdueAuth := now.Add(-10 * 24 * time.Hour)
	overdueDoc := now.Add(-15 * 24 * time.Hour)
	return []*domain.ChaseItem{
		{
			ID:           "item-auth",
			FirmID:       "firm-123",
			ClientRef:    "CL-001",
			Type:         domain.ChaseTypeAuthorizationRequest,
			Status:       domain.ChaseStatusSent,
			ValueTier:    domain.ValueTierHigh,
			ChaseCount:   3,
			ProviderName: "Aviva",
			CreatedAt:    now.Add(-20 * 24 * time.Hour),
			DueAt:        &overdueAuth,
		},
		{
			ID:         "item-doc",
			FirmID:     "firm-123",
			ClientRef:  "CL-002",
			Type:       domain.ChaseTypeClientDocument,
			Status:     domain.ChaseStatusSent,
			ValueTier:  domain.ValueTierMedium,
			ChaseCount: 2,
			Subject:    "signed transfer forms",
			CreatedAt:  now.Add(-18 * 24 * time.Hour),
			DueAt:      &overdueDoc,
		},
		{
			ID:        "item-post",
			FirmID:    "firm-123",
			ClientRef: "CL-003",
			Type:      domain.ChaseTypePostAdvice,
			Status:    domain.ChaseStatusPending,
			ValueTier: domain.ValueTierLow,
			CreatedAt: now,
		},
	}
}

func newTestCycleService(
	chaseRepo ChaseRepositoryInterface,
	commRepo CommunicationRepositoryInterface,
	dispatch Dispatcher,
	archive CommunicationArchiver,
	answerer QueryAnswerer,
) *CycleService {
	return NewCycleServiceWithUUIDGen(
		chaseRepo,
		commRepo,
		NewScoringEngine(DefaultScoringConfig()),
		NewRecommendationBuilder(),
		dispatch,
		archive,
		answerer,
		NewSnapshotCache(5*time.Minute),
		DefaultCycleConfig(),
		NewMockUUIDGenerator("comm-1", "comm-2", "comm-3"),
	)
}

func TestCycleService_RunCycle_RuleBased(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)
	dispatcher := &fakeDispatcher{}
	archiver := &fakeArchiver{}

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, dispatcher, archiver, nil)
	result, err := service.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)

	require.NoError(t, err)
	assert.Equal(t, domain.CycleModeRuleBased, result.Stats.Mode)
	assert.False(t, result.Stats.Degraded)
	assert.Equal(t, 3, result.Stats.ItemsScored)
	assert.Equal(t, 3, result.Stats.Dispatched)
	require.Len(t, result.Actions, 3)

	// Highest priority first, nothing carries a rationale in rule_based mode.
	assert.Equal(t, "item-auth", result.Actions[0].ItemID)
	for _, action := range result.Actions {
		assert.Empty(t, action.Rationale)
	}
	assert.Len(t, dispatcher.sent, 3)
	assert.Len(t, archiver.archived, 3)

	// Chase items are never written during a cycle.
	mockChaseRepo.AssertNotCalled(t, "Update")
	mockChaseRepo.AssertNotCalled(t, "Create")
}

func TestCycleService_RunCycle_Idempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, nil)

	first, err := service.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)
	require.NoError(t, err)
	second, err := service.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)
	require.NoError(t, err)

	require.Equal(t, len(first.Actions), len(second.Actions))
	for i := range first.Actions {
		assert.Equal(t, first.Actions[i].ItemID, second.Actions[i].ItemID)
		assert.Equal(t, first.Actions[i].Priority, second.Actions[i].Priority)
		assert.Equal(t, first.Actions[i].Channel, second.Actions[i].Channel)
	}
}

func TestCycleService_RunCycle_LLMAssisted(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)
	answerer := &fakeAnswerer{answer: "The provider has ignored three chases and the transfer is blocked."}

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	ruleService := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, nil)
	baseline, err := ruleService.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)
	require.NoError(t, err)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, answerer)
	result, err := service.RunCycle(ctx, "firm-123", domain.CycleModeLLMAssisted)

	require.NoError(t, err)
	assert.Equal(t, domain.CycleModeLLMAssisted, result.Stats.Mode)
	assert.False(t, result.Stats.Degraded)

	// Rationales land only on high and urgent recommendations, and never
	// reorder or rechannel the plan.
	require.Equal(t, len(baseline.Actions), len(result.Actions))
	rationales := 0
	for i, action := range result.Actions {
		assert.Equal(t, baseline.Actions[i].ItemID, action.ItemID)
		assert.Equal(t, baseline.Actions[i].Priority, action.Priority)
		assert.Equal(t, baseline.Actions[i].Channel, action.Channel)
		if action.Rationale != "" {
			rationales++
			assert.Contains(t, []domain.Priority{domain.PriorityUrgent, domain.PriorityHigh}, action.Priority)
		}
	}
	assert.Greater(t, rationales, 0)
	assert.LessOrEqual(t, rationales, DefaultCycleConfig().MaxRationales)
}

func TestCycleService_RunCycle_DegradesWhenReasoningUnavailable(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)
	answerer := &fakeAnswerer{err: domain.ErrReasoningUnavailable}

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, answerer)
	result, err := service.RunCycle(ctx, "firm-123", domain.CycleModeLLMAssisted)

	require.NoError(t, err)
	assert.True(t, result.Stats.Degraded)
	assert.Equal(t, domain.CycleModeRuleBased, result.Stats.Mode)
	require.Len(t, result.Actions, 3)
	for _, action := range result.Actions {
		assert.Empty(t, action.Rationale)
	}
}

func TestCycleService_RunCycle_DegradesWithoutAnswerer(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, nil)
	result, err := service.RunCycle(ctx, "firm-123", domain.CycleModeLLMAssisted)

	require.NoError(t, err)
	assert.True(t, result.Stats.Degraded)
	assert.Equal(t, domain.CycleModeRuleBased, result.Stats.Mode)
}

func TestCycleService_RunCycle_DispatchFailureSkipsItem(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)
	dispatcher := &fakeDispatcher{
		failFor: map[string]error{"item-doc": assert.AnError},
	}

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.MatchedBy(func(comm *domain.Communication) bool {
		return comm.ChaseID != "item-doc"
	})).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, dispatcher, nil, nil)
	result, err := service.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.ItemsScored)
	assert.Equal(t, 2, result.Stats.Dispatched)
	require.Len(t, result.Actions, 2)
	for _, action := range result.Actions {
		assert.NotEqual(t, "item-doc", action.ItemID)
	}
	mockCommRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestCycleService_RunCycle_InvalidInput(t *testing.T) {
	ctx := context.Background()
	service := newTestCycleService(new(MockChaseRepository), new(MockCommunicationRepository), &fakeDispatcher{}, nil, nil)

	t.Run("missing firm", func(t *testing.T) {
		_, err := service.RunCycle(ctx, "", domain.CycleModeRuleBased)
		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := service.RunCycle(ctx, "firm-123", domain.CycleMode("autonomous"))
		assert.ErrorIs(t, err, domain.ErrInvalidCycleMode)
	})
}

func TestCycleService_Dashboard(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	mockChaseRepo := new(MockChaseRepository)
	mockCommRepo := new(MockCommunicationRepository)

	mockChaseRepo.On("ListOpenByFirm", ctx, "firm-123").Return(cycleBookItems(now), nil)
	mockCommRepo.On("Create", ctx, mock.AnythingOfType("*domain.Communication")).Return(nil)

	service := newTestCycleService(mockChaseRepo, mockCommRepo, &fakeDispatcher{}, nil, nil)

	t.Run("scores fresh on cache miss", func(t *testing.T) {
		stats, err := service.Dashboard(ctx, "firm-123")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.ActiveChases)
		assert.Equal(t, 2, stats.OverdueChases)
		assert.Equal(t, 1, stats.ByType[domain.ChaseTypeAuthorizationRequest])
		assert.Equal(t, 1, stats.ByType[domain.ChaseTypeClientDocument])
		assert.Equal(t, 1, stats.ByType[domain.ChaseTypePostAdvice])
		assert.Greater(t, stats.HighPriority, 0)
		assert.Greater(t, stats.AvgStuckScore, 0.0)
	})

	t.Run("serves the cycle snapshot afterwards", func(t *testing.T) {
		_, err := service.RunCycle(ctx, "firm-123", domain.CycleModeRuleBased)
		require.NoError(t, err)

		before := len(mockChaseRepo.Calls)
		stats, err := service.Dashboard(ctx, "firm-123")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.ActiveChases)
		assert.Len(t, mockChaseRepo.Calls, before)
	})
}
