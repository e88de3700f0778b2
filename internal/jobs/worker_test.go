package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockFirmLister is a mock implementation of FirmLister
type MockFirmLister struct {
	mock.Mock
}

func (m *MockFirmLister) List(ctx context.Context) ([]*domain.Firm, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Firm), args.Error(1)
}

// MockCycleRunner is a mock implementation of CycleRunner
type MockCycleRunner struct {
	mock.Mock
}

func (m *MockCycleRunner) RunCycle(ctx context.Context, firmID string, mode domain.CycleMode) (*service.CycleResult, error) {
	args := m.Called(ctx, firmID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CycleResult), args.Error(1)
}

func emptyCycleResult() *service.CycleResult {
	now := time.Now().UTC()
	return &service.CycleResult{
		Actions: []domain.CycleAction{},
		Stats: domain.CycleStats{
			Mode:        domain.CycleModeRuleBased,
			StartedAt:   now,
			CompletedAt: now,
		},
	}
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestCycleWorker_ProcessJobs_NoFirms(t *testing.T) {
	mockFirms := new(MockFirmLister)
	mockRunner := new(MockCycleRunner)

	mockFirms.On("List", mock.Anything).Return([]*domain.Firm{}, nil)

	worker := NewCycleWorker(mockFirms, mockRunner, domain.CycleModeRuleBased)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockFirms.AssertExpectations(t)
	mockRunner.AssertNotCalled(t, "RunCycle", mock.Anything, mock.Anything, mock.Anything)
}

func TestCycleWorker_ProcessJobs_SweepsEveryFirm(t *testing.T) {
	mockFirms := new(MockFirmLister)
	mockRunner := new(MockCycleRunner)

	firms := []*domain.Firm{
		{ID: "firm-1", Name: "Harbour Wealth"},
		{ID: "firm-2", Name: "Orchard Financial"},
	}
	mockFirms.On("List", mock.Anything).Return(firms, nil)
	mockRunner.On("RunCycle", mock.Anything, "firm-1", domain.CycleModeRuleBased).Return(emptyCycleResult(), nil)
	mockRunner.On("RunCycle", mock.Anything, "firm-2", domain.CycleModeRuleBased).Return(emptyCycleResult(), nil)

	worker := NewCycleWorker(mockFirms, mockRunner, domain.CycleModeRuleBased)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockFirms.AssertExpectations(t)
	mockRunner.AssertExpectations(t)
}

func TestCycleWorker_ProcessJobs_OneFirmFailureContinues(t *testing.T) {
	mockFirms := new(MockFirmLister)
	mockRunner := new(MockCycleRunner)

	firms := []*domain.Firm{
		{ID: "firm-1", Name: "Harbour Wealth"},
		{ID: "firm-2", Name: "Orchard Financial"},
	}
	mockFirms.On("List", mock.Anything).Return(firms, nil)
	mockRunner.On("RunCycle", mock.Anything, "firm-1", domain.CycleModeLLMAssisted).Return(nil, errors.New("dispatch backend down"))
	mockRunner.On("RunCycle", mock.Anything, "firm-2", domain.CycleModeLLMAssisted).Return(emptyCycleResult(), nil)

	worker := NewCycleWorker(mockFirms, mockRunner, domain.CycleModeLLMAssisted)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockFirms.AssertExpectations(t)
	mockRunner.AssertExpectations(t)
}

func TestCycleWorker_ProcessJobs_ListFailure(t *testing.T) {
	mockFirms := new(MockFirmLister)
	mockRunner := new(MockCycleRunner)

	mockFirms.On("List", mock.Anything).Return(nil, errors.New("database error"))

	worker := NewCycleWorker(mockFirms, mockRunner, domain.CycleModeRuleBased)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list firms")
	mockFirms.AssertExpectations(t)
}
