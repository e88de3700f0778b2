package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCycleService struct {
	mock.Mock
}

func (m *MockCycleService) RunCycle(ctx context.Context, firmID string, mode domain.CycleMode) (*service.CycleResult, error) {
	args := m.Called(ctx, firmID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CycleResult), args.Error(1)
}

func (m *MockCycleService) Dashboard(ctx context.Context, firmID string) (*domain.DashboardStats, error) {
	args := m.Called(ctx, firmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

type MockCommunicationLister struct {
	mock.Mock
}

func (m *MockCommunicationLister) ListByFirm(ctx context.Context, firmID string, limit int) ([]*domain.Communication, error) {
	args := m.Called(ctx, firmID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Communication), args.Error(1)
}

func newTestCycleResult() *service.CycleResult {
	now := time.Now().UTC()
	return &service.CycleResult{
		Actions: []domain.CycleAction{
			{
				ItemID:    "chase-1",
				ClientRef: "CL-001",
				Channel:   domain.ChannelPhone,
				Priority:  domain.PriorityUrgent,
				Timing:    domain.TimingImmediate,
				Message:   "Call CL-001 about the authorization request",
			},
		},
		Stats: domain.CycleStats{
			Mode:        domain.CycleModeRuleBased,
			ItemsScored: 3,
			Dispatched:  1,
			StartedAt:   now,
			CompletedAt: now.Add(time.Second),
		},
	}
}

func TestCycleHandler_Run_DefaultMode(t *testing.T) {
	mockSvc := new(MockCycleService)
	handler := NewCycleHandler(mockSvc, new(MockCommunicationLister))

	mockSvc.On("RunCycle", mock.Anything, "firm-456", domain.CycleModeRuleBased).
		Return(newTestCycleResult(), nil)

	req := requestWithFirmID(http.MethodPost, "/cycles", nil)
	w := httptest.NewRecorder()

	handler.Run(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})
	assert.Equal(t, "rule_based", stats["mode"])
	assert.Equal(t, float64(3), stats["items_scored"])
	actions := data["actions"].([]interface{})
	require.Len(t, actions, 1)
	action := actions[0].(map[string]interface{})
	assert.Equal(t, "phone", action["channel"])
	mockSvc.AssertExpectations(t)
}

func TestCycleHandler_Run_LLMAssisted(t *testing.T) {
	mockSvc := new(MockCycleService)
	handler := NewCycleHandler(mockSvc, new(MockCommunicationLister))

	result := newTestCycleResult()
	result.Stats.Mode = domain.CycleModeLLMAssisted
	result.Actions[0].Rationale = "Longest overdue blocking item in the book"
	mockSvc.On("RunCycle", mock.Anything, "firm-456", domain.CycleModeLLMAssisted).
		Return(result, nil)

	req := requestWithFirmID(http.MethodPost, "/cycles", []byte(`{"mode":"llm_assisted"}`))
	w := httptest.NewRecorder()

	handler.Run(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Longest overdue blocking item")
	mockSvc.AssertExpectations(t)
}

func TestCycleHandler_Run_InvalidMode(t *testing.T) {
	mockSvc := new(MockCycleService)
	handler := NewCycleHandler(mockSvc, new(MockCommunicationLister))

	req := requestWithFirmID(http.MethodPost, "/cycles", []byte(`{"mode":"autonomous"}`))
	w := httptest.NewRecorder()

	handler.Run(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "RunCycle", mock.Anything, mock.Anything, mock.Anything)
}

func TestCycleHandler_Run_Unauthorized(t *testing.T) {
	mockSvc := new(MockCycleService)
	handler := NewCycleHandler(mockSvc, new(MockCommunicationLister))

	req := httptest.NewRequest(http.MethodPost, "/cycles", nil)
	w := httptest.NewRecorder()

	handler.Run(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCycleHandler_Dashboard_Success(t *testing.T) {
	mockSvc := new(MockCycleService)
	handler := NewCycleHandler(mockSvc, new(MockCommunicationLister))

	stats := &domain.DashboardStats{
		ActiveChases:  5,
		OverdueChases: 2,
		HighPriority:  1,
		StuckRisk:     1,
		AvgStuckScore: 0.32,
		ByType: map[domain.ChaseType]int{
			domain.ChaseTypeAuthorizationRequest: 3,
			domain.ChaseTypeClientDocument:       2,
		},
		SnapshotAt: time.Now().UTC(),
	}
	mockSvc.On("Dashboard", mock.Anything, "firm-456").Return(stats, nil)

	req := requestWithFirmID(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()

	handler.Dashboard(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["active_chases"])
	assert.Equal(t, float64(2), data["overdue_chases"])
	byType := data["by_type"].(map[string]interface{})
	assert.Equal(t, float64(3), byType["authorization_request"])
	mockSvc.AssertExpectations(t)
}

func TestCycleHandler_ListCommunications_Success(t *testing.T) {
	mockSvc := new(MockCycleService)
	mockComms := new(MockCommunicationLister)
	handler := NewCycleHandler(mockSvc, mockComms)

	comms := []*domain.Communication{
		{
			ID:        "comm-1",
			FirmID:    "firm-456",
			ChaseID:   "chase-1",
			ClientRef: "CL-001",
			Channel:   domain.ChannelEmail,
			Priority:  domain.PriorityHigh,
			Message:   "Reminder about your signed forms",
			SentAt:    time.Now().UTC(),
		},
	}
	mockComms.On("ListByFirm", mock.Anything, "firm-456", 25).Return(comms, nil)

	req := requestWithFirmID(http.MethodGet, "/communications?limit=25", nil)
	w := httptest.NewRecorder()

	handler.ListCommunications(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].([]interface{})
	require.Len(t, data, 1)
	comm := data[0].(map[string]interface{})
	assert.Equal(t, "comm-1", comm["id"])
	assert.Equal(t, "email", comm["channel"])
	mockComms.AssertExpectations(t)
}

func TestCycleHandler_ListCommunications_BadLimit(t *testing.T) {
	mockSvc := new(MockCycleService)
	mockComms := new(MockCommunicationLister)
	handler := NewCycleHandler(mockSvc, mockComms)

	req := requestWithFirmID(http.MethodGet, "/communications?limit=all", nil)
	w := httptest.NewRecorder()

	handler.ListCommunications(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockComms.AssertNotCalled(t, "ListByFirm", mock.Anything, mock.Anything, mock.Anything)
}
