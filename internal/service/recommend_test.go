package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredChase(id string, priority domain.Priority, composite float64, mutate func(*domain.ScoredChase)) *domain.ScoredChase {
	s := &domain.ScoredChase{
		Item: &domain.ChaseItem{
			ID:        id,
			FirmID:    "firm1",
			ClientRef: "CL-" + id,
			Type:      domain.ChaseTypeClientDocument,
			Status:    domain.ChaseStatusSent,
			ValueTier: domain.ValueTierMedium,
			CreatedAt: scoringNow.Add(-10 * 24 * time.Hour),
		},
		Composite: composite,
		Priority:  priority,
	}
	if mutate != nil {
		mutate(s)
	}
	return s
}

func TestBuildDropsAcknowledged(t *testing.T) {
	builder := NewRecommendationBuilder()
	scored := []*domain.ScoredChase{
		scoredChase("a", domain.PriorityHigh, 0.7, nil),
		scoredChase("b", domain.PriorityHigh, 0.7, func(s *domain.ScoredChase) {
			s.Item.Status = domain.ChaseStatusAcknowledged
		}),
	}

	recs := builder.Build(scored, scoringNow)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ItemID)
}

func TestBuildSortOrder(t *testing.T) {
	builder := NewRecommendationBuilder()
	scored := []*domain.ScoredChase{
		scoredChase("b", domain.PriorityHigh, 0.70, nil),
		scoredChase("a", domain.PriorityUrgent, 0.85, nil),
		scoredChase("d", domain.PriorityHigh, 0.65, func(s *domain.ScoredChase) { s.DaysOverdue = 2 }),
		scoredChase("c", domain.PriorityHigh, 0.70, nil),
		scoredChase("e", domain.PriorityLow, 0.20, nil),
		scoredChase("f", domain.PriorityHigh, 0.65, func(s *domain.ScoredChase) { s.DaysOverdue = 7 }),
	}

	recs := builder.Build(scored, scoringNow)

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ItemID)
	}
	// Priority first, then composite, then days overdue, then item ID.
	assert.Equal(t, []string{"a", "b", "c", "f", "d", "e"}, ids)
}

func TestBuildSortIsPermutationInvariant(t *testing.T) {
	builder := NewRecommendationBuilder()
	base := []*domain.ScoredChase{
		scoredChase("a", domain.PriorityUrgent, 0.9, nil),
		scoredChase("b", domain.PriorityHigh, 0.7, nil),
		scoredChase("c", domain.PriorityHigh, 0.7, nil),
		scoredChase("d", domain.PriorityMedium, 0.5, func(s *domain.ScoredChase) { s.DaysOverdue = 3 }),
		scoredChase("e", domain.PriorityMedium, 0.5, nil),
		scoredChase("f", domain.PriorityLow, 0.1, nil),
	}

	expected := builder.Build(base, scoringNow)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]*domain.ScoredChase(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := builder.Build(shuffled, scoringNow)
		require.Len(t, got, len(expected))
		for i := range expected {
			assert.Equal(t, expected[i].ItemID, got[i].ItemID, "trial %d position %d", trial, i)
		}
	}
}

func TestBuildChannelRules(t *testing.T) {
	builder := NewRecommendationBuilder()

	tests := []struct {
		name     string
		scored   *domain.ScoredChase
		expected domain.Channel
	}{
		{
			name:     "urgent gets phone",
			scored:   scoredChase("a", domain.PriorityUrgent, 0.9, nil),
			expected: domain.ChannelPhone,
		},
		{
			name: "high with two chases gets sms",
			scored: scoredChase("b", domain.PriorityHigh, 0.7, func(s *domain.ScoredChase) {
				s.Item.ChaseCount = 2
			}),
			expected: domain.ChannelSMS,
		},
		{
			name:     "high with one chase stays on email",
			scored:   scoredChase("c", domain.PriorityHigh, 0.7, func(s *domain.ScoredChase) { s.Item.ChaseCount = 1 }),
			expected: domain.ChannelEmail,
		},
		{
			name:     "medium gets email",
			scored:   scoredChase("d", domain.PriorityMedium, 0.5, nil),
			expected: domain.ChannelEmail,
		},
		{
			name: "urgent outranks the sms rule",
			scored: scoredChase("e", domain.PriorityUrgent, 0.9, func(s *domain.ScoredChase) {
				s.Item.ChaseCount = 4
			}),
			expected: domain.ChannelPhone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := builder.Build([]*domain.ScoredChase{tt.scored}, scoringNow)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.expected, recs[0].Channel)
		})
	}
}

func TestBuildTimingRules(t *testing.T) {
	builder := NewRecommendationBuilder()

	tests := []struct {
		priority domain.Priority
		expected domain.Timing
	}{
		{domain.PriorityUrgent, domain.TimingImmediate},
		{domain.PriorityHigh, domain.TimingImmediate},
		{domain.PriorityMedium, domain.TimingNextBusinessDay},
		{domain.PriorityLow, domain.TimingNextBusinessDay},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			recs := builder.Build([]*domain.ScoredChase{
				scoredChase("a", tt.priority, 0.5, nil),
			}, scoringNow)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.expected, recs[0].Timing)
		})
	}
}

func TestBuildMessages(t *testing.T) {
	builder := NewRecommendationBuilder()

	t.Run("authority message names the provider", func(t *testing.T) {
		s := scoredChase("a", domain.PriorityHigh, 0.7, func(s *domain.ScoredChase) {
			s.Item.Type = domain.ChaseTypeAuthorizationRequest
			s.Item.ProviderName = "Scottish Widows"
		})
		recs := builder.Build([]*domain.ScoredChase{s}, scoringNow)
		require.Len(t, recs, 1)
		assert.Contains(t, recs[0].Message, "Scottish Widows")
		assert.Contains(t, recs[0].Message, "CL-a")
	})

	t.Run("document message names the subject", func(t *testing.T) {
		s := scoredChase("b", domain.PriorityMedium, 0.5, func(s *domain.ScoredChase) {
			s.Item.Subject = "signed transfer forms"
		})
		recs := builder.Build([]*domain.ScoredChase{s}, scoringNow)
		require.Len(t, recs, 1)
		assert.Contains(t, recs[0].Message, "signed transfer forms")
	})
}

func TestBuildReturnsFreshSlice(t *testing.T) {
	builder := NewRecommendationBuilder()
	scored := []*domain.ScoredChase{
		scoredChase("a", domain.PriorityHigh, 0.7, nil),
		scoredChase("b", domain.PriorityLow, 0.2, nil),
	}

	first := builder.Build(scored, scoringNow)
	second := builder.Build(scored, scoringNow)

	require.Len(t, second, 2)
	first[0] = nil
	assert.NotNil(t, second[0])

	// Input order is untouched.
	assert.Equal(t, "a", scored[0].Item.ID)
	assert.Equal(t, "b", scored[1].Item.ID)
}
