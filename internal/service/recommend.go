package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/adviserops/chaser/internal/domain"
)

// RecommendationBuilder turns scored chases into a ranked, channel-annotated
// action list. Building never mutates its inputs and returns a fresh slice on
// every call.
type RecommendationBuilder struct{}

// NewRecommendationBuilder creates a RecommendationBuilder
func NewRecommendationBuilder() *RecommendationBuilder {
	return &RecommendationBuilder{}
}

// Build ranks open scored chases and annotates each with channel, timing and
// a suggested message. Acknowledged items are dropped.
func (b *RecommendationBuilder) Build(scored []*domain.ScoredChase, now time.Time) []*domain.Recommendation {
	open := make([]*domain.ScoredChase, 0, len(scored))
	for _, s := range scored {
		if s == nil || s.Item == nil {
			continue
		}
		if s.Item.EffectiveStatus(now) == domain.ChaseStatusAcknowledged {
			continue
		}
		open = append(open, s)
	}

	sort.SliceStable(open, func(i, j int) bool {
		left, right := open[i], open[j]
		if rl, rr := domain.PriorityRank(left.Priority), domain.PriorityRank(right.Priority); rl != rr {
			return rl > rr
		}
		if left.Composite != right.Composite {
			return left.Composite > right.Composite
		}
		if left.DaysOverdue != right.DaysOverdue {
			return left.DaysOverdue > right.DaysOverdue
		}
		return left.Item.ID < right.Item.ID
	})

	recs := make([]*domain.Recommendation, 0, len(open))
	for _, s := range open {
		recs = append(recs, &domain.Recommendation{
			ItemID:      s.Item.ID,
			ClientRef:   s.Item.ClientRef,
			ChaseType:   s.Item.Type,
			Priority:    s.Priority,
			Composite:   s.Composite,
			DaysOverdue: s.DaysOverdue,
			ChaseCount:  s.Item.ChaseCount,
			Channel:     channelFor(s),
			Timing:      timingFor(s.Priority),
			Message:     chaseMessage(s.Item),
		})
	}
	return recs
}

// channelFor escalates the channel with priority and repeated chases: urgent
// items get a phone call, high priority items that have already been chased
// twice move to SMS, everything else goes by email.
func channelFor(s *domain.ScoredChase) domain.Channel {
	switch {
	case s.Priority == domain.PriorityUrgent:
		return domain.ChannelPhone
	case s.Priority == domain.PriorityHigh && s.Item.ChaseCount >= 2:
		return domain.ChannelSMS
	default:
		return domain.ChannelEmail
	}
}

func timingFor(p domain.Priority) domain.Timing {
	if p == domain.PriorityUrgent || p == domain.PriorityHigh {
		return domain.TimingImmediate
	}
	return domain.TimingNextBusinessDay
}

// chaseMessage produces the suggested outbound text for a chase
func chaseMessage(item *domain.ChaseItem) string {
	switch item.Type {
	case domain.ChaseTypeAuthorizationRequest:
		provider := item.ProviderName
		if provider == "" {
			provider = "the provider"
		}
		return fmt.Sprintf("Following up on the outstanding authority request with %s for client %s. Please confirm current status.", provider, item.ClientRef)
	case domain.ChaseTypeClientDocument:
		subject := item.Subject
		if subject == "" {
			subject = "the requested documents"
		}
		return fmt.Sprintf("Gentle reminder to client %s: we are still waiting on %s to progress your case.", item.ClientRef, subject)
	default:
		return fmt.Sprintf("Checking in on the post-advice item for client %s so we can close it out.", item.ClientRef)
	}
}
