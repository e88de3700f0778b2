package domain

// Priority represents the scored priority tier of a chase item
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Channel represents the communication channel recommended for a chase
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPhone Channel = "phone"
)

// Timing represents when a recommended chase should go out
type Timing string

const (
	TimingImmediate       Timing = "immediate"
	TimingNextBusinessDay Timing = "next_business_day"
)

// ScoredChase pairs a chase item with its computed scores. Scores are
// snapshots for a single instant; they are never persisted back to the item.
type ScoredChase struct {
	Item        *ChaseItem
	Urgency     float64
	Stuck       float64
	Composite   float64
	Priority    Priority
	DaysOverdue int
}

// Recommendation is one ranked entry in an actionable chase list
type Recommendation struct {
	ItemID      string
	ClientRef   string
	ChaseType   ChaseType
	Priority    Priority
	Composite   float64
	DaysOverdue int
	ChaseCount  int
	Channel     Channel
	Timing      Timing
	Message     string
	Rationale   string
}

// isValidPriority checks if a Priority is valid
func isValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// PriorityRank orders priorities for sorting, highest first
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}
