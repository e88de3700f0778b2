package domain

import "time"

// CycleMode selects how an autonomous chase cycle is driven
type CycleMode string

const (
	CycleModeRuleBased   CycleMode = "rule_based"
	CycleModeLLMAssisted CycleMode = "llm_assisted"
)

// isValidCycleMode checks if a CycleMode is valid
func isValidCycleMode(m CycleMode) bool {
	switch m {
	case CycleModeRuleBased, CycleModeLLMAssisted:
		return true
	}
	return false
}

// ParseCycleMode validates and converts a raw mode string
func ParseCycleMode(raw string) (CycleMode, error) {
	m := CycleMode(raw)
	if !isValidCycleMode(m) {
		return "", ErrInvalidCycleMode
	}
	return m, nil
}

// CycleAction records one dispatched chase within a cycle run
type CycleAction struct {
	ItemID    string
	ClientRef string
	Channel   Channel
	Priority  Priority
	Timing    Timing
	Message   string
	Rationale string
}

// CycleStats summarizes one cycle run
type CycleStats struct {
	Mode        CycleMode
	ItemsScored int
	Dispatched  int
	Degraded    bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// DashboardStats is the point-in-time view served from the latest scored
// snapshot
type DashboardStats struct {
	ActiveChases  int
	OverdueChases int
	HighPriority  int
	StuckRisk     int
	AvgStuckScore float64
	ByType        map[ChaseType]int
	SnapshotAt    time.Time
}
