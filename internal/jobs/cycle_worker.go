package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/service"
)

// FirmLister fetches every registered firm for the scheduled sweep
type FirmLister interface {
	List(ctx context.Context) ([]*domain.Firm, error)
}

// CycleRunner runs one chase cycle for one firm
type CycleRunner interface {
	RunCycle(ctx context.Context, firmID string, mode domain.CycleMode) (*service.CycleResult, error)
}

// CycleWorker runs the chase cycle for every firm on each tick. One firm's
// failure never blocks the rest of the sweep.
type CycleWorker struct {
	firms  FirmLister
	runner CycleRunner
	mode   domain.CycleMode
}

// NewCycleWorker creates a CycleWorker running cycles in the given mode
func NewCycleWorker(firms FirmLister, runner CycleRunner, mode domain.CycleMode) *CycleWorker {
	return &CycleWorker{firms: firms, runner: runner, mode: mode}
}

// ProcessJobs sweeps every firm once
func (w *CycleWorker) ProcessJobs(ctx context.Context) error {
	firms, err := w.firms.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list firms: %w", err)
	}

	for _, firm := range firms {
		result, err := w.runner.RunCycle(ctx, firm.ID, w.mode)
		if err != nil {
			log.Printf("cycle worker: run failed for firm %s: %v", firm.ID, err)
			continue
		}
		log.Printf("cycle worker: firm %s scored=%d dispatched=%d mode=%s degraded=%t",
			firm.ID, result.Stats.ItemsScored, result.Stats.Dispatched, result.Stats.Mode, result.Stats.Degraded)
	}
	return nil
}
