package dispatch

import (
	"context"
	"log"

	"github.com/adviserops/chaser/internal/domain"
)

// TaskLogDispatcher records SMS and phone communications as adviser tasks in
// the application log. Firms work these channels manually, so the dispatcher
// only has to surface the task, not deliver it.
type TaskLogDispatcher struct {
	logf func(format string, args ...any)
}

// NewTaskLogDispatcher creates a dispatcher that logs adviser tasks
func NewTaskLogDispatcher() *TaskLogDispatcher {
	return &TaskLogDispatcher{logf: log.Printf}
}

// Dispatch logs the communication as a task for the adviser to action
func (d *TaskLogDispatcher) Dispatch(_ context.Context, comm *domain.Communication) error {
	d.logf("dispatch: %s task for client %s (firm %s, chase %s, priority %s): %s",
		comm.Channel, comm.ClientRef, comm.FirmID, comm.ChaseID, comm.Priority, comm.Message)
	return nil
}
