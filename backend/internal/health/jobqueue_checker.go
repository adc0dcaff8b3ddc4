package health

import (
	"context"
	"fmt"

	"github.com/duskmere/tension-engine/backend/internal/jobs"
)

// JobQueueChecker verifies the background job queue's broker is reachable.
type JobQueueChecker struct {
	Queue *jobs.JobQueue
}

func (j *JobQueueChecker) Name() string { return "job_queue" }

func (j *JobQueueChecker) Check(ctx context.Context) error {
	if j.Queue == nil {
		return fmt.Errorf("job queue not initialized")
	}
	return j.Queue.HealthCheck()
}
