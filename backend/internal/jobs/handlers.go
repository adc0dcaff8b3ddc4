package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"github.com/duskmere/tension-engine/backend/internal/coordinator"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

// JobHandlers binds the coordinator's sweep operations to the queue's task
// types. It holds no state of its own beyond the coordinator it delegates to.
type JobHandlers struct {
	coordinator *coordinator.Coordinator
	log         *logger.Logger
}

// NewJobHandlers builds the handler set for coord.
func NewJobHandlers(coord *coordinator.Coordinator, log *logger.Logger) *JobHandlers {
	return &JobHandlers{coordinator: coord, log: log}
}

// RegisterAll wires every handler into queue.
func (jh *JobHandlers) RegisterAll(queue *JobQueue) {
	queue.RegisterHandler(JobTypeTensionDecayAll, jh.HandleTensionDecayAll)
	queue.RegisterHandler(JobTypeFactionDecayAll, jh.HandleFactionDecayAll)
	queue.RegisterHandler(JobTypeWorldProgressEvents, jh.HandleWorldProgressEvents)
}

// HandleTensionDecayAll sweeps environmental tension decay across every
// tracked location.
func (jh *JobHandlers) HandleTensionDecayAll(ctx context.Context, task *asynq.Task) error {
	result := jh.coordinator.DecayAllTension(ctx, time.Now())

	if jh.log != nil {
		jh.log.WithContext(ctx).Info().
			Int("regions_processed", result.RegionsProcessed).
			Int("pois_processed", result.POIsProcessed).
			Int("modifiers_expired", result.ModifiersExpired).
			Msg("tension decay sweep completed")
	}
	return nil
}

// HandleFactionDecayAll sweeps faction relationship decay across every
// tracked pair.
func (jh *JobHandlers) HandleFactionDecayAll(ctx context.Context, task *asynq.Task) error {
	result := jh.coordinator.DecayAllFactionTension(ctx, time.Now())

	if jh.log != nil {
		jh.log.WithContext(ctx).Info().
			Int("processed", result.Processed).
			Int("decayed", result.Decayed).
			Msg("faction decay sweep completed")
	}
	return nil
}

// HandleWorldProgressEvents advances ambient world state. The coordinator's
// side of this is currently a no-op hook reserved for the host game's own
// scripted events; this handler exists so the tick is on the schedule the
// day there is something to drive.
func (jh *JobHandlers) HandleWorldProgressEvents(ctx context.Context, task *asynq.Task) error {
	jh.coordinator.ProgressWorldEvents(ctx, time.Now())
	return nil
}
