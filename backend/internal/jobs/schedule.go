package jobs

import (
	"fmt"
	"time"
)

// worldProgressInterval has no dedicated config field: it drives a no-op
// hook today, so it runs on a fixed, short schedule rather than growing its
// own tunable until there is real work behind it.
const worldProgressInterval = time.Minute

// Schedule carries the tunable sweep intervals from config.JobsConfig into
// the cron specs asynq's scheduler expects.
type Schedule struct {
	TensionDecayInterval time.Duration
	FactionDecayInterval time.Duration
}

// RegisterPeriodicTasks puts all three recurring sweeps on queue's schedule.
func RegisterPeriodicTasks(queue *JobQueue, sched Schedule) error {
	if _, err := queue.RegisterPeriodic(everySpec(sched.TensionDecayInterval), JobTypeTensionDecayAll); err != nil {
		return err
	}
	if _, err := queue.RegisterPeriodic(everySpec(sched.FactionDecayInterval), JobTypeFactionDecayAll); err != nil {
		return err
	}
	if _, err := queue.RegisterPeriodic(everySpec(worldProgressInterval), JobTypeWorldProgressEvents); err != nil {
		return err
	}
	return nil
}

func everySpec(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}
