// Package jobs wraps asynq to drive the coordinator's periodic sweeps:
// tension decay, faction relationship decay, and world event progression.
// None of these carry a payload the caller cares about; they exist purely to
// put a tick on the clock, so the queue surface here is a trimmed-down
// version of a general-purpose job system.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/duskmere/tension-engine/backend/internal/coordinator"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

// JobType identifies a registered background task.
type JobType string

const (
	JobTypeTensionDecayAll     JobType = "tension:decay-all"
	JobTypeFactionDecayAll     JobType = "faction:decay-all"
	JobTypeWorldProgressEvents JobType = "world:progress-events"

	QueueDefault = "default"
)

// JobQueue manages background task processing and the periodic schedule
// that drives it. There is a single queue: every task here is homogeneous
// background upkeep with no priority tiers to arbitrate between.
type JobQueue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	redisOpt  asynq.RedisClientOpt
	log       *logger.Logger
	handlers  map[JobType]JobHandler
	mu        sync.RWMutex
}

// JobHandler processes a specific job type.
type JobHandler func(ctx context.Context, task *asynq.Task) error

// JobOptions configures how a task is enqueued.
type JobOptions struct {
	MaxRetry  int
	ProcessIn time.Duration
	UniqueFor time.Duration
	Retention time.Duration
}

// DefaultJobOptions returns the options used when none are given.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		MaxRetry:  3,
		Retention: time.Hour,
	}
}

// NewJobQueue builds a queue and its periodic scheduler against the same
// Redis instance the coordinator's RedisCache, when configured, already
// shares.
func NewJobQueue(cfg coordinator.RedisConfig, log *logger.Logger) (*JobQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	serverConfig := asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			if log != nil {
				log.Error().
					Err(err).
					Str("task_type", task.Type()).
					Msg("background task failed")
			}
		}),
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			return time.Duration(n*n) * time.Second
		},
		Logger: &asynqLogger{logger: log},
	}

	server := asynq.NewServer(redisOpt, serverConfig)
	mux := asynq.NewServeMux()
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: &asynqLogger{logger: log},
	})

	return &JobQueue{
		client:    client,
		server:    server,
		mux:       mux,
		scheduler: scheduler,
		redisOpt:  redisOpt,
		log:       log,
		handlers:  make(map[JobType]JobHandler),
	}, nil
}

// RegisterHandler wires a handler into the asynq mux, logging start and
// completion around every invocation.
func (jq *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	jq.handlers[jobType] = handler
	jq.mux.HandleFunc(string(jobType), func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := handler(ctx, task)

		if jq.log != nil {
			event := jq.log.WithContext(ctx).Info().
				Str("job_type", string(jobType)).
				Dur("duration", time.Since(start))
			if err != nil {
				event.Err(err).Msg("background task failed")
			} else {
				event.Msg("background task completed")
			}
		}
		return err
	})
}

// RegisterPeriodic puts jobType on a cron schedule. spec follows the same
// syntax robfig/cron accepts ("@every 5m", "*/10 * * * *", ...).
func (jq *JobQueue) RegisterPeriodic(spec string, jobType JobType, opts ...JobOptions) (string, error) {
	task := asynq.NewTask(string(jobType), nil)

	opt := DefaultJobOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	taskOpts := buildTaskOptions(opt)

	entryID, err := jq.scheduler.Register(spec, task, taskOpts...)
	if err != nil {
		return "", fmt.Errorf("jobs: register periodic task %s: %w", jobType, err)
	}
	return entryID, nil
}

// Enqueue submits a one-off task.
func (jq *JobQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}, opts ...JobOptions) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal payload: %w", err)
	}

	opt := DefaultJobOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	info, err := jq.client.EnqueueContext(ctx, asynq.NewTask(string(jobType), data), buildTaskOptions(opt)...)
	if err != nil {
		return nil, fmt.Errorf("jobs: enqueue task %s: %w", jobType, err)
	}
	return info, nil
}

func buildTaskOptions(opt JobOptions) []asynq.Option {
	var taskOpts []asynq.Option
	if opt.MaxRetry > 0 {
		taskOpts = append(taskOpts, asynq.MaxRetry(opt.MaxRetry))
	}
	taskOpts = append(taskOpts, asynq.Queue(QueueDefault))
	if opt.ProcessIn > 0 {
		taskOpts = append(taskOpts, asynq.ProcessIn(opt.ProcessIn))
	}
	if opt.UniqueFor > 0 {
		taskOpts = append(taskOpts, asynq.Unique(opt.UniqueFor))
	}
	if opt.Retention > 0 {
		taskOpts = append(taskOpts, asynq.Retention(opt.Retention))
	}
	return taskOpts
}

// Start begins processing queued tasks and the periodic schedule.
func (jq *JobQueue) Start() error {
	if jq.log != nil {
		jq.log.Info().Msg("starting job queue")
	}
	if err := jq.scheduler.Start(); err != nil {
		return fmt.Errorf("jobs: start scheduler: %w", err)
	}
	return jq.server.Start(jq.mux)
}

// Stop gracefully shuts down the server, scheduler, and client connection.
func (jq *JobQueue) Stop() error {
	if jq.log != nil {
		jq.log.Info().Msg("stopping job queue")
	}
	jq.scheduler.Shutdown()
	jq.server.Shutdown()
	return jq.client.Close()
}

// HealthCheck confirms the default queue is reachable.
func (jq *JobQueue) HealthCheck() error {
	inspector := asynq.NewInspector(jq.redisOpt)
	defer inspector.Close()

	if _, err := inspector.GetQueueInfo(QueueDefault); err != nil {
		return fmt.Errorf("jobs: queue %s unreachable: %w", QueueDefault, err)
	}
	return nil
}

// asynqLogger adapts *logger.Logger to asynq's logging interface.
type asynqLogger struct {
	logger *logger.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	if l.logger != nil {
		l.logger.Debug().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Info(args ...interface{}) {
	if l.logger != nil {
		l.logger.Info().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Warn(args ...interface{}) {
	if l.logger != nil {
		l.logger.Warn().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Error(args ...interface{}) {
	if l.logger != nil {
		l.logger.Error().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	if l.logger != nil {
		l.logger.Fatal().Msg(fmt.Sprint(args...))
	}
}
