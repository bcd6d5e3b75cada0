// Package estimate runs the asynchronous analysis jobs.  The orchestrator
// owns the job lifecycle: it creates pending jobs, dispatches at most one
// background execution per job id guarded by a distributed lock, applies
// every state change as a compare-and-set transition, and publishes
// lifecycle events.  The pipelines (full-project estimate, quote-document
// analysis) do the actual work.
package estimate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bangunhq/estimator/internal/domain/job"
	"github.com/bangunhq/estimator/internal/infrastructure/messaging/kafka"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/pkg/errors"
)

// Job lifecycle event topics, aliased from the single wire-level definition.
const (
	TopicJobCreated   = kafka.TopicJobCreated
	TopicJobCompleted = kafka.TopicJobCompleted
	TopicJobFailed    = kafka.TopicJobFailed
)

// DispatchLock guards one job's background execution.
type DispatchLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockProvider hands out per-job dispatch locks.
type LockProvider interface {
	JobLock(jobID string) DispatchLock
}

// EventPublisher publishes job lifecycle events, best effort.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, payload interface{}) error
}

// ProgressFunc reports a pipeline milestone.  Reporting is best effort and
// never fails the pipeline.
type ProgressFunc func(progress int, message string)

// Pipeline executes one job kind from raw input to a result payload.
type Pipeline interface {
	Kind() job.Kind
	Run(ctx context.Context, input json.RawMessage, report ProgressFunc) (json.RawMessage, error)
}

// jobEvent is the payload for job lifecycle topics.
type jobEvent struct {
	JobID        string     `json:"job_id"`
	Kind         job.Kind   `json:"kind"`
	Status       job.Status `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Orchestrator owns the job lifecycle for all registered pipelines.
type Orchestrator struct {
	jobs      job.Repository
	locks     LockProvider
	events    EventPublisher
	pipelines map[job.Kind]Pipeline
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewOrchestrator builds the orchestrator.  events may be nil; a nil logger
// or metrics falls back to no-ops.
func NewOrchestrator(jobs job.Repository, locks LockProvider, events EventPublisher, logger logging.Logger, metrics *prometheus.AppMetrics, pipelines ...Pipeline) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	byKind := make(map[job.Kind]Pipeline, len(pipelines))
	for _, p := range pipelines {
		byKind[p.Kind()] = p
	}
	return &Orchestrator{
		jobs:      jobs,
		locks:     locks,
		events:    events,
		pipelines: byKind,
		logger:    logger.Named("orchestrator"),
		metrics:   metrics,
	}
}

// Submit creates a pending job and dispatches its pipeline in the
// background.  The caller gets the pending job back immediately and polls
// for progress.
func (o *Orchestrator) Submit(ctx context.Context, kind job.Kind, input json.RawMessage) (*job.Job, error) {
	if _, ok := o.pipelines[kind]; !ok {
		return nil, errors.New(errors.ErrCodeValidation, "no pipeline registered for job kind").WithDetail(string(kind))
	}
	j := job.New(kind, input)
	if err := o.jobs.Create(ctx, j); err != nil {
		return nil, err
	}

	o.metrics.JobsCreatedTotal.WithLabelValues(string(kind)).Inc()
	o.publish(ctx, TopicJobCreated, j)
	o.logger.Info("job submitted",
		logging.String("job_id", j.ID), logging.String("kind", string(kind)))

	go o.dispatch(j.ID, kind)
	return j, nil
}

// Get retrieves a job, scoped to a kind so the estimate endpoints never
// serve quote-analysis jobs and vice versa.
func (o *Orchestrator) Get(ctx context.Context, id string, kind job.Kind) (*job.Job, error) {
	j, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Kind != kind {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail(id)
	}
	return j, nil
}

// Result returns the job only once it holds a full result.  A failed job
// surfaces its failure as an error; a running job is reported not ready.
func (o *Orchestrator) Result(ctx context.Context, id string, kind job.Kind) (*job.Job, error) {
	j, err := o.Get(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	switch j.Status {
	case job.StatusCompleted:
		return j, nil
	case job.StatusFailed:
		return nil, errors.New(errors.ErrCodeGenerationFailed, j.ErrorMessage).WithDetail(id)
	default:
		return nil, errors.New(errors.ErrCodeJobNotReady, "job still processing").WithDetail(string(j.Status))
	}
}

// dispatch runs one job to a terminal state.  It executes on its own
// goroutine with a fresh context: submitted jobs run to completion even
// when the submitting request has long returned.
func (o *Orchestrator) dispatch(id string, kind job.Kind) {
	ctx := context.Background()
	log := o.logger.With(logging.String("job_id", id))

	lock := o.locks.JobLock(id)
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		log.Error("dispatch lock unavailable", logging.Err(err))
		return
	}
	if !acquired {
		o.metrics.JobDispatchConflicts.WithLabelValues().Inc()
		log.Warn("dispatch skipped, another worker holds the job")
		return
	}
	defer func() {
		if err := lock.Unlock(ctx); err != nil {
			log.Warn("dispatch lock release failed", logging.Err(err))
		}
	}()

	j, err := o.jobs.GetByID(ctx, id)
	if err != nil {
		log.Error("job load failed", logging.Err(err))
		return
	}
	if j.Status != job.StatusPending {
		log.Warn("dispatch skipped, job already picked up", logging.String("status", string(j.Status)))
		return
	}

	if err := j.Start(); err != nil {
		log.Error("job start rejected", logging.Err(err))
		return
	}
	if err := o.jobs.UpdateCAS(ctx, j, job.StatusPending); err != nil {
		if errors.IsConflict(err) {
			o.metrics.JobDispatchConflicts.WithLabelValues().Inc()
			log.Warn("dispatch lost the start transition")
			return
		}
		log.Error("job start write failed", logging.Err(err))
		return
	}
	o.transition(j)

	o.metrics.JobsActive.WithLabelValues(string(kind)).Inc()
	defer o.metrics.JobsActive.WithLabelValues(string(kind)).Dec()
	started := time.Now()

	result, runErr := o.pipelines[kind].Run(ctx, j.Input, func(progress int, message string) {
		o.advance(ctx, j, progress, message, log)
	})

	if runErr != nil {
		o.fail(ctx, j, runErr, log)
	} else {
		o.complete(ctx, j, result, log)
	}
	o.metrics.JobDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())
}

// advance writes a progress milestone.  Failures are logged and swallowed:
// losing one progress update never fails the pipeline.
func (o *Orchestrator) advance(ctx context.Context, j *job.Job, progress int, message string, log logging.Logger) {
	if err := j.Advance(progress, message); err != nil {
		log.Warn("progress rejected", logging.Err(err))
		return
	}
	if err := o.jobs.UpdateCAS(ctx, j, job.StatusProcessing); err != nil {
		log.Warn("progress write failed", logging.Err(err))
	}
}

func (o *Orchestrator) complete(ctx context.Context, j *job.Job, result json.RawMessage, log logging.Logger) {
	if err := j.Complete(result); err != nil {
		o.fail(ctx, j, err, log)
		return
	}
	if err := o.jobs.UpdateCAS(ctx, j, job.StatusProcessing); err != nil {
		log.Error("completion write failed", logging.Err(err))
		return
	}
	o.transition(j)
	o.publish(ctx, TopicJobCompleted, j)
	log.Info("job completed", logging.Int("result_bytes", len(result)))
}

func (o *Orchestrator) fail(ctx context.Context, j *job.Job, cause error, log logging.Logger) {
	log.Error("job failed", logging.Err(cause))
	if err := j.Fail(userSafeMessage(cause)); err != nil {
		log.Error("failure transition rejected", logging.Err(err))
		return
	}
	if err := o.jobs.UpdateCAS(ctx, j, job.StatusProcessing); err != nil {
		log.Error("failure write failed", logging.Err(err))
		return
	}
	o.transition(j)
	o.publish(ctx, TopicJobFailed, j)
}

func (o *Orchestrator) transition(j *job.Job) {
	o.metrics.JobTransitionsTotal.WithLabelValues(string(j.Kind), string(j.Status)).Inc()
}

func (o *Orchestrator) publish(ctx context.Context, topic string, j *job.Job) {
	if o.events == nil {
		return
	}
	event := jobEvent{
		JobID:        j.ID,
		Kind:         j.Kind,
		Status:       j.Status,
		ErrorMessage: j.ErrorMessage,
		OccurredAt:   time.Now().UTC(),
	}
	if err := o.events.PublishEvent(ctx, topic, j.ID, event); err != nil {
		o.logger.Warn("job event publish failed",
			logging.String("topic", topic), logging.Err(err))
	}
}

// userSafeMessage extracts a message fit for API responses: AppError
// messages are written for users, anything else collapses to a generic one.
func userSafeMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return "processing failed"
}
