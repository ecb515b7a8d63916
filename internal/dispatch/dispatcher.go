package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videowatch/internal/config"
	"videowatch/internal/dedup"
	"videowatch/internal/delivery"
	"videowatch/internal/history"
	"videowatch/internal/logging"
	"videowatch/internal/mediajob"
	"videowatch/internal/notifications"
	"videowatch/internal/pipeline"
	"videowatch/internal/services"
	"videowatch/internal/watch"
)

const (
	defaultLanes     = 1
	defaultQueueSize = 64
)

// Converter runs the conversion stages for one job.
type Converter interface {
	Run(ctx context.Context, job mediajob.MediaJob) pipeline.Outcome
}

// Deliverer sends a finished preview.
type Deliverer interface {
	Deliver(ctx context.Context, artifact string) delivery.DeliveryResult
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) (int64, error)
}

// Report summarizes one handled job.
type Report struct {
	Outcome  pipeline.Outcome
	Delivery delivery.DeliveryResult
	// Attempted is false when no artifact was produced and delivery was skipped.
	Attempted bool
}

// Delivered reports whether the preview reached the channel.
func (r Report) Delivered() bool {
	return r.Attempted && r.Delivery.Delivered
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistory records every finished job in rec.
func WithHistory(rec Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = rec
	}
}

// WithAlerts publishes failures through svc.
func WithAlerts(svc notifications.Service) Option {
	return func(d *Dispatcher) {
		if svc != nil {
			d.alerts = svc
		}
	}
}

// WithLanes sets the number of worker lanes and the buffer of each lane queue.
func WithLanes(count, queueSize int) Option {
	return func(d *Dispatcher) {
		if count > 0 {
			d.lanes = count
		}
		if queueSize > 0 {
			d.queueSize = queueSize
		}
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher routes accepted events to worker lanes.
type Dispatcher struct {
	resolver  *mediajob.Resolver
	seen      *dedup.Record
	converter Converter
	deliverer Deliverer
	recorder  Recorder
	alerts    notifications.Service
	logger    *slog.Logger
	lanes     int
	queueSize int
	now       func() time.Time
}

// New constructs a Dispatcher. A nil seen record gets the default window.
func New(resolver *mediajob.Resolver, seen *dedup.Record, converter Converter, deliverer Deliverer, logger *slog.Logger, opts ...Option) *Dispatcher {
	if seen == nil {
		seen = dedup.New(dedup.DefaultCapacity)
	}
	d := &Dispatcher{
		resolver:  resolver,
		seen:      seen,
		converter: converter,
		deliverer: deliverer,
		alerts:    noopAlerts{},
		logger:    logging.NewComponentLogger(logger, "dispatcher"),
		lanes:     defaultLanes,
		queueSize: defaultQueueSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig wires a Dispatcher from cfg: resolver, dedup window, and lane
// sizing come from configuration.
func NewFromConfig(cfg *config.Config, converter Converter, deliverer Deliverer, logger *slog.Logger, opts ...Option) *Dispatcher {
	base := []Option{WithLanes(cfg.Workers.Count, cfg.Workers.QueueSize)}
	return New(mediajob.NewResolver(cfg), dedup.New(cfg.Dedup.Capacity), converter, deliverer, logger, append(base, opts...)...)
}

// Run consumes events until ctx is done or the channel closes, then waits
// for every lane to drain. Jobs still queued when ctx ends are dropped.
func (d *Dispatcher) Run(ctx context.Context, events <-chan watch.Event) error {
	if d.converter == nil {
		return errors.New("dispatcher: converter not configured")
	}

	queues := make([]chan mediajob.MediaJob, d.lanes)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan mediajob.MediaJob, d.queueSize)
		wg.Add(1)
		go func(lane int, jobs <-chan mediajob.MediaJob) {
			defer wg.Done()
			d.runLane(ctx, lane, jobs)
		}(i, queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	d.logger.Debug("dispatcher started",
		logging.Int("lanes", d.lanes),
		logging.Int("dedup_capacity", d.seen.Capacity()),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			job, accepted := d.accept(ev)
			if !accepted {
				continue
			}
			select {
			case queues[laneFor(laneKey(job), d.lanes)] <- job:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// accept applies the event filters and records accepted paths.
func (d *Dispatcher) accept(ev watch.Event) (mediajob.MediaJob, bool) {
	logger := d.logger.With(logging.String(logging.FieldSource, ev.Path))
	if ev.IsDir {
		logger.Debug("ignoring directory event", logging.String("kind", string(ev.Kind)))
		return mediajob.MediaJob{}, false
	}
	if ev.Kind != watch.KindCreate {
		return mediajob.MediaJob{}, false
	}

	job, err := d.resolver.Resolve(ev.Path)
	if err != nil {
		if errors.Is(err, services.ErrNotAVideo) {
			logger.Info("ignoring non-video file")
		} else {
			logger.Warn("could not resolve job", logging.Error(err))
		}
		return mediajob.MediaJob{}, false
	}

	if d.seen.Seen(job.Source) {
		logger.Debug("duplicate event")
		return mediajob.MediaJob{}, false
	}
	d.seen.Record(job.Source)
	job.ID = uuid.NewString()
	return job, true
}

// Process runs one file through the pipeline and delivery synchronously,
// bypassing the dedup window.
func (d *Dispatcher) Process(ctx context.Context, path string) (Report, error) {
	if d.converter == nil {
		return Report{}, errors.New("dispatcher: converter not configured")
	}
	job, err := d.resolver.Resolve(path)
	if err != nil {
		return Report{}, err
	}
	job.ID = uuid.NewString()
	return d.handle(ctx, d.logger, job), nil
}

func (d *Dispatcher) runLane(ctx context.Context, lane int, jobs <-chan mediajob.MediaJob) {
	logger := d.logger.With(
		logging.String("component", fmt.Sprintf("dispatch-lane-%d", lane)),
		logging.Int("lane", lane),
	)
	for job := range jobs {
		if ctx.Err() != nil {
			logger.Debug("dropping queued job during shutdown", logging.String(logging.FieldSource, job.Source))
			continue
		}
		d.handle(ctx, logger, job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, logger *slog.Logger, job mediajob.MediaJob) Report {
	ctx = services.WithJobID(ctx, job.ID)
	logger = logging.WithContext(ctx, logger).With(logging.String(logging.FieldSource, job.Source))

	started := d.now()
	report := Report{Outcome: d.converter.Run(ctx, job)}
	if report.Outcome.Artifact != "" && d.deliverer != nil {
		report.Attempted = true
		report.Delivery = d.deliverer.Deliver(ctx, report.Outcome.Artifact)
	}
	finished := d.now()

	d.record(ctx, logger, report, started, finished)
	d.alert(ctx, logger, report)

	logger.Info("job finished",
		logging.String("state", string(report.Outcome.State)),
		logging.Bool("delivered", report.Delivered()),
		logging.Int("partial_failures", len(report.Outcome.Partial)),
		logging.Duration("elapsed", finished.Sub(started)),
		logging.String(logging.FieldEventType, "job_finished"),
	)
	return report
}

func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, report Report, started, finished time.Time) {
	if d.recorder == nil {
		return
	}
	outcome := report.Outcome
	rec := history.Record{
		JobID:            outcome.Job.ID,
		SourcePath:       outcome.Job.Source,
		State:            string(outcome.State),
		ArtifactPath:     outcome.Artifact,
		PartialErrors:    errorStrings(outcome.Partial),
		Delivered:        report.Delivered(),
		DeliveryAttempts: report.Delivery.Attempts,
		StartedAt:        started,
		FinishedAt:       finished,
	}
	var failure error
	switch {
	case outcome.Err != nil:
		failure = outcome.Err
	case report.Attempted && report.Delivery.Err != nil:
		failure = report.Delivery.Err
	}
	switch {
	case failure != nil:
		rec.ErrorMessage = failure.Error()
		rec.ErrorKind = services.Classify(failure)
	case len(outcome.Partial) > 0:
		rec.ErrorKind = services.Classify(outcome.Partial[0])
	default:
		rec.ErrorKind = services.Classify(nil)
	}
	if _, err := d.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path permissions"),
			logging.String(logging.FieldImpact, "job missing from videowatch history"),
		)
	}
}

func (d *Dispatcher) alert(ctx context.Context, logger *slog.Logger, report Report) {
	outcome := report.Outcome
	switch {
	case outcome.Failed():
		d.publish(ctx, logger, notifications.EventJobFailed, notifications.Payload{
			"source": outcome.Job.Source,
			"stage":  failedStage(outcome),
			"error":  outcome.Err,
		})
	case len(outcome.Partial) > 0:
		d.publish(ctx, logger, notifications.EventPartialFailure, notifications.Payload{
			"source": outcome.Job.Source,
			"error":  strings.Join(errorStrings(outcome.Partial), "; "),
		})
	}
	if report.Attempted && !report.Delivery.Delivered {
		d.publish(ctx, logger, notifications.EventDeliveryFailed, notifications.Payload{
			"source":   report.Delivery.Artifact,
			"attempts": report.Delivery.Attempts,
			"error":    report.Delivery.Err,
		})
	}
}

func (d *Dispatcher) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := d.alerts.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not send alert", logging.String("event", string(event)))
			return
		}
		logger.Debug("alert publish failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// laneKey is the output path a job writes. Sources sharing a stem in
// different directories write the same temp and preview files, so they must
// share a lane. A given source always maps to the same key.
func laneKey(job mediajob.MediaJob) string {
	return job.Preview
}

// laneFor maps key onto one of n lanes with FNV-1a.
func laneFor(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func failedStage(outcome pipeline.Outcome) string {
	for i := len(outcome.Stages) - 1; i >= 0; i-- {
		if outcome.Stages[i].Err != nil {
			return string(outcome.Stages[i].Stage)
		}
	}
	return ""
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

type noopAlerts struct{}

func (noopAlerts) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}
