// Package service runs the estimation pipeline: collect, validate,
// transform, enrich and present, strictly in that order.
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/etaflow/internal/adapters/collector"
	"github.com/okian/etaflow/internal/domain/cache"
	"github.com/okian/etaflow/internal/domain/enrich"
	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/internal/domain/source"
	"github.com/okian/etaflow/internal/domain/transform"
	"github.com/okian/etaflow/internal/domain/validation"
	"github.com/okian/etaflow/pkg/logger"
	"github.com/okian/etaflow/pkg/metrics"
)

const defaultSweepInterval = 10 * time.Minute

// Request identifies one estimate. Empty prompt type and role select
// eta_estimate for a dispatcher.
type Request struct {
	DriverID   string
	LoadID     string
	PromptType present.PromptType
	UserRole   present.UserRole
}

// ExecutionMetrics describes how a run went.
type ExecutionMetrics struct {
	ExecutionTimeMs    int64                    `json:"executionTimeMs"`
	DataQuality        model.DataQualityMetrics `json:"dataQuality"`
	SourcesUsed        []model.SourceType       `json:"sourcesUsed"`
	FallbacksTriggered []model.SourceType       `json:"fallbacksTriggered"`
	SourcesFailed      []model.SourceType       `json:"sourcesFailed"`
}

// Result is the terminal output of every run. Success is false only when a
// stage handler declared an error fatal or the request was invalid.
type Result struct {
	Success      bool             `json:"success"`
	RunID        string           `json:"runId"`
	Data         *present.Payload `json:"data,omitempty"`
	Error        error            `json:"-"`
	ErrorMessage string           `json:"error,omitempty"`
	Metrics      ExecutionMetrics `json:"metrics"`
	Timestamp    time.Time        `json:"timestamp"`
}

// runState is the context merged forward from stage to stage.
type runState struct {
	req       Request
	fc        model.FetchContext
	collected collector.Result
	summaries present.Summaries
	validated validation.Output
	canonical model.CanonicalContext
	enriched  model.Enriched
	payload   *present.Payload
}

// Orchestrator is safe for concurrent Run calls. Invocations share only the
// registry and the cache.
type Orchestrator struct {
	mu sync.Mutex

	registry *source.Registry
	cache    cache.Store

	collector   Collector
	validator   Validator
	transformer Transformer
	enricher    Enricher
	presenter   Presenter
	summaries   present.SummaryLookup
	handlers    map[Stage]StageHandler

	collectorOpts []collector.Option
	sweepInterval time.Duration
	now           func() time.Time
	logger        logger.Logger

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New constructs an Orchestrator over a registry and a shared cache. Stages
// that are not replaced by options are built from the domain packages.
func New(registry *source.Registry, store cache.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:      registry,
		cache:         store,
		handlers:      make(map[Stage]StageHandler, len(stageOrder)),
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.collector == nil {
		copts := append([]collector.Option{collector.WithLogger(o.logger.Named("collector")), collector.WithClock(o.now)}, o.collectorOpts...)
		o.collector = collector.New(registry, store, copts...)
	}
	if o.validator == nil {
		o.validator = validation.New(registry, validation.WithClock(o.now))
	}
	if o.transformer == nil {
		o.transformer = transform.New()
	}
	if o.enricher == nil {
		o.enricher = enrich.New(enrich.WithClock(o.now))
	}
	if o.presenter == nil {
		o.presenter = present.New()
	}
	for _, st := range stageOrder {
		if _, ok := o.handlers[st]; !ok {
			o.handlers[st] = DefaultStageHandler
		}
	}
	return o
}

// Run executes one pipeline invocation. It always returns a Result.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	start := o.now()
	runID := uuid.NewString()
	log := o.logger.With(
		logger.String("run_id", runID),
		logger.String("driver_id", req.DriverID),
		logger.String("load_id", req.LoadID),
	)

	st := &runState{
		req: req,
		fc: model.FetchContext{
			RunID: runID, DriverID: req.DriverID, LoadID: req.LoadID, RequestedAt: start,
		},
	}

	if err := o.normalize(&st.req); err != nil {
		log.Warn(ctx, "rejecting request", logger.Error(err))
		return o.finish(ctx, log, st, runID, start, err)
	}

	for _, stage := range stageOrder {
		err := o.runStage(ctx, stage, st)
		if err == nil {
			continue
		}
		fatal := o.handlers[stage](ctx, stage, err)
		metrics.RecordStageError(string(stage), fatal)
		if fatal {
			log.Error(ctx, "stage failed, aborting run", logger.String("stage", string(stage)), logger.Error(err))
			return o.finish(ctx, log, st, runID, start, fmt.Errorf("%s stage: %w", stage, err))
		}
		log.Warn(ctx, "stage degraded", logger.String("stage", string(stage)), logger.Error(err))
	}

	return o.finish(ctx, log, st, runID, start, nil)
}

func (o *Orchestrator) normalize(req *Request) error {
	if req.DriverID == "" || req.LoadID == "" {
		return fmt.Errorf("%w: driver and load identifiers are required", ErrInvalidRequest)
	}
	pt, err := present.ParsePromptType(string(req.PromptType))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	role, err := present.ParseRole(string(req.UserRole))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.PromptType, req.UserRole = pt, role
	return nil
}

// runStage executes one stage, converting a panic into a PanicError.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, st *runState) (err error) {
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Stage: stage, Value: r, Stack: debug.Stack()}
		}
		metrics.RecordStage(string(stage), float64(o.now().Sub(start).Milliseconds()))
	}()

	switch stage {
	case StageCollect:
		return o.collect(ctx, st)
	case StageValidate:
		st.validated = o.validator.Validate(st.collected.Collected)
		for _, r := range st.validated.Results {
			if !r.Valid {
				metrics.RecordValidationFailure(string(r.Source))
			}
		}
		return nil
	case StageTransform:
		st.canonical, err = o.transformer.Transform(st.validated.Validated)
		return err
	case StageEnrich:
		st.enriched = o.enricher.Enrich(st.canonical)
		return nil
	case StagePresent:
		p, err := o.presenter.Present(st.enriched, st.summaries, st.req.PromptType, st.req.UserRole)
		if err != nil {
			return err
		}
		st.payload = &p
		return nil
	}
	return fmt.Errorf("%w: unknown stage %q", ErrFatal, stage)
}

// collect fetches sources and the load/vehicle summaries side by side, so no
// later stage has to wait on I/O.
func (o *Orchestrator) collect(ctx context.Context, st *runState) error {
	var (
		g         errgroup.Group
		lookupErr error
	)
	g.Go(func() error {
		st.collected = o.collector.Collect(ctx, st.fc)
		return nil
	})
	if o.summaries != nil {
		g.Go(func() error {
			s, err := o.summaries.Lookup(ctx, st.fc.DriverID, st.fc.LoadID)
			if err != nil {
				lookupErr = fmt.Errorf("summary lookup: %w", err)
				return nil
			}
			st.summaries = s
			return nil
		})
	}
	_ = g.Wait()
	return lookupErr
}

func (o *Orchestrator) finish(ctx context.Context, log logger.Logger, st *runState, runID string, start time.Time, err error) Result {
	elapsed := o.now().Sub(start)
	used := model.SourceSet{}
	for t := range st.collected.Collected {
		used.Add(t)
	}

	res := Result{
		Success: err == nil,
		RunID:   runID,
		Metrics: ExecutionMetrics{
			ExecutionTimeMs:    elapsed.Milliseconds(),
			SourcesUsed:        sorted(used),
			FallbacksTriggered: sorted(st.collected.FallbacksTriggered),
			SourcesFailed:      sorted(st.collected.SourcesFailed),
		},
		Timestamp: o.now(),
	}

	if err != nil {
		res.Error = err
		res.ErrorMessage = err.Error()
		metrics.RecordRun(false, float64(elapsed.Milliseconds()))
		return res
	}

	res.Data = st.payload
	res.Metrics.DataQuality = st.validated.Quality
	recordQuality(res.Metrics.DataQuality)
	metrics.RecordRun(true, float64(elapsed.Milliseconds()))

	log.Info(ctx, "pipeline run completed",
		logger.Int64("duration_ms", res.Metrics.ExecutionTimeMs),
		logger.Int("sources_used", len(res.Metrics.SourcesUsed)),
		logger.Strings("fallbacks", toStrings(res.Metrics.FallbacksTriggered)),
		logger.Float64("completeness", res.Metrics.DataQuality.Completeness),
	)
	return res
}

func recordQuality(q model.DataQualityMetrics) {
	_ = metrics.UpdateDataQuality(metrics.DimensionCompleteness, q.Completeness)
	_ = metrics.UpdateDataQuality(metrics.DimensionAccuracy, q.Accuracy)
	_ = metrics.UpdateDataQuality(metrics.DimensionTimeliness, q.Timeliness)
	_ = metrics.UpdateDataQuality(metrics.DimensionConsistency, q.Consistency)
}

// sorted never returns nil so the JSON shape is stable.
func sorted(s model.SourceSet) []model.SourceType {
	if len(s) == 0 {
		return []model.SourceType{}
	}
	return s.Sorted()
}

func toStrings(ts []model.SourceType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}

// Start launches the background cache sweeper.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil
	}
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.started = true

	go o.sweepLoop(ctx, o.stopCh, o.doneCh)

	o.logger.Info(ctx, "estimation pipeline started",
		logger.Int("sources", o.registry.Len()),
		logger.Duration("sweep_interval", o.sweepInterval),
	)
	return nil
}

func (o *Orchestrator) sweepLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if o.sweepInterval <= 0 {
		<-stop
		return
	}

	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := o.cache.Sweep(ctx); n > 0 {
				metrics.RecordCacheSwept(n)
				o.logger.Debug(ctx, "swept cache", logger.Int("removed", n))
			}
			metrics.UpdateCacheEntries(o.cache.Len())
		}
	}
}

// Stop halts the sweeper and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return
	}
	close(o.stopCh)
	<-o.doneCh
	o.started = false
	o.logger.Info(context.Background(), "estimation pipeline stopped")
}

// GetStats returns pipeline statistics for monitoring.
func (o *Orchestrator) GetStats() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()

	types := o.registry.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return map[string]any{
		"started":      o.started,
		"sources":      names,
		"cacheEntries": o.cache.Len(),
	}
}
