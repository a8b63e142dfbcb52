// Package collector fetches every registered source concurrently, each under
// its own timeout and retry budget, and applies the source's fallback policy
// when a fetch cannot succeed.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/etaflow/internal/domain/cache"
	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
	"github.com/okian/etaflow/pkg/logger"
	"github.com/okian/etaflow/pkg/metrics"
)

// Result is the outcome of one collect stage. SourcesCollected and
// SourcesFailed never overlap.
type Result struct {
	Collected          map[model.SourceType]model.SourceData
	SourcesCollected   model.SourceSet
	SourcesFailed      model.SourceSet
	FallbacksTriggered model.SourceSet
}

// Collector is safe for concurrent use by many pipeline invocations. They
// share the registry, the cache and in-flight fetches for identical keys.
type Collector struct {
	registry *source.Registry
	cache    cache.Store
	log      logger.Logger
	now      func() time.Time
	limit    int
	backoff  time.Duration

	flight singleflight.Group
}

// New creates a Collector over a registry and a shared cache.
func New(registry *source.Registry, store cache.Store, opts ...Option) *Collector {
	c := &Collector{
		registry: registry,
		cache:    store,
		log:      logger.Discard(),
		now:      time.Now,
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type outcome struct {
	data      *model.SourceData
	collected bool
	failed    bool
	fellBack  bool
}

// Collect runs one fetch per registered source and waits for all of them.
// Source failures are absorbed; Collect itself never fails. Cancelling ctx
// aborts every in-flight fetch of this invocation.
func (c *Collector) Collect(ctx context.Context, fc model.FetchContext) Result {
	types := c.registry.Types()
	outcomes := make([]outcome, len(types))

	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for i, t := range types {
		g.Go(func() error {
			outcomes[i] = c.collectOne(ctx, fc, t)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Collected:          make(map[model.SourceType]model.SourceData, len(types)),
		SourcesCollected:   model.SourceSet{},
		SourcesFailed:      model.SourceSet{},
		FallbacksTriggered: model.SourceSet{},
	}
	for i, t := range types {
		o := outcomes[i]
		if o.data != nil {
			res.Collected[t] = *o.data
		}
		switch {
		case o.collected:
			res.SourcesCollected.Add(t)
		case o.failed:
			res.SourcesFailed.Add(t)
			if o.fellBack {
				res.FallbacksTriggered.Add(t)
			}
		}
	}

	metrics.UpdateCacheEntries(c.cache.Len())
	return res
}

func (c *Collector) collectOne(ctx context.Context, fc model.FetchContext, t model.SourceType) (out outcome) {
	log := c.log.With(logger.String("source", string(t)))

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "source collection panicked", logger.Any("panic", r))
			out = outcome{failed: true}
		}
	}()

	cfg, err := c.registry.Config(t)
	if err != nil {
		log.Error(ctx, "source not configured", logger.Error(err))
		return outcome{failed: true}
	}

	if sd, ok := c.fromCache(ctx, cfg, fc, t); ok {
		metrics.RecordSourceFetch(string(t), metrics.FetchCacheHit)
		return outcome{data: &sd, collected: true}
	}

	data, err := c.fetch(ctx, cfg, fc)
	if err == nil {
		metrics.RecordSourceFetch(string(t), metrics.FetchSuccess)
		sd := model.SourceData{
			Slot: t, Provider: t, Data: data,
			Origin: model.OriginFresh, FetchedAt: c.now(), TTL: cfg.CacheExpiry,
		}
		return outcome{data: &sd, collected: true}
	}

	metrics.RecordSourceFetch(string(t), metrics.FetchFailed)
	log.Warn(ctx, "source fetch failed, applying fallback",
		logger.String("fallback", string(cfg.Fallback)),
		logger.Int("attempts", cfg.RetryCount+1),
		logger.Error(err))

	sd := c.applyFallback(ctx, cfg, fc)
	metrics.RecordFallback(string(t), string(cfg.Fallback), sd != nil)
	if sd != nil {
		log.Info(ctx, "fallback produced data", logger.String("origin", string(sd.Origin)))
	}
	return outcome{data: sd, failed: true, fellBack: sd != nil}
}

// fromCache returns a fresh entry for slot, sourced from cfg's type.
func (c *Collector) fromCache(ctx context.Context, cfg source.Config, fc model.FetchContext, slot model.SourceType) (model.SourceData, bool) {
	e, ok := c.cache.Get(ctx, cache.Key(cfg.Type, fc.DriverID, fc.LoadID), false)
	metrics.RecordCacheLookup(ok)
	if !ok {
		return model.SourceData{}, false
	}
	return model.SourceData{
		Slot: slot, Provider: cfg.Type, Data: e.Data,
		Origin: model.OriginCache, FetchedAt: e.StoredAt, TTL: e.TTL,
	}, true
}

// fetch calls the provider with retries. Concurrent callers for the same
// source, driver and load share one upstream call. The shared call ignores
// caller cancellation and is bounded by the source timeout. A successful
// payload is written to the cache before it is returned.
func (c *Collector) fetch(ctx context.Context, cfg source.Config, fc model.FetchContext) (model.RawData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := cache.Key(cfg.Type, fc.DriverID, fc.LoadID)
	flightCtx := context.WithoutCancel(ctx)

	ch := c.flight.DoChan(key, func() (any, error) {
		data, err := c.fetchWithRetry(flightCtx, cfg, fc)
		if err != nil {
			return nil, err
		}
		c.cache.Put(flightCtx, key, data, cfg.CacheExpiry)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		data, _ := r.Val.(model.RawData)
		return data, nil
	}
}

func (c *Collector) fetchWithRetry(ctx context.Context, cfg source.Config, fc model.FetchContext) (model.RawData, error) {
	fetcher, err := c.registry.Fetcher(cfg.Type)
	if err != nil {
		return nil, err
	}

	backoff := c.backoff
	var lastErr error

	for attempt := 0; attempt <= cfg.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := c.now()
		data, err := c.attempt(ctx, cfg, fetcher, fc)
		metrics.RecordSourceLatency(string(cfg.Type), float64(c.now().Sub(start).Milliseconds()))
		if err == nil {
			if cfg.Transform != nil {
				data = cfg.Transform(data)
			}
			return data, nil
		}
		lastErr = err
		metrics.RecordSourceFetch(string(cfg.Type), metrics.FetchAttempt)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == cfg.RetryCount {
			break
		}

		c.log.Debug(ctx, "retrying source fetch",
			logger.String("source", string(cfg.Type)),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff),
			logger.Error(err))

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		backoff *= 2
	}

	return nil, lastErr
}

// attempt runs one bounded call. The fetcher runs in its own goroutine so a
// fetcher that ignores its context still cannot hold the source past its
// timeout.
func (c *Collector) attempt(ctx context.Context, cfg source.Config, f source.Fetcher, fc model.FetchContext) (model.RawData, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	type reply struct {
		data model.RawData
		err  error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("%w: %v", ErrFetcherPanic, r)}
			}
		}()
		data, err := f.Fetch(attemptCtx, fc)
		ch <- reply{data: data, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.data == nil {
			return nil, ErrEmptyPayload
		}
		return r.data, nil
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", ErrTimeout, cfg.Timeout)
	}
}

func (c *Collector) applyFallback(ctx context.Context, cfg source.Config, fc model.FetchContext) *model.SourceData {
	switch cfg.Fallback {
	case source.UseCached:
		return c.staleCache(ctx, cfg, fc)
	case source.UseAlternativeSource:
		sd, err := c.alternative(ctx, cfg, fc)
		if err != nil {
			c.log.Warn(ctx, "alternative source failed",
				logger.String("source", string(cfg.Type)),
				logger.String("alternative", string(cfg.Alternative)),
				logger.Error(err))
			return nil
		}
		return sd
	case source.UseHistoricalAverage:
		return c.baseline(cfg)
	default:
		return nil
	}
}

func (c *Collector) staleCache(ctx context.Context, cfg source.Config, fc model.FetchContext) *model.SourceData {
	e, ok := c.cache.Get(ctx, cache.Key(cfg.Type, fc.DriverID, fc.LoadID), true)
	if !ok {
		return nil
	}
	origin := model.OriginStaleCache
	if !e.Expired(c.now()) {
		origin = model.OriginCache
	}
	return &model.SourceData{
		Slot: cfg.Type, Provider: cfg.Type, Data: e.Data,
		Origin: origin, FetchedAt: e.StoredAt, TTL: e.TTL,
	}
}

// alternative makes exactly one hop to cfg.Alternative. The alternative's own
// fallback is never consulted, so policies cannot chain or cycle.
func (c *Collector) alternative(ctx context.Context, cfg source.Config, fc model.FetchContext) (*model.SourceData, error) {
	altCfg, err := c.registry.Config(cfg.Alternative)
	if err != nil {
		return nil, err
	}

	if sd, ok := c.fromCache(ctx, altCfg, fc, cfg.Type); ok {
		sd.Origin = model.OriginAlternative
		return &sd, nil
	}

	data, err := c.fetch(ctx, altCfg, fc)
	if err != nil {
		return nil, errors.Join(ErrNoAlternative, err)
	}
	return &model.SourceData{
		Slot: cfg.Type, Provider: altCfg.Type, Data: data,
		Origin: model.OriginAlternative, FetchedAt: c.now(), TTL: altCfg.CacheExpiry,
	}, nil
}

// baseline serves the configured baseline, marked as a historical average.
// The top-level map is copied so the registry's value is never mutated.
func (c *Collector) baseline(cfg source.Config) *model.SourceData {
	if cfg.Baseline == nil {
		return nil
	}
	data := make(model.RawData, len(cfg.Baseline)+1)
	for k, v := range cfg.Baseline {
		data[k] = v
	}
	data[model.HistoricalAverageKey] = true
	return &model.SourceData{
		Slot: cfg.Type, Provider: cfg.Type, Data: data,
		Origin: model.OriginHistoricalAverage, FetchedAt: c.now(),
	}
}
