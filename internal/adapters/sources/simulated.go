package sources

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
)

// SimOption applies a configuration option to a Simulator.
type SimOption func(*Simulator)

// WithSeed fixes the generator seed; equal seeds give equal payloads.
func WithSeed(seed uint64) SimOption {
	return func(s *Simulator) {
		s.seed = seed
	}
}

// WithLatencyRange makes every call wait a random duration in [min, max).
func WithLatencyRange(min, max time.Duration) SimOption {
	return func(s *Simulator) {
		if min >= 0 && max >= min {
			s.minLatency, s.maxLatency = min, max
		}
	}
}

// WithFailureRate makes calls fail with probability p.
func WithFailureRate(p float64) SimOption {
	return func(s *Simulator) {
		if p >= 0 && p <= 1 {
			s.failureRate = p
		}
	}
}

// WithSimClock replaces time.Now for generated timestamps.
func WithSimClock(now func() time.Time) SimOption {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// Simulator produces plausible provider payloads for local runs and demos.
// Payloads depend only on the seed, the source and the driver/load pair, so
// repeated calls for the same pair agree with each other.
type Simulator struct {
	seed        uint64
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	now         func() time.Time
}

// NewSimulator creates a Simulator.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{seed: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetchers returns one simulated fetcher per source type.
func (s *Simulator) Fetchers() map[model.SourceType]source.Fetcher {
	gens := map[model.SourceType]func(*rand.Rand, time.Time) model.RawData{
		model.SourceVehicleLocation:  simLocation,
		model.SourcePrimaryRouting:   simPrimaryRoute,
		model.SourceSecondaryRouting: simSecondaryRoute,
		model.SourceWeather:          simWeather,
		model.SourceTrafficIncidents: simTraffic,
		model.SourceHistorical:       simHistorical,
		model.SourceSpecialEvents:    simEvents,
	}
	out := make(map[model.SourceType]source.Fetcher, len(gens))
	for t, gen := range gens {
		out[t] = source.FetcherFunc(func(ctx context.Context, fc model.FetchContext) (model.RawData, error) {
			return s.run(ctx, t, fc, gen)
		})
	}
	return out
}

// Options registers every simulated fetcher with a registry.
func (s *Simulator) Options() []source.Option {
	var opts []source.Option
	for t, f := range s.Fetchers() {
		opts = append(opts, source.WithFetcher(t, f))
	}
	return opts
}

func (s *Simulator) rng(t model.SourceType, fc model.FetchContext) *rand.Rand {
	h := xxhash.Sum64String(string(t) + "|" + fc.DriverID + "|" + fc.LoadID)
	return rand.New(rand.NewPCG(s.seed, h))
}

func (s *Simulator) run(ctx context.Context, t model.SourceType, fc model.FetchContext, gen func(*rand.Rand, time.Time) model.RawData) (model.RawData, error) {
	r := s.rng(t, fc)

	// A separate stream keeps latency and failures from shifting the payload.
	chaos := rand.New(rand.NewPCG(s.seed^uint64(time.Now().UnixNano()), 0))
	if s.maxLatency > 0 {
		d := s.minLatency
		if span := s.maxLatency - s.minLatency; span > 0 {
			d += time.Duration(chaos.Int64N(int64(span)))
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if s.failureRate > 0 && chaos.Float64() < s.failureRate {
		return nil, &UpstreamError{Status: 503, Body: fmt.Sprintf("simulated %s outage", t)}
	}
	return gen(r, s.now()), nil
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Simulated fleets operate around a fixed metro area.
const (
	baseLat = 39.9526
	baseLon = -75.1652
)

func simLocation(r *rand.Rand, now time.Time) model.RawData {
	return model.RawData{
		"latitude":  baseLat + between(r, -0.2, 0.2),
		"longitude": baseLon + between(r, -0.2, 0.2),
		"speed":     between(r, 0, 65),
		"heading":   between(r, 0, 360),
		"accuracy":  between(r, 3, 25),
		"timestamp": now.Add(-time.Duration(r.IntN(60)) * time.Second).UTC().Format(time.RFC3339),
	}
}

func simPrimaryRoute(r *rand.Rand, _ time.Time) model.RawData {
	meters := between(r, 8_000, 250_000)
	seconds := meters / between(r, 18, 27)
	return model.RawData{"routes": []any{map[string]any{
		"summary": "I-95 S",
		"legs": []any{map[string]any{
			"distance":            map[string]any{"value": meters},
			"duration":            map[string]any{"value": seconds},
			"duration_in_traffic": map[string]any{"value": seconds * between(r, 0.95, 1.7)},
		}},
	}}}
}

func simSecondaryRoute(r *rand.Rand, _ time.Time) model.RawData {
	meters := between(r, 8_000, 250_000)
	typical := meters / between(r, 18, 27)
	return model.RawData{"routes": []any{map[string]any{
		"distance":         meters,
		"duration":         typical * between(r, 0.95, 1.7),
		"duration_typical": typical,
	}}}
}

var simConditions = []string{"Clear", "Clear", "Clouds", "Clouds", "Rain", "Drizzle", "Mist", "Fog", "Snow", "Thunderstorm"}

func simWeather(r *rand.Rand, _ time.Time) model.RawData {
	cond := simConditions[r.IntN(len(simConditions))]
	data := model.RawData{
		"weather":    []any{map[string]any{"main": cond, "description": "simulated " + cond}},
		"main":       map[string]any{"temp": between(r, 20, 95)},
		"visibility": between(r, 400, 16_000),
		"wind":       map[string]any{"speed": between(r, 0, 35)},
	}
	if cond == "Rain" || cond == "Drizzle" || cond == "Thunderstorm" {
		data["rain"] = map[string]any{"1h": between(r, 0.5, 20)}
	}
	return data
}

var simIncidentSeverities = []string{"minor", "moderate", "major", "severe"}

func simTraffic(r *rand.Rand, _ time.Time) model.RawData {
	var incidents []any
	for i := range r.IntN(4) {
		incidents = append(incidents, map[string]any{
			"id":          fmt.Sprintf("inc-%d", i+1),
			"type":        "accident",
			"severity":    simIncidentSeverities[r.IntN(len(simIncidentSeverities))],
			"description": "simulated incident",
			"location": map[string]any{
				"lat": baseLat + between(r, -0.1, 0.1),
				"lon": baseLon + between(r, -0.1, 0.1),
			},
		})
	}
	if incidents == nil {
		incidents = []any{}
	}
	return model.RawData{
		"congestion_level": float64(r.IntN(11)),
		"incidents":        incidents,
	}
}

func simHistorical(r *rand.Rand, _ time.Time) model.RawData {
	return model.RawData{
		"average_delivery_minutes": between(r, 60, 300),
		"on_time_rate":             between(r, 0.7, 0.98),
		"sample_size":              float64(20 + r.IntN(400)),
		"day_of_week_factors": map[string]any{
			"monday": between(r, 1.0, 1.15), "friday": between(r, 1.05, 1.2),
			"saturday": between(r, 0.85, 1.0), "sunday": between(r, 0.8, 0.95),
		},
		"time_of_day_factors": map[string]any{
			"morning": between(r, 1.0, 1.2), "afternoon": between(r, 0.95, 1.1),
			"evening": between(r, 1.05, 1.25), "night": between(r, 0.85, 1.0),
		},
		"seasonal_factors": map[string]any{
			"winter": between(r, 1.05, 1.25), "spring": 1.0, "summer": between(r, 0.95, 1.05), "fall": 1.0,
		},
	}
}

func simEvents(r *rand.Rand, now time.Time) model.RawData {
	events := []any{}
	if r.IntN(2) == 0 {
		start := now.Add(time.Duration(r.IntN(6)) * time.Hour).UTC()
		events = append(events, map[string]any{
			"name":                "Stadium game",
			"type":                "sports",
			"impact":              []string{"low", "moderate", "high"}[r.IntN(3)],
			"expected_attendance": float64(10_000 + r.IntN(60_000)),
			"starts_at":           start.Format(time.RFC3339),
			"ends_at":             start.Add(3 * time.Hour).Format(time.RFC3339),
			"location":            map[string]any{"lat": 39.9012, "lon": -75.1675},
		})
	}
	closures := []any{}
	if r.IntN(3) == 0 {
		closures = append(closures, map[string]any{
			"road":     "Market St",
			"reason":   "construction",
			"severity": "moderate",
			"location": map[string]any{"lat": baseLat + between(r, -0.05, 0.05), "lon": baseLon + between(r, -0.05, 0.05)},
		})
	}
	return model.RawData{"events": events, "road_closures": closures}
}
