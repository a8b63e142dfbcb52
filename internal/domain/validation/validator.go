// Package validation checks collected payloads against their declarative
// rules and scores the overall quality of a run's data.
package validation

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
)

// Output is the result of the validate stage.
type Output struct {
	Validated map[model.SourceType]model.SourceData
	Results   []model.ValidationResult
	Quality   model.DataQualityMetrics
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithClock replaces time.Now for timeliness scoring.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// Validator evaluates per-source rules. It is safe for concurrent use.
type Validator struct {
	registry *source.Registry
	now      func() time.Time

	patterns sync.Map // pattern -> *regexp.Regexp or error
}

// New creates a Validator backed by the registry's rules.
func New(registry *source.Registry, opts ...Option) *Validator {
	v := &Validator{registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks every collected slot in registry order. Slots that fail a
// non-warning rule are left out of Output.Validated.
func (v *Validator) Validate(collected map[model.SourceType]model.SourceData) Output {
	out := Output{Validated: make(map[model.SourceType]model.SourceData, len(collected))}

	for _, t := range v.registry.Types() {
		sd, ok := collected[t]
		if !ok {
			continue
		}
		res := v.Check(sd)
		out.Results = append(out.Results, res)
		if res.Valid {
			out.Validated[t] = sd
		}
	}

	out.Quality = v.Quality(out)
	return out
}

// Check evaluates the rules of the provider that actually produced sd.
func (v *Validator) Check(sd model.SourceData) model.ValidationResult {
	res := model.ValidationResult{Source: sd.Slot, Valid: true}

	provider := sd.Provider
	if provider == "" {
		provider = sd.Slot
	}
	cfg, err := v.registry.Config(provider)
	if err != nil {
		res.Valid = false
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	if sd.Data == nil {
		res.Valid = false
		res.Errors = append(res.Errors, "no data")
		return res
	}

	for _, rule := range cfg.Rules {
		msg, ok := v.apply(rule, sd.Data)
		if ok {
			continue
		}
		if rule.Warn {
			res.Warnings = append(res.Warnings, msg)
			continue
		}
		res.Valid = false
		res.Errors = append(res.Errors, msg)
	}
	return res
}

func (v *Validator) apply(rule source.ValidationRule, data model.RawData) (string, bool) {
	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("%s failed %s check", rule.Field, rule.Kind)
	}

	value, present := Resolve(data, rule.Field)

	switch rule.Kind {
	case source.RuleRequired:
		return msg, present

	case source.RuleMin, source.RuleMax, source.RuleRange:
		if !present {
			return msg, true
		}
		n, ok := Number(value)
		if !ok {
			return msg, false
		}
		switch rule.Kind {
		case source.RuleMin:
			return msg, n >= rule.Min
		case source.RuleMax:
			return msg, n <= rule.Max
		default:
			return msg, n >= rule.Min && n <= rule.Max
		}

	case source.RuleFormat:
		if !present || rule.Pattern == "" {
			return msg, true
		}
		re, err := v.compile(rule.Pattern)
		if err != nil {
			return fmt.Sprintf("%s: %v", msg, err), false
		}
		s, ok := value.(string)
		return msg, ok && re.MatchString(s)

	case source.RuleCustom:
		if rule.Predicate == nil {
			return msg, true
		}
		return msg, rule.Predicate(value)
	}

	return fmt.Sprintf("%s: unknown rule kind %q", rule.Field, rule.Kind), false
}

func (v *Validator) compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := v.patterns.Load(pattern); ok {
		if re, ok := cached.(*regexp.Regexp); ok {
			return re, nil
		}
		return nil, cached.(error)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		wrapped := fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		v.patterns.Store(pattern, wrapped)
		return nil, wrapped
	}
	v.patterns.Store(pattern, re)
	return re, nil
}

// Quality scores out against the number of registered source types.
//
// completeness is the validated fraction. accuracy weights each validated
// slot by how it was obtained. timeliness is each slot's remaining TTL
// fraction. consistency counts validated slots with no warnings.
func (v *Validator) Quality(out Output) model.DataQualityMetrics {
	registered := v.registry.Len()
	if registered == 0 {
		return model.DataQualityMetrics{}
	}

	warned := make(map[model.SourceType]bool, len(out.Results))
	for _, r := range out.Results {
		if len(r.Warnings) > 0 {
			warned[r.Source] = true
		}
	}

	now := v.now()
	var trust, fresh, consistent float64
	for t, sd := range out.Validated {
		trust += sd.Origin.Trust()
		fresh += freshness(sd, now)
		if !warned[t] {
			consistent++
		}
	}

	n := float64(registered)
	return model.DataQualityMetrics{
		Completeness: clamp01(float64(len(out.Validated)) / n),
		Accuracy:     clamp01(trust / n),
		Timeliness:   clamp01(fresh / n),
		Consistency:  clamp01(consistent / n),
	}
}

func freshness(sd model.SourceData, now time.Time) float64 {
	if sd.Origin == model.OriginHistoricalAverage {
		return 0
	}
	if sd.TTL <= 0 {
		if sd.Origin == model.OriginFresh {
			return 1
		}
		return 0
	}
	age := now.Sub(sd.FetchedAt)
	if age < 0 {
		age = 0
	}
	return clamp01(1 - float64(age)/float64(sd.TTL))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
