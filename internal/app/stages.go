package service

import (
	"context"
	"errors"

	"github.com/okian/etaflow/internal/adapters/collector"
	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/internal/domain/source"
	"github.com/okian/etaflow/internal/domain/validation"
)

// Stage names one state of the pipeline.
type Stage string

const (
	StageCollect   Stage = "collect"
	StageValidate  Stage = "validate"
	StageTransform Stage = "transform"
	StageEnrich    Stage = "enrich"
	StagePresent   Stage = "present"
)

// stageOrder is the only path through the pipeline.
var stageOrder = []Stage{StageCollect, StageValidate, StageTransform, StageEnrich, StagePresent}

// Collector is the collect stage.
type Collector interface {
	Collect(ctx context.Context, fc model.FetchContext) collector.Result
}

// Validator is the validate stage.
type Validator interface {
	Validate(collected map[model.SourceType]model.SourceData) validation.Output
}

// Transformer is the transform stage. It returns whatever it could build
// alongside any error.
type Transformer interface {
	Transform(validated map[model.SourceType]model.SourceData) (model.CanonicalContext, error)
}

// Enricher is the enrich stage.
type Enricher interface {
	Enrich(c model.CanonicalContext) model.Enriched
}

// Presenter is the present stage.
type Presenter interface {
	Present(e model.Enriched, s present.Summaries, prompt present.PromptType, role present.UserRole) (present.Payload, error)
}

// StageHandler decides whether a stage error aborts the run. The stage has
// already left its safe partial output in place when the handler is called.
type StageHandler func(ctx context.Context, stage Stage, err error) (fatal bool)

// DefaultStageHandler treats programming and configuration errors as fatal:
// panics, registry misconfiguration, unknown prompt types or roles, and
// anything wrapping ErrFatal. Data problems are never fatal.
func DefaultStageHandler(_ context.Context, _ Stage, err error) bool {
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		return true
	case errors.Is(err, ErrFatal),
		errors.Is(err, source.ErrConfiguration),
		errors.Is(err, present.ErrUnknownPromptType),
		errors.Is(err, present.ErrUnknownRole):
		return true
	}
	return false
}
