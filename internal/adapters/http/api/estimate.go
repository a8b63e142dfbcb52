package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/pkg/logger"
)

const defaultEstimateTimeout = 30 * time.Second

// EstimateOption configures the estimate handler.
type EstimateOption func(*EstimateHandler)

// WithTimeout bounds a single pipeline run.
func WithTimeout(d time.Duration) EstimateOption {
	return func(h *EstimateHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) EstimateOption {
	return func(h *EstimateHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// EstimateHandler handles GET /estimate.
type EstimateHandler struct {
	est     Estimator
	timeout time.Duration
	log     logger.Logger
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(est Estimator, opts ...EstimateOption) *EstimateHandler {
	h := &EstimateHandler{est: est, timeout: defaultEstimateTimeout, log: logger.Discard()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEstimate parses the query, runs the pipeline and writes the result.
// Abandoning the request cancels the run's in-flight fetches.
func (h *EstimateHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	req, err := parseEstimate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res := h.est.Run(ctx, req)
	status := http.StatusOK
	switch {
	case res.Success:
	case errors.Is(res.Error, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		h.log.Error(ctx, "estimate failed",
			logger.String("run_id", res.RunID),
			logger.String("error", res.ErrorMessage))
	}
	writeJSON(w, status, res)
}

func parseEstimate(r *http.Request) (service.Request, error) {
	q := r.URL.Query()
	req := service.Request{
		DriverID: strings.TrimSpace(q.Get("driver_id")),
		LoadID:   strings.TrimSpace(q.Get("load_id")),
	}
	switch {
	case req.DriverID == "":
		return req, fmt.Errorf("%w: missing driver_id", ErrBadRequest)
	case req.LoadID == "":
		return req, fmt.Errorf("%w: missing load_id", ErrBadRequest)
	}

	pt, err := present.ParsePromptType(q.Get("prompt_type"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	role, err := present.ParseRole(q.Get("user_role"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	req.PromptType, req.UserRole = pt, role
	return req, nil
}
