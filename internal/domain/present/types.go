package present

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

// Presenter errors.
var (
	ErrUnknownPromptType = errors.New("unknown prompt type")
	ErrUnknownRole       = errors.New("unknown user role")
)

// PromptType selects what the downstream consumer is asked to produce.
type PromptType string

const (
	PromptETAEstimate      PromptType = "eta_estimate"
	PromptDelayExplanation PromptType = "delay_explanation"
	PromptRiskAssessment   PromptType = "risk_assessment"
)

// UserRole is the audience of the estimate.
type UserRole string

const (
	RoleDispatcher UserRole = "dispatcher"
	RoleDriver     UserRole = "driver"
	RoleCustomer   UserRole = "customer"
)

// ParsePromptType validates s; empty means eta_estimate.
func ParsePromptType(s string) (PromptType, error) {
	switch p := PromptType(s); p {
	case "":
		return PromptETAEstimate, nil
	case PromptETAEstimate, PromptDelayExplanation, PromptRiskAssessment:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPromptType, s)
}

// ParseRole validates s; empty means dispatcher.
func ParseRole(s string) (UserRole, error) {
	switch r := UserRole(s); r {
	case "":
		return RoleDispatcher, nil
	case RoleDispatcher, RoleDriver, RoleCustomer:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// LoadSummary is the load directory's view of a shipment.
type LoadSummary struct {
	LoadID            string     `json:"loadId"`
	Reference         string     `json:"reference,omitempty"`
	Status            string     `json:"status,omitempty"`
	Pickup            string     `json:"pickup,omitempty"`
	Delivery          string     `json:"delivery,omitempty"`
	ScheduledDelivery *time.Time `json:"scheduledDelivery,omitempty"`
	Customer          string     `json:"customer,omitempty"`
}

// VehicleSummary is the fleet directory's view of the driver and truck.
type VehicleSummary struct {
	DriverID   string `json:"driverId"`
	DriverName string `json:"driverName,omitempty"`
	VehicleID  string `json:"vehicleId,omitempty"`
	UnitNumber string `json:"unitNumber,omitempty"`
}

// Summaries bundles the collaborator-owned blocks. Either may be nil.
type Summaries struct {
	Load    *LoadSummary
	Vehicle *VehicleSummary
}

// SummaryLookup resolves load and vehicle summaries for a run.
type SummaryLookup interface {
	Lookup(ctx context.Context, driverID, loadID string) (Summaries, error)
}

// SummaryLookupFunc adapts a function to SummaryLookup.
type SummaryLookupFunc func(ctx context.Context, driverID, loadID string) (Summaries, error)

// Lookup calls f.
func (f SummaryLookupFunc) Lookup(ctx context.Context, driverID, loadID string) (Summaries, error) {
	return f(ctx, driverID, loadID)
}

// Payload is what the downstream consumer receives. Absent inputs are
// omitted, never zero-filled.
type Payload struct {
	PromptType PromptType `json:"promptType"`
	UserRole   UserRole   `json:"userRole"`

	Load    *LoadSummary    `json:"load,omitempty"`
	Vehicle *VehicleSummary `json:"vehicle,omitempty"`

	Location      *model.Location      `json:"location,omitempty"`
	Route         *model.Route         `json:"route,omitempty"`
	Weather       *model.Weather       `json:"weather,omitempty"`
	Traffic       *model.Traffic       `json:"traffic,omitempty"`
	Historical    *model.Historical    `json:"historical,omitempty"`
	SpecialEvents *model.SpecialEvents `json:"specialEvents,omitempty"`

	WeatherImpact      *model.WeatherImpact       `json:"weatherImpact,omitempty"`
	TrafficImpact      *model.TrafficImpact       `json:"trafficImpact,omitempty"`
	HistoricalPatterns *model.HistoricalPatterns  `json:"historicalPatterns,omitempty"`
	Risk               *model.CombinedRiskFactors `json:"risk,omitempty"`
	AdjustedETA        *model.AdjustedETA         `json:"adjustedEta,omitempty"`
	ProximityAlerts    []model.ProximityAlert     `json:"proximityAlerts,omitempty"`

	// Notes flags degraded inputs such as stale locations or baselines.
	Notes []string `json:"notes,omitempty"`
}
