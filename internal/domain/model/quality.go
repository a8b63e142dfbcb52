package model

// DataQualityMetrics scores the collected data; every field is in [0,1].
type DataQualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Timeliness   float64 `json:"timeliness"`
	Consistency  float64 `json:"consistency"`
}

// ValidationResult is the outcome of checking one source's rules.
type ValidationResult struct {
	Source   SourceType `json:"source"`
	Valid    bool       `json:"valid"`
	Errors   []string   `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}
