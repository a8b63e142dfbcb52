package transform

import (
	"time"

	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/validation"
)

const (
	metersPerMile = 1609.344
	mmPerInch     = 25.4
)

func metersToMiles(m float64) float64 { return m / metersPerMile }

func mmToInches(mm float64) float64 { return mm / mmPerInch }

func num(data model.RawData, path string) (float64, bool) {
	v, ok := validation.Resolve(data, path)
	if !ok {
		return 0, false
	}
	return validation.Number(v)
}

func numOr(data model.RawData, path string, def float64) float64 {
	if n, ok := num(data, path); ok {
		return n
	}
	return def
}

func str(data model.RawData, path string) string {
	v, ok := validation.Resolve(data, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func flag(data model.RawData, path string) bool {
	v, ok := validation.Resolve(data, path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func list(data model.RawData, path string) []model.RawData {
	v, ok := validation.Resolve(data, path)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]model.RawData, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func factors(data model.RawData, path string) map[string]float64 {
	v, ok := validation.Resolve(data, path)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, raw := range m {
		if n, ok := validation.Number(raw); ok {
			out[k] = n
		}
	}
	return out
}

func coords(data model.RawData, path string) *model.Coordinates {
	lat, okLat := num(data, path+".lat")
	lon, okLon := num(data, path+".lon")
	if !okLat || !okLon {
		return nil
	}
	return &model.Coordinates{Lat: lat, Lon: lon}
}

func timestamp(data model.RawData, path string) *time.Time {
	s := str(data, path)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
