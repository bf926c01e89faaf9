package driver

import (
	"encoding/json"

	"mmbcheck/internal/observ"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	Cached  bool                 `json:"cached,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// TimingJSON renders the per-phase timings of r as one JSON object. It
// returns nil when timings were not collected.
func TimingJSON(r *FileResult) []byte {
	if r == nil || r.Timing == nil {
		return nil
	}
	data, err := json.Marshal(timingPayload{
		Kind:    "verify",
		Path:    r.Path,
		Cached:  r.Cached,
		TotalMS: r.Timing.TotalMS,
		Phases:  r.Timing.Phases,
	})
	if err != nil {
		return nil
	}
	return data
}
