package api

import (
	"encoding/json"

	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// ScheduleRequest is the body of POST /v1/schedule.
type ScheduleRequest struct {
	Graph *shift.Graph `json:"graph"`
	// Settings overlays the server defaults; omitted keys keep them.
	Settings json.RawMessage `json:"settings,omitempty"`
	// Formats lists artifacts to render; see [pipeline.ValidFormats].
	Formats []string `json:"formats,omitempty"`
	Allocs  bool     `json:"allocs,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`
	// Seeds runs one search per seed and returns the best.
	Seeds []uint32 `json:"seeds,omitempty"`
}

// ScheduleResponse is the reply of POST /v1/schedule. Binary artifacts are
// base64 encoded by encoding/json.
type ScheduleResponse struct {
	*pipeline.Result
	Artifacts map[string][]byte `json:"artifacts,omitempty"`
}

// HealthResponse is the reply of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
