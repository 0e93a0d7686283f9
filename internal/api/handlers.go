package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/shiftsched/pkg/buildinfo"
	"github.com/matzehuels/shiftsched/pkg/config"
	schederrors "github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	runner   *pipeline.Runner
	defaults shift.Settings
	limits   config.Server
	logger   *log.Logger
}

// NewHandlers creates handlers that schedule with runner. Requests start
// from defaults and are bounded by limits.
func NewHandlers(runner *pipeline.Runner, defaults shift.Settings, limits config.Server, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = runner.Logger
	}
	return &Handlers{runner: runner, defaults: defaults, limits: limits, logger: logger}
}

// HandleSchedule handles POST /v1/schedule.
func (h *Handlers) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", "content type must be application/json")
		return
	}

	body := r.Body
	if h.limits.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.limits.MaxBodyBytes)
	}
	var req ScheduleRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Graph == nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "missing graph")
		return
	}

	opts, err := h.options(&req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))
	opts.Logger = logger
	var res *pipeline.Result
	if len(req.Seeds) > 0 {
		res, err = h.runner.BestOf(r.Context(), req.Graph, opts, req.Seeds)
	} else {
		res, err = h.runner.Execute(r.Context(), req.Graph, opts)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logger.Info("scheduled", "ops", res.Summary.NOps, "source", res.Source,
		"final_sum", res.Summary.FinalSumLiveness)
	writeJSON(w, http.StatusOK, ScheduleResponse{Result: res, Artifacts: res.Artifacts})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   info.Version,
		Commit:    info.Commit,
		GoVersion: info.GoVersion,
	})
}

// options builds pipeline options from the request. The search time is
// capped by the server limit whatever the request asks for; unknown
// settings and too many seeds are rejected.
func (h *Handlers) options(req *ScheduleRequest) (pipeline.Options, error) {
	opts := pipeline.Options{
		Settings: h.defaults,
		Formats:  req.Formats,
		Allocs:   req.Allocs,
		Refresh:  req.Refresh,
	}
	opts.Settings.Priorities = nil
	if len(req.Settings) > 0 {
		dec := json.NewDecoder(bytes.NewReader(req.Settings))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts.Settings); err != nil {
			return opts, schederrors.Wrap(schederrors.ErrCodeInvalidSetting, err, "decode settings")
		}
	}
	if limit := h.limits.MaxSeeds; limit > 0 && len(req.Seeds) > limit {
		return opts, schederrors.New(schederrors.ErrCodeInvalidSetting,
			"%d seeds requested, at most %d allowed", len(req.Seeds), limit)
	}
	if limit := h.limits.MaxSeconds; limit > 0 && opts.Settings.Termination.MaxSeconds > limit {
		opts.Settings.Termination.MaxSeconds = limit
	}
	return opts, opts.ValidateAndSetDefaults()
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := strings.ToLower(string(schederrors.GetCode(err)))
	if code == "" {
		code = "internal_error"
	}
	msg := schederrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("schedule failed", "request_id", middleware.GetReqID(r.Context()), "err", err)
		msg = ""
	}
	if status == http.StatusServiceUnavailable {
		code = "request_timeout"
	}
	writeError(w, r, status, code, msg)
}

func statusOf(err error) int {
	switch {
	case schederrors.Is(err, schederrors.ErrCodeCycle):
		return http.StatusUnprocessableEntity
	case schederrors.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
