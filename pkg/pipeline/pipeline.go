// Package pipeline runs the scheduler behind a solution cache.
//
// This package implements the lookup → schedule → store → render flow that
// is shared by the CLI and the HTTP API. By centralizing it, both entry
// points key, validate and record results the same way.
//
// # Architecture
//
// A run has three stages:
//
//  1. Lookup: hash the graph and the settings and ask the [SolutionStore]
//     for an order. A cached order is re-validated against the graph before
//     it is trusted.
//  2. Schedule: on a miss, run [shift.Schedule] and store the result.
//  3. Render: produce the requested artifacts (JSON, DOT, SVG, PNG), each
//     cached on its own.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.NewOptions()
//	opts.Formats = []string{pipeline.FormatSVG}
//	result, err := runner.Execute(ctx, g, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Try several seeds of the random Kahn tie breaker concurrently and keep the
// best order:
//
//	best, err := runner.BestOf(ctx, g, opts, []uint32{1, 2, 3, 4})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultTTL is how long stored schedules and artifacts stay valid.
	DefaultTTL = 7 * 24 * time.Hour
)

// Format constants for output artifacts.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// Source values reported in [Result.Source].
const (
	SourceSearch = "search"
	SourceCache  = "cache"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Settings shift.Settings `json:"settings"`

	// Formats lists the artifacts to render. Empty renders nothing.
	Formats []string `json:"formats,omitempty"`
	// Allocs draws allocs in graph renderings.
	Allocs bool `json:"allocs,omitempty"`
	// Refresh skips the cache lookup; the new result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	TTL    time.Duration `json:"-"`
	Logger *log.Logger   `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// NewOptions returns options with [shift.DefaultSettings].
func NewOptions() Options {
	return Options{Settings: shift.DefaultSettings()}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	*shift.Result

	// Source is SourceSearch or SourceCache.
	Source string `json:"source"`

	// GraphHash and SettingsHash form the cache key of the schedule.
	GraphHash    string `json:"graph_hash"`
	SettingsHash string `json:"settings_hash"`

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"-"`

	// Stats contains timing information.
	Stats Stats `json:"stats"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	LookupTime   time.Duration `json:"lookup_time"`
	ScheduleTime time.Duration `json:"schedule_time"`
	RenderTime   time.Duration `json:"render_time"`
	RenderHit    bool          `json:"render_hit"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidSetting,
			"invalid format: %q (must be one of: json, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the settings and formats and applies
// defaults. Calling it again has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.Settings.Validate(); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// String summarizes the options for logs.
func (o *Options) String() string {
	return fmt.Sprintf("kahn=%s algo=%s seed=%d formats=%v", o.Settings.KahnTieBreaker,
		o.Settings.RotationAlgo, o.Settings.Seed, o.Formats)
}
