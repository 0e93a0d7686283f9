package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/render/dot"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Render generates artifacts for a scheduled graph in the requested formats.
// The JSON artifact encodes res itself; the others draw g with the order of
// res.
func Render(ctx context.Context, g *shift.Graph, res *Result, formats []string, allocs bool) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(formats))
	var src string
	for _, format := range formats {
		var data []byte
		var err error

		if format != FormatJSON && src == "" {
			src = dot.ToDOT(g, dot.Options{Order: res.Order, Allocs: allocs})
		}
		switch format {
		case FormatJSON:
			data, err = json.MarshalIndent(res, "", "  ")
		case FormatDOT:
			data = []byte(src)
		case FormatSVG:
			data, err = dot.RenderSVG(ctx, src)
		case FormatPNG:
			data, err = dot.RenderPNG(ctx, src)
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// render returns the artifacts of res, reusing cached drawings. JSON is
// always encoded fresh since it carries per-run fields.
func (r *Runner) render(ctx context.Context, g *shift.Graph, res *Result, opts *Options) (map[string][]byte, bool, error) {
	orderHash, err := cache.HashJSON(res.Order)
	if err != nil {
		return nil, false, err
	}
	drawingHash := cache.Hash([]byte(res.GraphHash + ":" + orderHash))
	store := r.Store
	key := func(format string) string {
		if opts.Allocs {
			format += "+allocs"
		}
		return store.Keyer.RenderKey(drawingHash, format)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if format == FormatJSON {
			missing = append(missing, format)
			continue
		}
		data, hit, err := store.Cache.Get(ctx, key(format))
		if err == nil && hit {
			store.hooks().OnCacheHit(ctx, keyTypeRender)
			artifacts[format] = data
			continue
		}
		store.hooks().OnCacheMiss(ctx, keyTypeRender)
		missing = append(missing, format)
	}
	allCached := len(missing) == 0

	rendered, err := Render(ctx, g, res, missing, opts.Allocs)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if format == FormatJSON {
			continue
		}
		if err := store.Cache.Set(ctx, key(format), data, opts.TTL); err != nil {
			opts.Logger.Warn("could not cache artifact", "format", format, "err", err)
			continue
		}
		store.hooks().OnCacheSet(ctx, keyTypeRender, len(data))
	}
	return artifacts, allCached, nil
}
