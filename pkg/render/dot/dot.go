// Package dot draws scheduling graphs with Graphviz.
//
// [ToDOT] produces a DOT document of the precedence graph. Links are drawn
// as bold edges; when a schedule is given, ops are labelled with their
// position and placed left to right in schedule order, and allocs can be
// shown as ellipses attached to their users. [RenderSVG] and [RenderPNG]
// lay the document out with the embedded Graphviz of go-graphviz, so no
// system installation is needed.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Options configures DOT generation.
type Options struct {
	// Order labels every op with its schedule position and pins the
	// left-to-right placement. Nil draws the graph alone.
	Order []shift.OpAddress
	// Allocs draws every alloc as an ellipse joined to the ops using it.
	Allocs bool
	// Title is drawn above the graph.
	Title string
}

// ToDOT converts g to Graphviz DOT.
func ToDOT(g *shift.Graph, opts Options) string {
	var pos []int
	if len(opts.Order) == g.NOps() && g.NOps() > 0 {
		pos = make([]int, g.NOps())
		for i, op := range opts.Order {
			pos[op] = i
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	for a := range g.NOps() {
		op := g.Op(a)
		label := op.Name()
		if pos != nil {
			label = fmt.Sprintf("%d: %s", pos[a], label)
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if op.HasFwdLink() || op.HasBwdLink() {
			attrs = append(attrs, "fillcolor=lightyellow")
		}
		fmt.Fprintf(&buf, "  op%d [%s];\n", a, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if g.Op(e[0]).FwdLink() == e[1] {
			fmt.Fprintf(&buf, "  op%d -> op%d [style=bold, color=firebrick];\n", e[0], e[1])
			continue
		}
		fmt.Fprintf(&buf, "  op%d -> op%d;\n", e[0], e[1])
	}

	if pos != nil && len(opts.Order) > 1 {
		buf.WriteString("\n  // schedule order\n  edge [style=invis, weight=0, constraint=false];\n")
		for i := 1; i < len(opts.Order); i++ {
			fmt.Fprintf(&buf, "  op%d -> op%d;\n", opts.Order[i-1], opts.Order[i])
		}
	}

	if opts.Allocs {
		buf.WriteString("\n  node [shape=ellipse, style=filled, fillcolor=lightblue, fontsize=11];\n")
		buf.WriteString("  edge [style=dashed, arrowhead=none, color=grey50, constraint=false, weight=0];\n")
		for a := range g.NAllocs() {
			alloc := g.Alloc(a)
			fmt.Fprintf(&buf, "  alloc%d [label=%q];\n", a, fmt.Sprintf("a%d (%s)", a, fmtWeight(alloc.Weight())))
			for _, op := range alloc.Ops() {
				fmt.Fprintf(&buf, "  alloc%d -> op%d;\n", a, op)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtWeight(w shift.Weight) string {
	if w == shift.NewWeight(w.Scalar()) {
		return strconv.FormatFloat(w.Scalar(), 'g', -1, 64)
	}
	return w.String()
}

// RenderSVG lays out a DOT document and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out a DOT document and returns PNG bytes.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element, whose width and
// height are in points, with one sized by the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
