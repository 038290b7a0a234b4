package export

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/intervis/pkg/network"
)

// DOTOptions configures the Graphviz rendering of a network.
type DOTOptions struct {
	// Detailed adds area and perimeter to labels of decorated nodes and the
	// visible area to edge labels.
	Detailed bool
	// Geographic pins decorated nodes at their centroid so neato keeps the
	// map layout. Undecorated nodes float.
	Geographic bool
	// Scale converts map units to points when Geographic is set.
	// Zero picks a scale that fits the graph into roughly 20 inches.
	Scale float64
}

// ToDOT converts a network to Graphviz DOT format.
// Edge pen width grows with the logarithm of the visible area.
func ToDOT(g *network.Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Geographic {
		buf.WriteString("  layout=neato;\n")
		buf.WriteString("  overlap=true;\n")
	} else {
		buf.WriteString("  rankdir=LR;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [arrowsize=0.6, color=\"#4a6fa5\"];\n")
	buf.WriteString("\n")

	scale := opts.Scale
	if opts.Geographic && scale == 0 {
		scale = fitScale(g)
	}

	for _, n := range g.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, opts.Detailed))}
		if opts.Geographic && n.Decorated {
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.Centroid[0]*scale, n.Centroid[1]*scale))
		}
		if !n.Decorated {
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  \"%d\" [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := []string{fmt.Sprintf("penwidth=%.2f", penWidth(e.Area))}
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", strconv.FormatFloat(e.Area, 'g', 6, 64)))
		}
		fmt.Fprintf(&buf, "  \"%d\" -> \"%d\" [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *network.Node, detailed bool) string {
	id := strconv.FormatInt(n.ID, 10)
	if !detailed || !n.Decorated {
		return id
	}
	return fmt.Sprintf("%s\narea: %.0f\nperimeter: %.0f", id, n.Area, n.Perimeter)
}

func penWidth(area float64) float64 {
	if area <= 1 {
		return 1
	}
	return 1 + math.Log10(area)/2
}

func fitScale(g *network.Graph) float64 {
	var b struct{ minX, minY, maxX, maxY float64 }
	first := true
	for _, n := range g.Nodes() {
		if !n.Decorated {
			continue
		}
		x, y := n.Centroid[0], n.Centroid[1]
		if first {
			b.minX, b.maxX, b.minY, b.maxY = x, x, y, y
			first = false
			continue
		}
		b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
		b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
	}
	span := math.Max(b.maxX-b.minX, b.maxY-b.minY)
	if span == 0 {
		return 1
	}
	return 20 * 72 / span
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root element so the SVG scales with its
// container instead of Graphviz's fixed point size.
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

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
