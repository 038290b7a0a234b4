package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
)

// Render formats.
const (
	formatSVG     = "svg"
	formatDOT     = "dot"
	formatGeoJSON = "geojson"
)

type renderOpts struct {
	format     string
	output     string
	bbox       string
	detailed   bool
	geographic bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render <workspace> <network-json>",
		Short: "Render a network as SVG, DOT or GeoJSON",
		Long: `Render a network written by "intervis network". A relative <network-json>
is resolved against <workspace>. --bbox keeps only lines whose bounds
intersect minx,miny,maxx,maxy (GeoJSON only).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], args[1], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatSVG, "output format: svg, dot, geojson")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input with the format's extension)")
	cmd.Flags().StringVar(&opts.bbox, "bbox", "", "bounding box filter minx,miny,maxx,maxy")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label edges with area and nodes with attributes")
	cmd.Flags().BoolVar(&opts.geographic, "geographic", false, "pin decorated nodes at their centroids")
	return cmd
}

func resolvePath(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func (c *CLI) runRender(ctx context.Context, workspace, input string, opts renderOpts) error {
	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case formatSVG, formatDOT, formatGeoJSON:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", opts.format)
	}
	if opts.bbox != "" && opts.format != formatGeoJSON {
		return errors.New(errors.ErrCodeInvalidInput, "--bbox requires -f geojson")
	}

	path := resolvePath(workspace, input)
	g, err := network.ReadGraphFile(path)
	if err != nil {
		return err
	}

	data, err := renderNetwork(ctx, g, opts)
	if err != nil {
		return err
	}

	outPath := opts.output
	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + "." + opts.format
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	printSuccess("Rendered %d edges", g.EdgeCount())
	printFile(outPath)
	return nil
}

func renderNetwork(ctx context.Context, g *network.Graph, opts renderOpts) ([]byte, error) {
	switch opts.format {
	case formatGeoJSON:
		lines := export.Lines(g)
		if opts.bbox != "" {
			b, err := export.ParseBound(opts.bbox)
			if err != nil {
				return nil, err
			}
			idx, err := export.NewIndex(lines)
			if err != nil {
				return nil, err
			}
			if lines, err = idx.Within(b); err != nil {
				return nil, err
			}
		}
		var buf bytes.Buffer
		if err := export.WriteGeoJSON(&buf, lines); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatDOT:
		return []byte(export.ToDOT(g, dotOptions(opts))), nil
	default:
		return export.RenderSVG(ctx, export.ToDOT(g, dotOptions(opts)))
	}
}

func dotOptions(opts renderOpts) export.DOTOptions {
	return export.DOTOptions{Detailed: opts.detailed, Geographic: opts.geographic}
}
