package cli

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/intervis/internal/server"
	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observability"
	"github.com/matzehuels/intervis/pkg/observability/prom"
)

// serveCommand creates the HTTP server command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <workspace> <network-json>",
		Short: "Serve a network as JSON, GeoJSON and SVG over HTTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], args[1], addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, workspace, input, addr string) error {
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	g, err := network.ReadGraphFile(resolvePath(cfg.Workspace, input))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := prom.New(reg)
	m.Install()
	defer observability.Reset()
	m.GraphEdges.Set(float64(g.EdgeCount()))
	m.GraphNodes.Set(float64(g.NodeCount()))

	srv, err := server.New(g, server.Options{Logger: c.Logger, Gatherer: reg})
	if err != nil {
		return err
	}
	printInfo("Serving %d edges on %s", g.EdgeCount(), StyleValue.Render(addr))
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
