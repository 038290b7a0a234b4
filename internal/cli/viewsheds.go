package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/intervis/pkg/observability"
	"github.com/matzehuels/intervis/pkg/observability/prom"
	"github.com/matzehuels/intervis/pkg/viewshed"
)

type viewshedsOpts struct {
	overwrite   bool
	batchSize   int
	saveEvery   int
	observers   string
	output      string
	metricsAddr string
}

// viewshedsCommand creates the command that decodes per-observer viewsheds.
func (c *CLI) viewshedsCommand() *cobra.Command {
	var opts viewshedsOpts
	cmd := &cobra.Command{
		Use:   "viewsheds <workspace>",
		Short: "Compute and decode per-observer viewsheds",
		Long: `Stream the observers dataset in point id order, submit batches of up to 32
observers to the visibility engine and decode each observer's bit plane into
a viewshed polygon.

Runs resume from the largest point id already written. Batches whose raster
artifacts exist are decoded without calling the engine unless --overwrite is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runViewsheds(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "recompute batches whose artifacts already exist")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "observers per engine call, 1..32 (default from config)")
	cmd.Flags().IntVar(&opts.saveEvery, "save-every", 0, "decoded observers buffered between checkpoints (default from config)")
	cmd.Flags().StringVar(&opts.observers, "observers", "", "observers dataset (default from config)")
	cmd.Flags().StringVar(&opts.output, "output", "", "viewsheds dataset (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func (c *CLI) runViewsheds(ctx context.Context, workspace string, opts viewshedsOpts) error {
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	if opts.overwrite {
		cfg.Batch.Overwrite = true
	}
	if opts.batchSize != 0 {
		cfg.Batch.Size = opts.batchSize
	}
	if opts.saveEvery != 0 {
		cfg.Batch.SaveEvery = opts.saveEvery
	}
	if opts.observers != "" {
		cfg.Datasets.Observers = opts.observers
	}
	if opts.output != "" {
		cfg.Datasets.Viewsheds = opts.output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		stop := c.serveMetrics(opts.metricsAddr)
		defer stop()
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	artifacts, err := newArtifacts(ctx, cfg)
	if err != nil {
		return err
	}
	out := st.Viewsheds(cfg.Datasets.Viewsheds)
	if err := out.Create(ctx); err != nil {
		return err
	}

	c.Logger.Info("decoding viewsheds",
		"observers", cfg.Datasets.Observers,
		"output", cfg.Datasets.Viewsheds,
		"engine", cfg.Engine.Driver,
		"batch_size", cfg.Batch.Size)

	runner := viewshed.NewRunner(c.newEngine(cfg), artifacts, nil, out, c.Logger)
	rep, err := runner.Run(ctx, st.Observers(cfg.Datasets.Observers), out, cfg.ViewshedOptions())
	printRunReport(rep)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			printError("Run aborted; re-run to resume after the last checkpoint")
		}
		return err
	}
	printSuccess("Viewsheds written to %s", StyleValue.Render(cfg.Datasets.Viewsheds))
	return nil
}

// serveMetrics installs Prometheus hooks and serves them on addr until the
// returned stop function is called.
func (c *CLI) serveMetrics(addr string) (stop func()) {
	reg := prometheus.NewRegistry()
	prom.New(reg).Install()

	srv := &http.Server{Addr: addr, Handler: prom.Handler(reg), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger.Warn("metrics server stopped", "err", err)
		}
	}()
	c.Logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		observability.Reset()
	}
}
