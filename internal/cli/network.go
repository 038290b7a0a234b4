package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/intervis/pkg/cache"
	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
)

type networkOpts struct {
	overwrite   bool
	noOverwrite bool
	geojson     string
	graph       string
	decorate    bool
	noCache     bool
	mongo       bool
}

// networkCommand creates the graph-build command.
func (c *CLI) networkCommand() *cobra.Command {
	var opts networkOpts
	cmd := &cobra.Command{
		Use:   "network <workspace> <viewsheds-dataset> <islands-dataset> <output-name>",
		Short: "Build the inter-island visibility network",
		Long: `Fold the intersection rows of <viewsheds-dataset> into a directed weighted
network. Representative edge points are looked up in the viewshed centroid
dataset <islands-dataset>. The network is stored as <output-name> in the
workspace store and as <output-name>.json next to it.

Rows whose pair has no representative point are dropped and counted.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNetwork(cmd.Context(), args[0], args[1], args[2], args[3], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "replace an existing output dataset")
	cmd.Flags().BoolVar(&opts.noOverwrite, "no-overwrite", false, "fail if the output dataset exists (default)")
	cmd.MarkFlagsMutuallyExclusive("overwrite", "no-overwrite")
	cmd.Flags().StringVar(&opts.geojson, "geojson", "", "also write the network lines as GeoJSON to this file")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "graph JSON path (default: <workspace>/<output-name>.json)")
	cmd.Flags().BoolVar(&opts.decorate, "decorate", false, "attach centroid, area and perimeter from the islands dataset")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the centroid lookup cache")
	cmd.Flags().BoolVar(&opts.mongo, "mongo", false, "also write the lines to the configured MongoDB collection")
	return cmd
}

func (c *CLI) runNetwork(ctx context.Context, workspace, intersections, centroids, output string, opts networkOpts) error {
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	overwrite := opts.overwrite && !opts.noOverwrite

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Fail before the long build when the output would be rejected.
	if exists, err := st.Exists(ctx, output); err != nil {
		return err
	} else if exists && !overwrite {
		return errors.New(errors.ErrCodeAlreadyExists, "output dataset %s already exists (use --overwrite)", output)
	}

	lookupCache, err := newCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer lookupCache.Close()
	cents := st.Centroids(centroids)
	fp, err := cents.Fingerprint(ctx)
	if err != nil {
		return err
	}
	lookup := cache.NewCentroidLookup(cents, lookupCache, newKeyer(cfg), cache.VersionedDataset(centroids, fp))

	prog := newProgress(c.Logger)
	b := network.NewBuilder(lookup, network.BuilderOptions{Logger: c.Logger, ProgressEvery: cfg.Graph.ProgressEvery})
	g, err := b.Build(ctx, st.Intersections(intersections))
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built network with %d edges", g.EdgeCount()))

	if opts.decorate {
		n, err := network.Decorate(ctx, g, st.Islands(cfg.Datasets.Islands))
		if err != nil {
			return err
		}
		c.Logger.Info("decorated nodes", "count", n, "of", g.NodeCount())
	}

	lines := export.Lines(g)
	if err := st.Network(output).Write(ctx, lines, overwrite); err != nil {
		return err
	}

	graphPath := opts.graph
	if graphPath == "" {
		graphPath = filepath.Join(cfg.Workspace, output+".json")
	}
	if err := network.WriteGraphFile(g, graphPath); err != nil {
		return err
	}

	stats := b.Stats()
	printSuccess("Network %s: %s nodes, %s edges", StyleValue.Render(output),
		StyleNumber.Render(fmt.Sprint(g.NodeCount())), StyleNumber.Render(fmt.Sprint(g.EdgeCount())))
	printDetail("%d rows, %d self-pairs, %d accumulated, %d skipped for missing points",
		stats.Rows, stats.SelfLoops, stats.Accumulated, stats.SkippedPairs)
	printFile(graphPath)

	if opts.geojson != "" {
		if err := export.WriteGeoJSONFile(opts.geojson, lines); err != nil {
			return err
		}
		printFile(opts.geojson)
	}

	if opts.mongo {
		if err := c.writeMongo(ctx, cfg.Mongo, lines, overwrite); err != nil {
			return err
		}
		printDetail("Mongo: %s.%s", cfg.Mongo.Database, cfg.Mongo.Collection)
	}

	printNextStep("Render it", fmt.Sprintf("%s render %s %s", appName, workspace, graphPath))
	return nil
}

func (c *CLI) writeMongo(ctx context.Context, cfg export.MongoConfig, lines []export.LineFeature, overwrite bool) error {
	sink, err := export.NewMongoSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close(context.WithoutCancel(ctx))
	return sink.Write(ctx, lines, overwrite)
}
