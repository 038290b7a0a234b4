// Package config holds the run configuration of intervis.
//
// A Config is built once at startup and passed explicitly to every
// component. Sources are applied in order, later ones winning:
//
//  1. [Default] values derived from the workspace directory
//  2. <workspace>/intervis.toml
//  3. <workspace>/.env
//  4. INTERVIS_* environment variables
//
// Command-line flags are applied by the caller on top of the loaded value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/intervis/pkg/artifact"
	"github.com/matzehuels/intervis/pkg/cache"
	"github.com/matzehuels/intervis/pkg/engine"
	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observer"
	"github.com/matzehuels/intervis/pkg/store"
	"github.com/matzehuels/intervis/pkg/viewshed"
)

// File names looked up in the workspace.
const (
	FileName = "intervis.toml"
	EnvFile  = ".env"
)

// Driver names for artifacts, cache and engine.
const (
	ArtifactsFS = "fs"
	ArtifactsS3 = "s3"

	CacheFile  = "file"
	CacheNull  = "null"
	CacheRedis = "redis"

	EngineCommand = "command"
	EngineHorizon = "horizon"
)

// Config is the complete run configuration.
type Config struct {
	Workspace string             `toml:"-"`
	Store     store.Config       `toml:"store"`
	Artifacts ArtifactsConfig    `toml:"artifacts"`
	Cache     CacheConfig        `toml:"cache"`
	Batch     BatchConfig        `toml:"batch"`
	Params    engine.Params      `toml:"params"`
	Engine    EngineConfig       `toml:"engine"`
	Graph     GraphConfig        `toml:"graph"`
	Datasets  DatasetsConfig     `toml:"datasets"`
	Mongo     export.MongoConfig `toml:"mongo"`
	Server    ServerConfig       `toml:"server"`
}

type ArtifactsConfig struct {
	Driver string            `toml:"driver"`
	Dir    string            `toml:"dir"`
	S3     artifact.S3Config `toml:"s3"`
}

type CacheConfig struct {
	Driver string            `toml:"driver"`
	Dir    string            `toml:"dir"`
	Redis  cache.RedisConfig `toml:"redis"`
}

type BatchConfig struct {
	Size      int  `toml:"size"`
	SaveEvery int  `toml:"save_every"`
	LogEvery  int  `toml:"log_every"`
	Overwrite bool `toml:"overwrite"`
}

type EngineConfig struct {
	Driver   string        `toml:"driver"`
	Path     string        `toml:"path"`
	Args     []string      `toml:"args"`
	Timeout  time.Duration `toml:"timeout"`
	Surface  string        `toml:"surface"`
	CellSize float64       `toml:"cell_size"` // horizon engine only
}

type GraphConfig struct {
	ProgressEvery int `toml:"progress_every"`
}

// DatasetsConfig names the store tables used by the viewshed pipeline and
// node decoration.
type DatasetsConfig struct {
	Observers string `toml:"observers"`
	Viewsheds string `toml:"viewsheds"`
	Islands   string `toml:"islands"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when nothing else is set.
func Default(workspace string) Config {
	cacheDir, err := cache.DefaultDir()
	if err != nil {
		cacheDir = filepath.Join(workspace, ".cache")
	}
	return Config{
		Workspace: workspace,
		Store:     store.Config{Driver: store.DriverSQLite, DSN: filepath.Join(workspace, "intervis.db")},
		Artifacts: ArtifactsConfig{Driver: ArtifactsFS, Dir: filepath.Join(workspace, "artifacts")},
		Cache:     CacheConfig{Driver: CacheFile, Dir: cacheDir},
		Batch: BatchConfig{
			Size:      observer.DefaultBatchSize,
			SaveEvery: viewshed.DefaultSaveEvery,
			LogEvery:  viewshed.DefaultLogEvery,
		},
		Params:   engine.DefaultParams(),
		Engine:   EngineConfig{Driver: EngineHorizon, Timeout: 30 * time.Minute, CellSize: 50},
		Graph:    GraphConfig{ProgressEvery: network.DefaultProgressEvery},
		Datasets: DatasetsConfig{Observers: "observers", Viewsheds: "viewsheds", Islands: "islands"},
		Mongo:    export.MongoConfig{Database: "intervis", Collection: "network"},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration for workspace. Missing files are skipped.
func Load(workspace string) (Config, error) {
	cfg := Default(workspace)

	path := filepath.Join(workspace, FileName)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	}

	dotenv := map[string]string{}
	envPath := filepath.Join(workspace, EnvFile)
	if _, err := os.Stat(envPath); err == nil {
		dotenv, err = godotenv.Read(envPath)
		if err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", envPath)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	cfg.Workspace = workspace
	return cfg, cfg.Validate()
}

// applyEnv overlays the INTERVIS_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var firstErr error
	parse := func(key string, set func(string) error) {
		v, ok := lookup(key)
		if !ok || firstErr != nil {
			return
		}
		if err := set(v); err != nil {
			firstErr = errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s=%q", key, v)
		}
	}
	integer := func(dst *int) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.Atoi(v); return }
	}
	float := func(dst *float64) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.ParseFloat(v, 64); return }
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) (err error) { *dst, err = strconv.ParseBool(v); return }
	}

	str("INTERVIS_STORE_DRIVER", &cfg.Store.Driver)
	str("INTERVIS_STORE_DSN", &cfg.Store.DSN)
	str("INTERVIS_ARTIFACTS_DRIVER", &cfg.Artifacts.Driver)
	str("INTERVIS_ARTIFACTS_DIR", &cfg.Artifacts.Dir)
	str("INTERVIS_S3_BUCKET", &cfg.Artifacts.S3.Bucket)
	str("INTERVIS_S3_PREFIX", &cfg.Artifacts.S3.Prefix)
	str("INTERVIS_S3_REGION", &cfg.Artifacts.S3.Region)
	str("INTERVIS_S3_ENDPOINT", &cfg.Artifacts.S3.Endpoint)
	parse("INTERVIS_S3_PATH_STYLE", boolean(&cfg.Artifacts.S3.PathStyle))
	str("INTERVIS_CACHE_DRIVER", &cfg.Cache.Driver)
	str("INTERVIS_CACHE_DIR", &cfg.Cache.Dir)
	str("INTERVIS_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	str("INTERVIS_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	parse("INTERVIS_REDIS_DB", integer(&cfg.Cache.Redis.DB))
	parse("INTERVIS_BATCH_SIZE", integer(&cfg.Batch.Size))
	parse("INTERVIS_SAVE_EVERY", integer(&cfg.Batch.SaveEvery))
	parse("INTERVIS_LOG_EVERY", integer(&cfg.Batch.LogEvery))
	parse("INTERVIS_OVERWRITE", boolean(&cfg.Batch.Overwrite))
	parse("INTERVIS_OUTER_RADIUS", float(&cfg.Params.OuterRadius))
	parse("INTERVIS_OBSERVER_OFFSET", float(&cfg.Params.ObserverOffset))
	parse("INTERVIS_REFRACTION", float(&cfg.Params.Refraction))
	str("INTERVIS_ENGINE_DRIVER", &cfg.Engine.Driver)
	str("INTERVIS_ENGINE_PATH", &cfg.Engine.Path)
	parse("INTERVIS_ENGINE_TIMEOUT", func(v string) (err error) { cfg.Engine.Timeout, err = time.ParseDuration(v); return })
	str("INTERVIS_SURFACE", &cfg.Engine.Surface)
	parse("INTERVIS_PROGRESS_EVERY", integer(&cfg.Graph.ProgressEvery))
	str("INTERVIS_OBSERVERS_DATASET", &cfg.Datasets.Observers)
	str("INTERVIS_VIEWSHEDS_DATASET", &cfg.Datasets.Viewsheds)
	str("INTERVIS_ISLANDS_DATASET", &cfg.Datasets.Islands)
	str("INTERVIS_MONGO_URI", &cfg.Mongo.URI)
	str("INTERVIS_MONGO_DATABASE", &cfg.Mongo.Database)
	str("INTERVIS_MONGO_COLLECTION", &cfg.Mongo.Collection)
	str("INTERVIS_SERVER_ADDR", &cfg.Server.Addr)
	return firstErr
}

// Validate checks driver names, sizes and dataset names.
func (c Config) Validate() error {
	switch c.Artifacts.Driver {
	case ArtifactsFS:
		if c.Artifacts.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "artifacts.dir is required for the fs driver")
		}
	case ArtifactsS3:
		if c.Artifacts.S3.Bucket == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "artifacts.s3.bucket is required for the s3 driver")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown artifacts driver %q", c.Artifacts.Driver)
	}

	switch c.Cache.Driver {
	case CacheFile, CacheNull:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis driver")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache driver %q", c.Cache.Driver)
	}

	switch c.Engine.Driver {
	case EngineHorizon:
		if c.Engine.CellSize <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "engine.cell_size must be positive")
		}
	case EngineCommand:
		if c.Engine.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "engine.path is required for the command driver")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown engine driver %q", c.Engine.Driver)
	}

	if c.Batch.Size < 1 || c.Batch.Size > observer.MaxBatchSize {
		return errors.New(errors.ErrCodeInvalidConfig,
			"batch.size %d must lie within 1..%d", c.Batch.Size, observer.MaxBatchSize)
	}
	for _, name := range []string{c.Datasets.Observers, c.Datasets.Viewsheds, c.Datasets.Islands} {
		if err := errors.ValidateDatasetName(name); err != nil {
			return fmt.Errorf("datasets: %w", err)
		}
	}
	return c.Params.Validate()
}

// ViewshedOptions returns pipeline options for this configuration.
func (c Config) ViewshedOptions() viewshed.Options {
	return viewshed.Options{
		BatchSize: c.Batch.Size,
		SaveEvery: c.Batch.SaveEvery,
		LogEvery:  c.Batch.LogEvery,
		Overwrite: c.Batch.Overwrite,
		Params:    c.Params,
		Surface:   c.Engine.Surface,
	}
}
