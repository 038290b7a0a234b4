package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/errors"
)

// Placeholders substituted in Command arguments.
const (
	RequestPlaceholder = "{request}"
	OutputPlaceholder  = "{output}"
)

// Command runs an external executable per batch.
//
// The request is written as JSON to a temporary file and the executable is
// expected to write a BPR1 raster to the output path. Any non-zero exit,
// timeout, or unreadable output is ENGINE_FAILED.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
	TempDir string
	Logger  *log.Logger
}

// NewCommand creates a command engine. args may reference {request} and {output}.
func NewCommand(path string, args []string, timeout time.Duration, logger *log.Logger) *Command {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Command{Path: path, Args: args, Timeout: timeout, Logger: logger}
}

// Compute runs the executable for one batch.
func (c *Command) Compute(ctx context.Context, req Request) (*bitplane.Raster, error) {
	if c.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "engine command not configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	base := filepath.Join(dir, "intervis-"+uuid.NewString())
	reqPath, outPath := base+".json", base+".bpr"
	defer os.Remove(reqPath)
	defer os.Remove(outPath)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode engine request")
	}
	if err := os.WriteFile(reqPath, data, 0o600); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "write engine request")
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		a = strings.ReplaceAll(a, RequestPlaceholder, reqPath)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, outPath)
	}

	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	c.Logger.Debug("invoking engine", "batch", req.Batch, "observers", len(req.Observers), "cmd", c.Path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err,
			"engine failed on batch %d: %s", req.Batch, tail(stderr.String(), 512))
	}
	c.Logger.Debug("engine finished", "batch", req.Batch, "took", time.Since(start).Round(time.Millisecond))

	f, err := os.Open(outPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "engine produced no raster for batch %d", req.Batch)
	}
	defer f.Close()

	r, err := bitplane.ReadRaster(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "engine raster for batch %d", req.Batch)
	}
	return r, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

var _ Engine = (*Command)(nil)
