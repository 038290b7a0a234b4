// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; the defaults are
// no-ops, so nothing is recorded unless main installs an implementation
// (see package prom for the Prometheus one). Hooks are registered by main
// rather than by libraries, which keeps backend imports out of the core
// packages.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(prom.NewPipelineHooks(reg))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnBatchSealed(ctx, batch, observers)
//	// ... invoke the engine ...
//	observability.Pipeline().OnEngineComplete(ctx, batch, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the viewshed pipeline.
type PipelineHooks interface {
	// Batch events
	OnBatchSealed(ctx context.Context, batch, observers int)
	OnBatchReused(ctx context.Context, batch int)
	OnEngineComplete(ctx context.Context, batch int, duration time.Duration, err error)

	// Decode events
	OnObserverDecoded(ctx context.Context, batch, index int)
	OnObserverFailed(ctx context.Context, batch, index int, err error)

	// OnCheckpoint records a durable flush of decoded viewsheds.
	OnCheckpoint(ctx context.Context, written int, maxPointID int64)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from the visibility graph builder.
type GraphHooks interface {
	// OnTripleSkipped records a dropped row; reason is "self_loop" or "missing_centroid".
	OnTripleSkipped(ctx context.Context, reason string)

	// OnGraphBuilt records a completed build.
	OnGraphBuilt(ctx context.Context, rows, nodes, edges int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnBatchSealed(context.Context, int, int)                     {}
func (NoopPipelineHooks) OnBatchReused(context.Context, int)                          {}
func (NoopPipelineHooks) OnEngineComplete(context.Context, int, time.Duration, error) {}
func (NoopPipelineHooks) OnObserverDecoded(context.Context, int, int)                 {}
func (NoopPipelineHooks) OnObserverFailed(context.Context, int, int, error)           {}
func (NoopPipelineHooks) OnCheckpoint(context.Context, int, int64)                    {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnTripleSkipped(context.Context, string) {}
func (NoopGraphHooks) OnGraphBuilt(context.Context, int, int, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	graphHooks    GraphHooks    = NoopGraphHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetGraphHooks registers custom graph builder hooks.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	graphHooks = NoopGraphHooks{}
	cacheHooks = NoopCacheHooks{}
}
