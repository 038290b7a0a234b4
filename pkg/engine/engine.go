// Package engine defines the contract with the external visibility engine.
//
// An [Engine] receives one batch of at most 32 observers and returns a single
// combined raster in which bit i of every pixel is the visibility of observer
// i (see package bitplane). The same [Params] apply to every observer in a
// batch; decoding depends on that uniformity, so Params carry no per-observer
// fields.
package engine

import (
	"context"

	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observer"
)

// Engine computes the combined visibility raster for a batch.
// Implementations may block for minutes; they should honor ctx.
type Engine interface {
	Compute(ctx context.Context, req Request) (*bitplane.Raster, error)
}

// Func adapts a function to the Engine interface.
type Func func(ctx context.Context, req Request) (*bitplane.Raster, error)

// Compute calls f.
func (f Func) Compute(ctx context.Context, req Request) (*bitplane.Raster, error) {
	return f(ctx, req)
}

// Request is one batch submission.
type Request struct {
	Batch     int               `json:"batch"`
	Observers []RequestObserver `json:"observers"`
	Params    Params            `json:"params"`
	Surface   string            `json:"surface,omitempty"`
	members   []observer.Observer
}

// RequestObserver is an observer as seen by the engine, with its bit plane.
type RequestObserver struct {
	Index   int     `json:"index"`
	PointID int64   `json:"point_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// NewRequest builds the submission for a sealed batch.
func NewRequest(b observer.Batch, params Params, surface string) (Request, error) {
	if b.Len() == 0 {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "batch %d is empty", b.Number)
	}
	if b.Len() > bitplane.Planes {
		return Request{}, errors.New(errors.ErrCodeInvalidInput,
			"batch %d has %d observers, max %d", b.Number, b.Len(), bitplane.Planes)
	}
	req := Request{
		Batch:     b.Number,
		Observers: make([]RequestObserver, b.Len()),
		Params:    params,
		Surface:   surface,
		members:   b.Observers,
	}
	for i, o := range b.Observers {
		req.Observers[i] = RequestObserver{
			Index:   b.Index(i),
			PointID: o.PointID,
			X:       o.Shape.X(),
			Y:       o.Shape.Y(),
			Z:       o.Z,
		}
	}
	return req, nil
}

// Members returns the batch observers the request was built from.
func (r Request) Members() []observer.Observer { return r.members }
