package artifact

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/intervis/pkg/bitplane"
	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/observer"
)

// HasBatch reports whether both artifacts of batch n are present.
func HasBatch(ctx context.Context, s Store, n int) (bool, error) {
	for _, key := range []string{RasterKey(n), ObserversKey(n)} {
		ok, err := s.Exists(ctx, key)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Matches reports whether a stored observer table describes batch b: the
// same number, size and members in the same order. Rasters saved for a
// different batch size or observers dataset fail this check.
func Matches(stored, b observer.Batch) bool {
	if stored.Number != b.Number || stored.Size != b.Size || len(stored.Observers) != len(b.Observers) {
		return false
	}
	for i := range b.Observers {
		if stored.Observers[i] != b.Observers[i] {
			return false
		}
	}
	return true
}

// SaveBatch writes the observer table and raster of a batch. The observer
// table is written last so HasBatch only reports complete batches.
func SaveBatch(ctx context.Context, s Store, b observer.Batch, r *bitplane.Raster) error {
	raster, err := bitplane.MarshalRaster(r)
	if err != nil {
		return err
	}
	table, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode batch %d observers", b.Number)
	}
	if err := s.Put(ctx, RasterKey(b.Number), raster); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "save raster for batch %d", b.Number)
	}
	if err := s.Put(ctx, ObserversKey(b.Number), table); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "save observers for batch %d", b.Number)
	}
	return nil
}

// LoadRaster reads the stored raster of batch n.
func LoadRaster(ctx context.Context, s Store, n int) (*bitplane.Raster, error) {
	data, err := s.Get(ctx, RasterKey(n))
	if err != nil {
		return nil, err
	}
	return bitplane.UnmarshalRaster(data)
}

// LoadBatch reads the stored observer table of batch n.
func LoadBatch(ctx context.Context, s Store, n int) (observer.Batch, error) {
	data, err := s.Get(ctx, ObserversKey(n))
	if err != nil {
		return observer.Batch{}, err
	}
	var b observer.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return observer.Batch{}, errors.Wrap(errors.ErrCodeDecodeFailed, err, "decode batch %d observers", n)
	}
	return b, nil
}
