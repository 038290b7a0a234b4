package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/intervis/pkg/errors"
)

// GeoJSON property names.
const (
	PropIslandA = "island_A"
	PropIslandB = "island_B"
	PropWeight  = "A_sees_B"
)

// FeatureCollection builds a GeoJSON collection with one LineString feature
// per line.
func FeatureCollection(lines []LineFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range lines {
		f := geojson.NewFeature(l.Line())
		f.Properties[PropIslandA] = l.From
		f.Properties[PropIslandB] = l.To
		f.Properties[PropWeight] = l.Weight
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes lines as a FeatureCollection to w.
func WriteGeoJSON(w io.Writer, lines []LineFeature) error {
	data, err := json.MarshalIndent(FeatureCollection(lines), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

// WriteGeoJSONFile writes lines to a GeoJSON file at path.
func WriteGeoJSONFile(path string, lines []LineFeature) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGeoJSON(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGeoJSON parses a FeatureCollection previously written by WriteGeoJSON.
func ReadGeoJSON(r io.Reader) ([]LineFeature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse geojson")
	}

	out := make([]LineFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok || len(ls) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "feature %d: expected two-point LineString", i)
		}
		a, okA := intProp(f.Properties, PropIslandA)
		b, okB := intProp(f.Properties, PropIslandB)
		if !okA || !okB {
			return nil, errors.New(errors.ErrCodeInvalidInput, "feature %d: missing island ids", i)
		}
		out = append(out, LineFeature{
			From:   a,
			To:     b,
			Weight: f.Properties.MustFloat64(PropWeight, 0),
			Origin: ls[0],
			Dest:   ls[1],
		})
	}
	return out, nil
}

// intProp reads an integer property; JSON decoding yields float64.
func intProp(p geojson.Properties, key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
