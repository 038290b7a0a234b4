package bitplane

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
)

// Magic identifies the BPR1 raster layout.
var Magic = [4]byte{'B', 'P', 'R', '1'}

type header struct {
	Magic    [4]byte
	Width    uint32
	Height   uint32
	OriginX  float64
	OriginY  float64
	CellSize float64
}

// maxPixels bounds allocation when reading untrusted headers.
const maxPixels = 1 << 28

// WriteRaster writes r in the BPR1 layout.
func WriteRaster(w io.Writer, r *Raster) error {
	if err := r.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	h := header{
		Magic:    Magic,
		Width:    uint32(r.Width),
		Height:   uint32(r.Height),
		OriginX:  r.Origin.X(),
		OriginY:  r.Origin.Y(),
		CellSize: r.CellSize,
	}
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write raster header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, r.Pixels); err != nil {
		return fmt.Errorf("write raster pixels: %w", err)
	}
	return bw.Flush()
}

// ReadRaster reads a BPR1 raster.
func ReadRaster(rd io.Reader) (*Raster, error) {
	br := bufio.NewReader(rd)
	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "read raster header")
	}
	if h.Magic != Magic {
		return nil, errors.New(errors.ErrCodeDecodeFailed, "not a BPR1 raster (magic %q)", h.Magic[:])
	}
	n := uint64(h.Width) * uint64(h.Height)
	if n == 0 || n > maxPixels {
		return nil, errors.New(errors.ErrCodeDecodeFailed, "invalid raster size %dx%d", h.Width, h.Height)
	}
	if math.IsNaN(h.CellSize) || h.CellSize <= 0 {
		return nil, errors.New(errors.ErrCodeDecodeFailed, "invalid cell size %v", h.CellSize)
	}

	r := &Raster{
		Width:    int(h.Width),
		Height:   int(h.Height),
		Origin:   orb.Point{h.OriginX, h.OriginY},
		CellSize: h.CellSize,
		Pixels:   make([]int32, n),
	}
	if err := binary.Read(br, binary.LittleEndian, r.Pixels); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecodeFailed, err, "read raster pixels")
	}
	return r, nil
}

// MarshalRaster returns r encoded as BPR1.
func MarshalRaster(r *Raster) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRaster(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRaster decodes a BPR1 raster.
func UnmarshalRaster(data []byte) (*Raster, error) {
	return ReadRaster(bytes.NewReader(data))
}
