package stack

import (
	"fmt"
	"math"
	"strings"

	"itastack/internal/models"
)

// ShiftMode selects how the rows and columns that wrap around during a
// registration shift are treated.
type ShiftMode int

const (
	// Roll keeps the wrapped-in pixels (cyclic translation).
	Roll ShiftMode = iota
	// Const overwrites wrapped-in pixels with ShiftOptions.Fill.
	Const
	// NaN overwrites wrapped-in pixels with NaN.
	NaN
)

func (m ShiftMode) String() string {
	switch m {
	case Roll:
		return "roll"
	case Const:
		return "const"
	case NaN:
		return "nan"
	}
	return fmt.Sprintf("ShiftMode(%d)", int(m))
}

// ParseShiftMode parses "roll", "const" or "nan" (case insensitive).
func ParseShiftMode(s string) (ShiftMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roll", "":
		return Roll, nil
	case "const":
		return Const, nil
	case "nan":
		return NaN, nil
	}
	return Roll, &models.ConfigError{Field: "shift mode", Msg: fmt.Sprintf("unknown mode %q", s)}
}

// ShiftOptions is the registration applied by GetImage.
type ShiftOptions struct {
	// Table holds one shift per scan
	Table models.ShiftTable

	// Mode selects the edge policy
	Mode ShiftMode

	// Fill is the constant written by Const mode. Required for Const.
	Fill *float64
}

// fillValue returns the value written into wrapped-in pixels and whether any
// overwrite happens at all.
func (o *ShiftOptions) fillValue() (float64, bool, error) {
	switch o.Mode {
	case Roll:
		return 0, false, nil
	case NaN:
		return math.NaN(), true, nil
	case Const:
		if o.Fill == nil {
			return 0, false, &models.ConfigError{Field: "shift fill", Msg: "const mode requires a fill constant"}
		}
		return *o.Fill, true, nil
	}
	return 0, false, &models.ConfigError{Field: "shift mode", Msg: o.Mode.String()}
}

// applyShift translates r by s: out[y][x] = in[(y+dy) mod h][(x+dx) mod w].
// When fill is set, the |dy| rows and |dx| columns that wrapped around are
// overwritten with v. An offset at least as large as the dimension blanks the
// whole raster.
func applyShift(r models.Raster, s models.Shift, fill bool, v float64) models.Raster {
	w, h := r.Width, r.Height
	out := models.NewRaster(w, h)
	if w == 0 || h == 0 {
		return out
	}
	ox, oy := mod(s.DX, w), mod(s.DY, h)
	for y := 0; y < h; y++ {
		src := r.Row((y + oy) % h)
		dst := out.Row(y)
		// two copies per row instead of a modulo per pixel
		n := copy(dst, src[ox:])
		copy(dst[n:], src[:ox])
	}
	if !fill {
		return out
	}

	var y0, y1, x0, x1 int
	switch {
	case s.DY < 0:
		y0, y1 = 0, min(-s.DY, h)
	case s.DY > 0:
		y0, y1 = max(h-s.DY, 0), h
	}
	switch {
	case s.DX < 0:
		x0, x1 = 0, min(-s.DX, w)
	case s.DX > 0:
		x0, x1 = max(w-s.DX, 0), w
	}
	for y := y0; y < y1; y++ {
		row := out.Row(y)
		for x := range row {
			row[x] = v
		}
	}
	if x1 > x0 {
		for y := 0; y < h; y++ {
			row := out.Row(y)
			for x := x0; x < x1; x++ {
				row[x] = v
			}
		}
	}
	return out
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
