// Package interpolation samples raster images at fractional pixel coordinates.
package interpolation

import (
	"math"

	"itastack/internal/models"
)

// Bilinear returns the value of r at column x, row y by linear interpolation
// between the four surrounding pixels. Points outside [0, Width-1] x
// [0, Height-1] yield 0.
func Bilinear(r models.Raster, x, y float64) float64 {
	if r.Width == 0 || r.Height == 0 {
		return 0
	}
	if x < 0 || y < 0 || x > float64(r.Width-1) || y > float64(r.Height-1) {
		return 0
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, r.Width-1), min(y0+1, r.Height-1)
	fx, fy := x-float64(x0), y-float64(y0)

	top := r.At(x0, y0)*(1-fx) + r.At(x1, y0)*fx
	bottom := r.At(x0, y1)*(1-fx) + r.At(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Line samples r at n evenly spaced points from (x1, y1) to (x2, y2).
func Line(r models.Raster, x1, y1, x2, y2 float64, n int) []float64 {
	xs := Linspace(x1, x2, n)
	ys := Linspace(y1, y2, n)
	out := make([]float64, n)
	for i := range out {
		out[i] = Bilinear(r, xs[i], ys[i])
	}
	return out
}
