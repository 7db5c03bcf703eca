package reconstruction

import (
	"fmt"
	"math"

	"itastack/internal/models"
	"itastack/pkg/interpolation"
)

// Point is a position in pixel coordinates of an aggregated image, with y
// counted from the bottom of the field of view.
type Point struct {
	X, Y float64
}

// Profile samples, for every scan, the mass-aggregated image along the segment
// p1-p2 and returns one row of samples per scan.
//
// samples <= 0 selects round(|p2-p1|)+1 points. Intensities between pixels are
// interpolated bilinearly.
func (r *Reconstructor) Profile(p1, p2 Point, masses []float64, samples int) ([][]float64, error) {
	_, sy := r.stack.Dims()

	// display orientation: row = height-1-y
	y1 := float64(sy-1) - p1.Y
	y2 := float64(sy-1) - p2.Y

	if samples <= 0 {
		samples = int(math.Round(math.Hypot(p2.X-p1.X, y2-y1))) + 1
	}

	out := make([][]float64, r.stack.Scans())
	for s := range out {
		img, _, err := r.SumByMass(masses, []int{s})
		if err != nil {
			return nil, fmt.Errorf("profile of scan %d: %w", s, err)
		}
		out[s] = interpolation.Line(img.Raster, p1.X, y1, p2.X, y2, samples)
	}
	return out, nil
}

// ProfileImage returns a profile as a raster with one row per scan.
func ProfileImage(profile [][]float64) models.Raster {
	if len(profile) == 0 {
		return models.Raster{}
	}
	out := models.NewRaster(len(profile[0]), len(profile))
	for s, row := range profile {
		copy(out.Row(s), row)
	}
	return out
}
