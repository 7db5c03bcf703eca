// Package registration estimates the drift between the scans of an image stack
// by cross-correlating per-scan images in the frequency domain.
package registration

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"itastack/internal/models"
	"itastack/pkg/reconstruction"
	"itastack/pkg/stack"
)

// Estimator computes shift tables for an image stack.
type Estimator struct {
	rec      *reconstruction.Reconstructor
	filter   Filter
	recenter bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithFilter sets the transform applied to every scan image before correlation.
func WithFilter(f Filter) Option {
	return func(e *Estimator) {
		e.filter = f
	}
}

// WithRecenter controls whether the mean shift is removed from the table.
// Enabled by default.
func WithRecenter(on bool) Option {
	return func(e *Estimator) {
		e.recenter = on
	}
}

// NewEstimator creates an estimator reading images through rec. Images are
// read without any shift correction, whatever rec is configured with.
func NewEstimator(rec *reconstruction.Reconstructor, opts ...Option) *Estimator {
	e := &Estimator{
		rec:      rec.WithShift(nil),
		filter:   Identity,
		recenter: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ByMass estimates one shift per scan from the sum of the channels containing
// masses.
func (e *Estimator) ByMass(masses []float64) (models.ShiftTable, error) {
	return e.estimate(func(scan int) (models.Raster, error) {
		img, _, err := e.rec.SumByMassRaw(masses, []int{scan})
		return img, err
	})
}

// ByName estimates one shift per scan from the sum of the channels matching names.
func (e *Estimator) ByName(names []string, strict bool) (models.ShiftTable, error) {
	return e.estimate(func(scan int) (models.Raster, error) {
		img, _, err := e.rec.SumByName(names, []int{scan}, strict)
		if err != nil {
			return models.Raster{}, err
		}
		// undo the display flip, tables apply to GetImage orientation
		return img.FlipUD(), nil
	})
}

func (e *Estimator) estimate(scanImage func(int) (models.Raster, error)) (models.ShiftTable, error) {
	nscan := e.rec.Stack().Scans()
	if nscan == 0 {
		return models.ShiftTable{}, nil
	}

	ref, err := e.filtered(scanImage, 0)
	if err != nil {
		return nil, err
	}
	plan := newFFT2(ref.Width, ref.Height)
	refFreq := plan.forward(ref.Pix)
	for i := range refFreq {
		refFreq[i] = cmplx.Conj(refFreq[i])
	}

	table := make(models.ShiftTable, nscan)
	for s := 1; s < nscan; s++ {
		img, err := e.filtered(scanImage, s)
		if err != nil {
			return nil, err
		}
		table[s] = correlate(plan, refFreq, img)
	}

	if e.recenter {
		table = Recenter(table)
	}
	return table, nil
}

func (e *Estimator) filtered(scanImage func(int) (models.Raster, error), scan int) (models.Raster, error) {
	img, err := scanImage(scan)
	if err != nil {
		return models.Raster{}, fmt.Errorf("image of scan %d: %w", scan, err)
	}
	out := e.filter(img)
	if out.Width != img.Width || out.Height != img.Height || len(out.Pix) != len(img.Pix) {
		return models.Raster{}, &models.ConfigError{
			Field: "filter",
			Msg:   fmt.Sprintf("changed image shape from %dx%d to %dx%d", img.Width, img.Height, out.Width, out.Height),
		}
	}
	return out, nil
}

// correlate returns the offset of the cross-correlation peak between the
// reference (given as its conjugate spectrum) and img. Ties resolve to the
// first maximum in row-major order.
func correlate(plan *fft2, refConj []complex128, img models.Raster) models.Shift {
	freq := plan.forward(img.Pix)
	for i := range freq {
		freq[i] *= refConj[i]
	}
	plan.inverse(freq)

	corr := make([]float64, len(freq))
	for i, c := range freq {
		corr[i] = real(c)
	}
	corr = fftshift(corr, img.Width, img.Height)

	peak := floats.MaxIdx(corr)
	row, col := peak/img.Width, peak%img.Width
	return models.Shift{DX: col - img.Width/2, DY: row - img.Height/2}
}

// Recenter subtracts the mean shift, rounded half to even per axis, from
// every entry.
func Recenter(t models.ShiftTable) models.ShiftTable {
	if len(t) == 0 {
		return t
	}
	dx := make([]float64, len(t))
	dy := make([]float64, len(t))
	for i, s := range t {
		dx[i] = float64(s.DX)
		dy[i] = float64(s.DY)
	}
	mx := math.RoundToEven(stat.Mean(dx, nil))
	my := math.RoundToEven(stat.Mean(dy, nil))
	return t.Recentered(int(mx), int(my))
}

// Apply wraps a table into shift options for the stack reader.
func Apply(t models.ShiftTable, mode stack.ShiftMode, fill *float64) *stack.ShiftOptions {
	return &stack.ShiftOptions{Table: t, Mode: mode, Fill: fill}
}
