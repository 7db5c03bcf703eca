package registration

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"itastack/internal/logging"
	"itastack/internal/models"
	"itastack/pkg/channels"
	"itastack/pkg/reconstruction"
	"itastack/pkg/stack"
	"itastack/pkg/synth"
)

const naMass = 22.99

// newDrifting builds a reconstructor over a synthetic measurement drifting by drift.
func newDrifting(t *testing.T, sx, sy int, drift models.ShiftTable) *reconstruction.Reconstructor {
	t.Helper()
	b, err := synth.Drifting(sx, sy, drift, 42)
	if err != nil {
		t.Fatalf("Failed to build measurement: %v", err)
	}
	st, err := stack.Open(b.Tree, stack.WithLogger(logging.Nop()))
	if err != nil {
		t.Fatalf("Failed to open stack: %v", err)
	}
	table, err := channels.Parse(b.Tree)
	if err != nil {
		t.Fatalf("Failed to parse peaks: %v", err)
	}
	nop := logging.Nop()
	return reconstruction.NewReconstructor(st, table, &reconstruction.Params{NumCores: 2, Logger: &nop})
}

func assertTable(t *testing.T, got, want models.ShiftTable) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d shifts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Shift %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

// TestFFTRoundTrip tests that the inverse transform restores the input
func TestFFTRoundTrip(t *testing.T) {
	w, h := 6, 5
	rng := rand.New(rand.NewSource(1))
	data := make([]float64, w*h)
	for i := range data {
		data[i] = rng.Float64()
	}

	plan := newFFT2(w, h)
	freq := plan.forward(data)
	plan.inverse(freq)

	for i, v := range freq {
		if math.Abs(real(v)-data[i]) > 1e-9 || math.Abs(imag(v)) > 1e-9 {
			t.Fatalf("Element %d: expected %v, got %v", i, data[i], v)
		}
	}
}

// TestFFTShift tests that the zero-lag element moves to the array centre
func TestFFTShift(t *testing.T) {
	w, h := 4, 3
	data := make([]float64, w*h)
	data[0] = 1
	data[w*h-1] = 2

	out := fftshift(data, w, h)
	if out[1*w+2] != 1 {
		t.Errorf("Expected zero lag at (1, 2), got %v", out)
	}
	// last element (row 2, col 3) is lag (-1, -1)
	if out[0*w+1] != 2 {
		t.Errorf("Expected lag (-1, -1) at (0, 1), got %v", out)
	}
}

// TestByMassRecoversDrift tests that the estimated table equals the applied drift
func TestByMassRecoversDrift(t *testing.T) {
	drift := models.ShiftTable{{DX: 0, DY: 0}, {DX: 3, DY: -2}, {DX: -5, DY: 4}, {DX: 1, DY: 7}}
	rec := newDrifting(t, 32, 24, drift)

	est := NewEstimator(rec, WithRecenter(false))
	table, err := est.ByMass([]float64{naMass})
	if err != nil {
		t.Fatalf("ByMass failed: %v", err)
	}
	assertTable(t, table, drift)
}

// TestCorrectedScansAlign tests that applying the estimated table aligns every scan with scan 0
func TestCorrectedScansAlign(t *testing.T) {
	drift := models.ShiftTable{{DX: 0, DY: 0}, {DX: 2, DY: 1}, {DX: -3, DY: -3}}
	rec := newDrifting(t, 16, 16, drift)

	table, err := NewEstimator(rec, WithRecenter(false)).ByMass([]float64{naMass})
	if err != nil {
		t.Fatalf("ByMass failed: %v", err)
	}
	corrected := rec.WithShift(Apply(table, stack.Roll, nil))

	ref, _, err := corrected.SumByMassRaw([]float64{naMass}, []int{0})
	if err != nil {
		t.Fatalf("SumByMassRaw failed: %v", err)
	}
	for s := 1; s < len(drift); s++ {
		img, _, err := corrected.SumByMassRaw([]float64{naMass}, []int{s})
		if err != nil {
			t.Fatalf("SumByMassRaw failed: %v", err)
		}
		for i := range ref.Pix {
			if img.Pix[i] != ref.Pix[i] {
				t.Fatalf("Scan %d differs from scan 0 at pixel %d: %v != %v", s, i, img.Pix[i], ref.Pix[i])
			}
		}
	}
}

// TestIdenticalScans tests that a stack without drift yields an all-zero table
func TestIdenticalScans(t *testing.T) {
	rec := newDrifting(t, 16, 12, make(models.ShiftTable, 4))

	table, err := NewEstimator(rec).ByMass([]float64{naMass})
	if err != nil {
		t.Fatalf("ByMass failed: %v", err)
	}
	assertTable(t, table, make(models.ShiftTable, 4))
}

// TestByNameMatchesByMass tests that selecting the same channel by name gives the same table
func TestByNameMatchesByMass(t *testing.T) {
	drift := models.ShiftTable{{DX: 0, DY: 0}, {DX: 1, DY: 2}, {DX: -2, DY: 3}}
	rec := newDrifting(t, 20, 20, drift)
	est := NewEstimator(rec)

	byMass, err := est.ByMass([]float64{naMass})
	if err != nil {
		t.Fatalf("ByMass failed: %v", err)
	}
	byName, err := est.ByName([]string{"Na"}, false)
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}
	assertTable(t, byName, byMass)
}

// TestEstimatorErrors tests that lookup and filter errors are reported
func TestEstimatorErrors(t *testing.T) {
	rec := newDrifting(t, 8, 8, make(models.ShiftTable, 2))

	if _, err := NewEstimator(rec).ByMass([]float64{500}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	crop := func(r models.Raster) models.Raster { return models.NewRaster(r.Width-1, r.Height) }
	if _, err := NewEstimator(rec, WithFilter(crop)).ByMass([]float64{naMass}); !errors.Is(err, models.ErrConfig) {
		t.Errorf("Expected ErrConfig for a shape-changing filter, got %v", err)
	}
}

// TestRecenter tests mean removal with half-to-even rounding
func TestRecenter(t *testing.T) {
	tests := []struct {
		name string
		in   models.ShiftTable
		want models.ShiftTable
	}{
		{"mean rounds down", models.ShiftTable{{DX: 0, DY: 0}, {DX: 3, DY: 1}, {DX: 4, DY: 2}}, models.ShiftTable{{DX: -2, DY: -1}, {DX: 1, DY: 0}, {DX: 2, DY: 1}}},
		{"half to even zero", models.ShiftTable{{DX: 0, DY: 0}, {DX: 1, DY: 0}}, models.ShiftTable{{DX: 0, DY: 0}, {DX: 1, DY: 0}}},
		{"half to even two", models.ShiftTable{{DX: 0, DY: 0}, {DX: 3, DY: -3}}, models.ShiftTable{{DX: -2, DY: 2}, {DX: 1, DY: -1}}},
		{"empty", models.ShiftTable{}, models.ShiftTable{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTable(t, Recenter(tt.in), tt.want)
		})
	}
}

// TestGaussian tests the blur filter
func TestGaussian(t *testing.T) {
	flat := models.NewRaster(7, 5)
	for i := range flat.Pix {
		flat.Pix[i] = 3
	}
	out := Gaussian(1.5)(flat)
	if out.Width != 7 || out.Height != 5 {
		t.Fatalf("Expected 7x5, got %dx%d", out.Width, out.Height)
	}
	for i, v := range out.Pix {
		if math.Abs(v-3) > 1e-9 {
			t.Fatalf("Constant image changed at %d: %v", i, v)
		}
	}

	spot := models.NewRaster(9, 9)
	spot.Set(4, 4, 1)
	blurred := Gaussian(1)(spot)
	if blurred.At(4, 4) >= 1 || blurred.At(4, 4) <= blurred.At(3, 4) {
		t.Errorf("Expected a spread peak at the centre, got %v", blurred.At(4, 4))
	}
	if math.Abs(blurred.At(3, 4)-blurred.At(5, 4)) > 1e-12 || math.Abs(blurred.At(4, 3)-blurred.At(4, 5)) > 1e-12 {
		t.Errorf("Expected a symmetric blur")
	}

	if got := Gaussian(0)(spot); &got.Pix[0] != &spot.Pix[0] {
		t.Errorf("Expected sigma 0 to return the input")
	}
}

// TestReflect tests border mirroring
func TestReflect(t *testing.T) {
	want := map[int]int{-2: 1, -1: 0, 0: 0, 3: 3, 4: 3, 5: 2, 9: 1}
	for i, w := range want {
		if got := reflect(i, 4); got != w {
			t.Errorf("reflect(%d, 4): expected %d, got %d", i, w, got)
		}
	}
}
