package reconstruction

import (
	"math"
	"testing"
)

// TestProfileShape verifies the default sample count and the output shape
func TestProfileShape(t *testing.T) {
	f := newFixture(t, 2)

	prof, err := f.rec.Profile(Point{0, 0}, Point{3, 0}, []float64{11}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(prof) != 3 {
		t.Fatalf("Expected one row per scan, got %d", len(prof))
	}
	for s, row := range prof {
		if len(row) != 4 {
			t.Fatalf("Scan %d: expected 4 samples, got %d", s, len(row))
		}
	}

	diag, err := f.rec.Profile(Point{0, 0}, Point{3, 3}, []float64{11}, 0)
	if err != nil {
		t.Fatal(err)
	}
	// round(3*sqrt(2)) + 1
	if len(diag[0]) != 5 {
		t.Errorf("Expected 5 samples along the diagonal, got %d", len(diag[0]))
	}

	img := ProfileImage(prof)
	if img.Width != 4 || img.Height != 3 {
		t.Errorf("Expected a 4x3 profile image, got %dx%d", img.Width, img.Height)
	}
}

// TestProfileValues verifies that y is measured from the bottom of the field of view
func TestProfileValues(t *testing.T) {
	f := newFixture(t, 1)

	// y = 0 is the bottom row of the display, which is raw row sy-1 = 3
	// after the flip it is raw row 0 again.
	prof, err := f.rec.Profile(Point{0, 0}, Point{3, 0}, []float64{11}, 4)
	if err != nil {
		t.Fatal(err)
	}
	for s := 0; s < 3; s++ {
		raw := f.images[[2]int{2, s}]
		for x := 0; x < 4; x++ {
			if want := raw.At(x, 0); math.Abs(prof[s][x]-want) > 1e-9 {
				t.Errorf("Scan %d, x %d: got %v, want %v", s, x, prof[s][x], want)
			}
		}
	}

	// halfway between two pixels of the top display row (raw row 3)
	prof, err = f.rec.Profile(Point{0.5, 3}, Point{0.5, 3}, []float64{11}, 1)
	if err != nil {
		t.Fatal(err)
	}
	raw := f.images[[2]int{2, 1}]
	want := (raw.At(0, 3) + raw.At(1, 3)) / 2
	if math.Abs(prof[1][0]-want) > 1e-9 {
		t.Errorf("Got %v, want %v", prof[1][0], want)
	}
}
