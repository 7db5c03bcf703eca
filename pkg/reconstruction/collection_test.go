package reconstruction

import (
	"errors"
	"testing"

	"itastack/internal/models"
)

// TestCollectByMass verifies the default channel list and skip records
func TestCollectByMass(t *testing.T) {
	f := newFixture(t, 2)

	c, err := f.rec.CollectByMass(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Order) != 2 || c.Order[0] != "Na+" || c.Order[1] != "21.50u" {
		t.Errorf("Unexpected collection order %v", c.Order)
	}
	if len(c.Skipped) != 0 {
		t.Errorf("Unexpected skips %v", c.Skipped)
	}

	c, err = f.rec.CollectByMass([]float64{11, 55, 21})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Images) != 2 {
		t.Errorf("Expected 2 images, got %d", len(c.Images))
	}
	if len(c.Skipped) != 1 || c.Skipped[0].Key != "55.00" || !errors.Is(c.Skipped[0].Err, models.ErrNotFound) {
		t.Errorf("Expected mass 55 to be skipped, got %v", c.Skipped)
	}
	assertRaster(t, c.Images["Na+"].Raster, f.sumOf([]int{2}, []int{0, 1, 2}).FlipUD())
}

// TestCollectByName verifies named groups
func TestCollectByName(t *testing.T) {
	f := newFixture(t, 2)

	c, err := f.rec.CollectByName(map[string][]string{
		"sodium": {"Na"},
		"both":   {"Na", "unk"},
		"none":   {"Xe"},
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Order) != 2 || c.Order[0] != "both" || c.Order[1] != "sodium" {
		t.Errorf("Unexpected order %v", c.Order)
	}
	if len(c.Skipped) != 1 || c.Skipped[0].Key != "none" {
		t.Errorf("Expected group none to be skipped, got %v", c.Skipped)
	}
	if c.Images["both"].Label != "both" {
		t.Errorf("Unexpected label %q", c.Images["both"].Label)
	}
	assertRaster(t, c.Images["both"].Raster, f.sumOf([]int{2, 3}, []int{0, 1, 2}).FlipUD())
}
