package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestChannelLabel(t *testing.T) {
	tests := []struct {
		ch   Channel
		want string
	}{
		{Channel{Assign: "Na+", CenterMass: 22.99}, "Na+"},
		{Channel{CenterMass: 22.989}, "22.99u"},
		{Channel{CenterMass: 0}, "0.00u"},
	}
	for _, tc := range tests {
		if got := tc.ch.Label(); got != tc.want {
			t.Errorf("Label() = %q, want %q", got, tc.want)
		}
	}
}

func TestChannelContainsIsInclusive(t *testing.T) {
	c := Channel{LowerMass: 10, UpperMass: 12}
	for _, m := range []float64{10, 11, 12} {
		if !c.Contains(m) {
			t.Errorf("expected %v inside [10, 12]", m)
		}
	}
	for _, m := range []float64{9.999, 12.001} {
		if c.Contains(m) {
			t.Errorf("expected %v outside [10, 12]", m)
		}
	}
}

func TestRasterFlipUD(t *testing.T) {
	r := Raster{Width: 2, Height: 3, Pix: []float64{1, 2, 3, 4, 5, 6}}
	f := r.FlipUD()
	want := []float64{5, 6, 3, 4, 1, 2}
	for i := range want {
		if f.Pix[i] != want[i] {
			t.Fatalf("FlipUD() = %v, want %v", f.Pix, want)
		}
	}
	if r.Pix[0] != 1 {
		t.Error("FlipUD modified its receiver")
	}
}

func TestShiftTableRecentered(t *testing.T) {
	tab := ShiftTable{{0, 0}, {2, -1}, {4, 1}}
	got := tab.Recentered(2, 0)
	want := ShiftTable{{-2, 0}, {0, -1}, {2, 1}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{&FormatError{Op: "decode", Err: errors.New("short")}, ErrFormat},
		{&RangeError{What: "scan", Index: 5, Limit: 3}, ErrRange},
		{&NotFoundError{Mass: 42}, ErrNotFound},
		{&ConfigError{Field: "fill", Msg: "missing"}, ErrConfig},
	}
	for _, tc := range tests {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		if !errors.Is(wrapped, tc.kind) {
			t.Errorf("%v does not match %v", tc.err, tc.kind)
		}
	}

	var re *RangeError
	if !errors.As(fmt.Errorf("x: %w", &RangeError{What: "channel", Index: 7, Limit: 4}), &re) || re.Index != 7 {
		t.Error("RangeError did not carry its index")
	}
	if msg := (&NotFoundError{Mass: 11.5}).Error(); msg != "mass 11.50 not found" {
		t.Errorf("unexpected message %q", msg)
	}
}
