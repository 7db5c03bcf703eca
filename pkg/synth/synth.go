// Package synth writes synthetic measurements into a container tree. It backs
// the package tests and the "synth" command.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"itastack/internal/models"
	"itastack/pkg/blockcodec"
	"itastack/pkg/container"
)

// Builder writes the blocks of one measurement into a MemTree.
type Builder struct {
	Tree *container.MemTree

	sx, sy int
	nimg   int
	nscan  int
	peaks  int
}

// NewBuilder creates a tree holding the stack dimensions.
func NewBuilder(sx, sy, nimg, nscan int) *Builder {
	b := &Builder{
		Tree:  container.NewMemTree(),
		sx:    sx,
		sy:    sy,
		nimg:  nimg,
		nscan: nscan,
	}
	b.Tree.SetInt(container.PathXSize, int64(sx))
	b.Tree.SetInt(container.PathYSize, int64(sy))
	b.Tree.SetInt(container.PathNumImages, int64(nimg))
	b.Tree.SetInt(container.PathNumScans, int64(nscan))
	return b
}

// AddChannel appends a peak table row.
func (b *Builder) AddChannel(ch models.Channel) {
	base := container.PeakPath(b.peaks)
	b.Tree.SetInt(container.Join(base, container.FieldID), int64(ch.ID))
	b.Tree.SetFloat(container.Join(base, container.FieldLMass), ch.LowerMass)
	b.Tree.SetFloat(container.Join(base, container.FieldUMass), ch.UpperMass)
	b.Tree.SetFloat(container.Join(base, container.FieldCMass), ch.CenterMass)
	b.Tree.SetString(container.Join(base, container.FieldAssign), ch.Assign)
	b.Tree.SetString(container.Join(base, container.FieldDesc), ch.Desc)
	b.peaks++
}

// SetImage stores the image of a channel in one scan.
func (b *Builder) SetImage(channel, scan int, r models.Raster) error {
	if err := b.check(r); err != nil {
		return err
	}
	blob, err := blockcodec.EncodeGrid(r)
	if err != nil {
		return err
	}
	b.Tree.SetBlob(container.ImagePath(channel, scan), blob)
	return nil
}

// SetAdded stores the pre-summed image of a channel.
func (b *Builder) SetAdded(channel int, r models.Raster) error {
	if err := b.check(r); err != nil {
		return err
	}
	blob, err := blockcodec.EncodeGrid(r)
	if err != nil {
		return err
	}
	b.Tree.SetBlob(container.AddedImagePath(channel), blob)
	return nil
}

// SetSavedShift stores a shift correction record.
func (b *Builder) SetSavedShift(t models.ShiftTable) error {
	blob, err := blockcodec.EncodeInt32Pairs(t)
	if err != nil {
		return err
	}
	b.Tree.SetBlob(container.PathShifts, blob)
	return nil
}

// SetOverview stores the total-ion image and field of view.
func (b *Builder) SetOverview(r models.Raster, fov float64) error {
	blob, err := blockcodec.EncodeGrid(r)
	if err != nil {
		return err
	}
	b.Tree.SetInt(container.PathOverviewWidth, int64(r.Width))
	b.Tree.SetInt(container.PathOverviewHeight, int64(r.Height))
	b.Tree.SetBlob(container.PathOverviewData, blob)
	b.Tree.SetFloat(container.PathFieldOfView, fov)
	return nil
}

// FillAdded stores, for every channel that has scan images, the sum over all
// scans as its pre-summed image.
func (b *Builder) FillAdded(channels []int) error {
	for _, c := range channels {
		sum := models.NewRaster(b.sx, b.sy)
		for s := 0; s < b.nscan; s++ {
			blob, err := container.Bytes(b.Tree, container.ImagePath(c, s))
			if err != nil {
				return err
			}
			img, err := blockcodec.DecodeGrid(blob, b.sx, b.sy)
			if err != nil {
				return err
			}
			for i, v := range img.Pix {
				sum.Pix[i] += v
			}
		}
		if err := b.SetAdded(c, sum); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) check(r models.Raster) error {
	if r.Width != b.sx || r.Height != b.sy || len(r.Pix) != b.sx*b.sy {
		return fmt.Errorf("raster is %dx%d, stack is %dx%d", r.Width, r.Height, b.sx, b.sy)
	}
	return nil
}

// Blobs returns a raster with a few Gaussian spots of random position and
// amplitude, scaled to integer counts.
func Blobs(sx, sy, n int, rng *rand.Rand) models.Raster {
	r := models.NewRaster(sx, sy)
	for k := 0; k < n; k++ {
		cx := rng.Float64() * float64(sx)
		cy := rng.Float64() * float64(sy)
		amp := 20 + rng.Float64()*80
		sigma := 1 + rng.Float64()*float64(min(sx, sy))/8
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				d2 := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
				r.Pix[y*sx+x] += amp * math.Exp(-d2/(2*sigma*sigma))
			}
		}
	}
	for i, v := range r.Pix {
		r.Pix[i] = math.Floor(v)
	}
	return r
}

// Roll translates r cyclically so that out[y][x] = r[y-dy][x-dx].
func Roll(r models.Raster, dx, dy int) models.Raster {
	out := models.NewRaster(r.Width, r.Height)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			sy := ((y-dy)%r.Height + r.Height) % r.Height
			sx := ((x-dx)%r.Width + r.Width) % r.Width
			out.Pix[y*r.Width+x] = r.Pix[sy*r.Width+sx]
		}
	}
	return out
}

// Drifting builds a measurement with two assigned channels whose scans drift
// by the given per-scan offsets. Scan s of each channel is the reference
// pattern rolled by drift[s].
func Drifting(sx, sy int, drift models.ShiftTable, seed int64) (*Builder, error) {
	rng := rand.New(rand.NewSource(seed))
	nscan := len(drift)
	b := NewBuilder(sx, sy, 4, nscan)

	b.AddChannel(models.Channel{ID: 0, LowerMass: 0, UpperMass: 1000, Desc: "total"})
	b.AddChannel(models.Channel{ID: 1, LowerMass: 0, UpperMass: 1000, Desc: "sum of peaks"})
	b.AddChannel(models.Channel{ID: 2, LowerMass: 22.9, UpperMass: 23.1, CenterMass: 22.99, Assign: "Na+", Desc: "sodium"})
	b.AddChannel(models.Channel{ID: 3, LowerMass: 38.9, UpperMass: 39.1, CenterMass: 38.96, Assign: "K+", Desc: "potassium"})

	refs := map[int]models.Raster{
		2: Blobs(sx, sy, 6, rng),
		3: Blobs(sx, sy, 4, rng),
	}
	for ch, ref := range refs {
		for s, d := range drift {
			if err := b.SetImage(ch, s, Roll(ref, d.DX, d.DY)); err != nil {
				return nil, err
			}
		}
	}
	for _, ch := range []int{0, 1} {
		for s := range drift {
			if err := b.SetImage(ch, s, models.NewRaster(sx, sy)); err != nil {
				return nil, err
			}
		}
	}
	if err := b.FillAdded([]int{0, 1, 2, 3}); err != nil {
		return nil, err
	}
	if err := b.SetSavedShift(drift); err != nil {
		return nil, err
	}
	if err := b.SetOverview(Blobs(2*sx, 2*sy, 8, rng), 500e-6); err != nil {
		return nil, err
	}
	return b, nil
}
