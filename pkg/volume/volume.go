// Package volume stacks per-scan images into a depth volume and renders
// sections through it.
package volume

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"itastack/internal/models"
	"itastack/pkg/reconstruction"
)

// Build sums the channels containing masses separately for every scan and
// stacks the results along the depth axis. Scan 0 is depth 0. Images are in
// display orientation (row 0 at the bottom), with the shift correction of rec.
func Build(rec *reconstruction.Reconstructor, masses []float64) (*models.Volume, error) {
	st := rec.Stack()
	sx, sy := st.Dims()
	nscan := st.Scans()

	vol := &models.Volume{
		Data:   make([]float64, sx*sy*nscan),
		Width:  sx,
		Height: sy,
		Depth:  nscan,
	}
	w, h := st.PhysicalSize()
	vol.VoxelSize.X = w / float64(sx)
	vol.VoxelSize.Y = h / float64(sy)
	vol.VoxelSize.Z = 1

	for s := 0; s < nscan; s++ {
		img, _, err := rec.SumByMass(masses, []int{s})
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", s, err)
		}
		copy(vol.Data[s*sx*sy:(s+1)*sx*sy], img.Pix)
	}
	return vol, nil
}

// Viewer renders sections of a volume.
type Viewer struct {
	vol *models.Volume

	// scale maps volume values to [0, 1]
	scale float64
}

// NewViewer creates a viewer normalising intensities to the volume maximum.
func NewViewer(vol *models.Volume) *Viewer {
	v := &Viewer{vol: vol}
	if m := peak(vol.Data); m > 0 {
		v.scale = 1 / m
	}
	return v
}

// peak is the largest value of data ignoring NaN, 0 when there is none.
func peak(data []float64) float64 {
	var m float64
	for _, d := range data {
		if d > m {
			m = d
		}
	}
	return m
}

func (v *Viewer) gray(idx int) color.Gray16 {
	d := v.vol.Data[idx]
	if math.IsNaN(d) {
		return color.Gray16{}
	}
	value := math.Max(0, math.Min(65535, d*v.scale*65535))
	return color.Gray16{Y: uint16(math.Round(value))}
}

// ExtractSlice extracts a 2D section along the given axis:
// "x" gives the YZ plane (depth by row), "y" the XZ plane (a depth profile
// along one row, scans top to bottom) and "z" one scan.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	if position < 0 {
		return nil, &models.RangeError{What: "position", Index: position, Limit: v.limit(axis)}
	}
	w, h, d := v.vol.Width, v.vol.Height, v.vol.Depth

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if position >= w {
			return nil, &models.RangeError{What: "x position", Index: position, Limit: w}
		}
		img = image.NewGray16(image.Rect(0, 0, d, h))
		for y := 0; y < h; y++ {
			for z := 0; z < d; z++ {
				img.SetGray16(z, y, v.gray(z*w*h+y*w+position))
			}
		}

	case "y", "Y":
		if position >= h {
			return nil, &models.RangeError{What: "y position", Index: position, Limit: h}
		}
		img = image.NewGray16(image.Rect(0, 0, w, d))
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, z, v.gray(z*w*h+position*w+x))
			}
		}

	case "z", "Z":
		if position >= d {
			return nil, &models.RangeError{What: "scan", Index: position, Limit: d}
		}
		img = image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, v.gray(position*w*h+y*w+x))
			}
		}

	default:
		return nil, &models.ConfigError{Field: "axis", Msg: fmt.Sprintf("invalid axis %q (must be x, y or z)", axis)}
	}
	return img, nil
}

func (v *Viewer) limit(axis string) int {
	switch axis {
	case "x", "X":
		return v.vol.Width
	case "y", "Y":
		return v.vol.Height
	}
	return v.vol.Depth
}

// ExtractRegion copies a box out of the volume, in the same
// z*sizeX*sizeY + y*sizeX + x layout.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float64, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	w, h := v.vol.Width, v.vol.Height
	if startX+sizeX > w || startY+sizeY > h || startZ+sizeZ > v.vol.Depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			src := (startZ+z)*w*h + (startY+y)*w + startX
			copy(region[z*sizeX*sizeY+y*sizeX:], v.vol.Data[src:src+sizeX])
		}
	}
	return region, nil
}

// SaveSlice writes an image as PNG.
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence writes every section along axis to outputDir as
// slice_<axis>_<pos>.png.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	switch axis {
	case "x", "X", "y", "Y", "z", "Z":
	default:
		return &models.ConfigError{Field: "axis", Msg: fmt.Sprintf("invalid axis %q (must be x, y or z)", axis)}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.limit(axis); pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}

// RasterImage renders a raster as a 16-bit grayscale image normalised to its
// maximum. NaN pixels render black.
func RasterImage(r models.Raster) *image.Gray16 {
	v := NewViewer(&models.Volume{Data: r.Pix, Width: r.Width, Height: r.Height, Depth: 1})
	img, _ := v.ExtractSlice("z", 0)
	return img
}
