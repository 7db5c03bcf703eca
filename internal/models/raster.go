package models

// Raster is a single 2D intensity grid decoded from the container
type Raster struct {
	// Width is the number of columns (sx for stack images)
	Width int

	// Height is the number of rows (sy for stack images)
	Height int

	// Pix holds Width*Height intensities in row-major order
	Pix []float64
}

// NewRaster allocates a zero-filled raster of the given size
func NewRaster(width, height int) Raster {
	return Raster{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At returns the value at column x, row y
func (r Raster) At(x, y int) float64 {
	return r.Pix[y*r.Width+x]
}

// Set stores v at column x, row y
func (r Raster) Set(x, y int, v float64) {
	r.Pix[y*r.Width+x] = v
}

// Row returns the slice backing row y
func (r Raster) Row(y int) []float64 {
	return r.Pix[y*r.Width : (y+1)*r.Width]
}

// Clone returns a deep copy
func (r Raster) Clone() Raster {
	pix := make([]float64, len(r.Pix))
	copy(pix, r.Pix)
	return Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// FlipUD returns a copy with the row order reversed, so that row 0 becomes the
// bottom of the field of view.
func (r Raster) FlipUD() Raster {
	out := NewRaster(r.Width, r.Height)
	for y := 0; y < r.Height; y++ {
		copy(out.Row(r.Height-1-y), r.Row(y))
	}
	return out
}

// Image is an aggregated intensity map together with the channels it was built from
type Image struct {
	Raster

	// Label names the channels or masses combined into this image
	Label string
}

// Volume is a stack of per-scan images (the depth axis is the scan index)
type Volume struct {
	// Data is the 3D volume data as a 1D array, index = z*Width*Height + y*Width + x
	Data []float64

	// Width, Height are the lateral dimensions in pixels
	Width, Height int

	// Depth is the number of scans
	Depth int

	// VoxelSize is the physical lateral pixel size; Z is 1 (one scan)
	VoxelSize struct {
		X, Y, Z float64
	}
}
