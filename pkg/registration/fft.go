package registration

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2 holds the row and column transforms for one image size.
type fft2 struct {
	width, height int
	rows, cols    *fourier.CmplxFFT

	// scratch buffers for one row or column
	in, out []complex128
}

func newFFT2(width, height int) *fft2 {
	n := max(width, height)
	return &fft2{
		width:  width,
		height: height,
		rows:   fourier.NewCmplxFFT(width),
		cols:   fourier.NewCmplxFFT(height),
		in:     make([]complex128, n),
		out:    make([]complex128, n),
	}
}

// forward performs a 2D Fast Fourier Transform of real data in row-major order.
//
// Parameters:
//   - data: Input image data as a 1D array (row-major order)
//
// Returns:
//   - The 2D FFT of the input data as a 1D array of complex numbers
func (f *fft2) forward(data []float64) []complex128 {
	result := make([]complex128, len(data))
	for i, v := range data {
		result[i] = complex(v, 0)
	}
	f.transform(result, false)
	return result
}

// inverse performs the normalized inverse 2D FFT in place.
func (f *fft2) inverse(data []complex128) {
	f.transform(data, true)
	scale := complex(1/float64(f.width*f.height), 0)
	for i := range data {
		data[i] *= scale
	}
}

// transform runs the 1D transform over every row, then every column.
func (f *fft2) transform(data []complex128, inverse bool) {
	w, h := f.width, f.height

	// Perform row-wise FFT
	in, out := f.in[:w], f.out[:w]
	for i := 0; i < h; i++ {
		copy(in, data[i*w:(i+1)*w])
		if inverse {
			f.rows.Sequence(out, in)
		} else {
			f.rows.Coefficients(out, in)
		}
		copy(data[i*w:(i+1)*w], out)
	}

	// Column-wise FFT on the row results
	in, out = f.in[:h], f.out[:h]
	for j := 0; j < w; j++ {
		for i := 0; i < h; i++ {
			in[i] = data[i*w+j]
		}
		if inverse {
			f.cols.Sequence(out, in)
		} else {
			f.cols.Coefficients(out, in)
		}
		for i := 0; i < h; i++ {
			data[i*w+j] = out[i]
		}
	}
}

// fftshift moves the zero-frequency (zero-lag) element of a width x height
// array to index (height/2, width/2).
func fftshift(data []float64, width, height int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < height; i++ {
		si := (i + height/2) % height
		for j := 0; j < width; j++ {
			sj := (j + width/2) % width
			out[si*width+sj] = data[i*width+j]
		}
	}
	return out
}
