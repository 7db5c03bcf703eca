package registration

import (
	"math"

	"itastack/internal/models"
)

// Filter transforms a scan image before correlation. It must return an image
// of the same shape.
type Filter func(models.Raster) models.Raster

// Identity returns the image unchanged.
func Identity(r models.Raster) models.Raster {
	return r
}

// Gaussian returns a separable Gaussian blur with the given standard deviation
// in pixels. Borders are reflected. A sigma of 0 or less is the identity.
func Gaussian(sigma float64) Filter {
	if sigma <= 0 {
		return Identity
	}
	kernel := gaussianKernel(sigma)
	return func(r models.Raster) models.Raster {
		tmp := models.NewRaster(r.Width, r.Height)
		for y := 0; y < r.Height; y++ {
			convolve(tmp.Row(y), r.Row(y), kernel, 1)
		}
		out := models.NewRaster(r.Width, r.Height)
		for x := 0; x < r.Width; x++ {
			convolve(out.Pix[x:], tmp.Pix[x:], kernel, r.Width)
		}
		return out
	}
}

// gaussianKernel is truncated at 4 sigma and normalised to unit sum.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// convolve filters one line of samples spaced stride apart, starting at src[0].
func convolve(dst, src, kernel []float64, stride int) {
	n := (len(src)-1)/stride + 1
	radius := len(kernel) / 2
	for i := 0; i < n; i++ {
		var acc float64
		for j, w := range kernel {
			acc += w * src[reflect(i+j-radius, n)*stride]
		}
		dst[i*stride] = acc
	}
}

// reflect maps an index into [0, n) mirroring about the edges (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
