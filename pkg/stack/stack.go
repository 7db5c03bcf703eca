// Package stack reads per-scan, per-channel raster images out of the image
// stack of a measurement and applies registration shifts to them.
package stack

import (
	"fmt"

	"github.com/rs/zerolog"

	"itastack/internal/logging"
	"itastack/internal/models"
	"itastack/pkg/blockcodec"
	"itastack/pkg/container"
)

// Stack is a read-only view of the image stack. Every read decodes a fresh
// buffer, so a Stack can be shared between goroutines as long as its Tree
// supports concurrent reads.
type Stack struct {
	tree container.Tree

	// sx, sy are the stack image dimensions
	sx, sy int

	// nimg is the number of channel slots, nscan the number of scans
	nimg, nscan int

	// overview is the optional full resolution total-ion image
	overview *models.Raster
	fov      float64

	logger zerolog.Logger
}

// Option configures Open.
type Option func(*Stack)

// WithScans sets the number of scans instead of reading it from the tree.
func WithScans(n int) Option {
	return func(s *Stack) {
		s.nscan = n
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Stack) {
		s.logger = l
	}
}

// Open reads the stack dimensions from tree.
func Open(tree container.Tree, opts ...Option) (*Stack, error) {
	s := &Stack{tree: tree, nscan: -1, logger: logging.Logger()}
	for _, opt := range opts {
		opt(s)
	}

	dims := []struct {
		path string
		dst  *int
	}{
		{container.PathXSize, &s.sx},
		{container.PathYSize, &s.sy},
		{container.PathNumImages, &s.nimg},
	}
	if s.nscan < 0 {
		dims = append(dims, struct {
			path string
			dst  *int
		}{container.PathNumScans, &s.nscan})
	}
	for _, d := range dims {
		v, err := container.Int(tree, d.path)
		if err != nil {
			return nil, fmt.Errorf("opening image stack: %w", err)
		}
		if v < 0 {
			return nil, &models.FormatError{Op: "open", Path: d.path, Err: fmt.Errorf("negative value %d", v)}
		}
		*d.dst = int(v)
	}
	if s.sx == 0 || s.sy == 0 {
		return nil, &models.FormatError{Op: "open", Err: fmt.Errorf("empty image stack %dx%d", s.sx, s.sy)}
	}

	if err := s.readOverview(); err != nil {
		s.logger.Warn().Err(err).Msg("no SI image found, skipping it")
	}
	return s, nil
}

func (s *Stack) readOverview() error {
	if fov, err := container.Float64(s.tree, container.PathFieldOfView); err == nil {
		s.fov = fov
	}
	w, err := container.Int(s.tree, container.PathOverviewWidth)
	if err != nil {
		return err
	}
	h, err := container.Int(s.tree, container.PathOverviewHeight)
	if err != nil {
		return err
	}
	blob, err := container.Bytes(s.tree, container.PathOverviewData)
	if err != nil {
		return err
	}
	img, err := blockcodec.DecodeGrid(blob, int(w), int(h))
	if err != nil {
		return fmt.Errorf("decoding SI image: %w", err)
	}
	s.overview = &img
	return nil
}

// Dims returns the stack image width (sx) and height (sy).
func (s *Stack) Dims() (sx, sy int) {
	return s.sx, s.sy
}

// Images returns the number of channel slots (Nimg).
func (s *Stack) Images() int {
	return s.nimg
}

// Scans returns the number of scans (Nscan).
func (s *Stack) Scans() int {
	return s.nscan
}

// FieldOfView returns the lateral extent of the raster in meters, 0 if unknown.
func (s *Stack) FieldOfView() float64 {
	return s.fov
}

// PhysicalSize returns the width and height of the field of view, assuming
// square pixels.
func (s *Stack) PhysicalSize() (w, h float64) {
	return s.fov, s.fov * float64(s.sy) / float64(s.sx)
}

// Overview returns the full resolution total-ion image, if the file has one.
func (s *Stack) Overview() (*models.Raster, bool) {
	return s.overview, s.overview != nil
}

// CheckChannel returns a RangeError unless 0 <= channel < Nimg.
func (s *Stack) CheckChannel(channel int) error {
	if channel < 0 || channel >= s.nimg {
		return &models.RangeError{What: "channel", Index: channel, Limit: s.nimg}
	}
	return nil
}

// CheckScan returns a RangeError unless 0 <= scan < Nscan.
func (s *Stack) CheckScan(scan int) error {
	if scan < 0 || scan >= s.nscan {
		return &models.RangeError{What: "scan", Index: scan, Limit: s.nscan}
	}
	return nil
}

// GetImage decodes the (sy, sx) image of a channel in one scan. When shift is
// not nil the scan's entry of shift.Table is applied with shift.Mode.
func (s *Stack) GetImage(channel, scan int, shift *ShiftOptions) (models.Raster, error) {
	if err := s.CheckChannel(channel); err != nil {
		return models.Raster{}, err
	}
	if err := s.CheckScan(scan); err != nil {
		return models.Raster{}, err
	}

	var (
		fill  bool
		value float64
	)
	if shift != nil {
		if scan >= len(shift.Table) {
			return models.Raster{}, &models.RangeError{What: "shift table entry", Index: scan, Limit: len(shift.Table)}
		}
		var err error
		if value, fill, err = shift.fillValue(); err != nil {
			return models.Raster{}, err
		}
	}

	img, err := s.decode(container.ImagePath(channel, scan))
	if err != nil {
		return models.Raster{}, err
	}
	if shift != nil {
		img = applyShift(img, shift.Table[scan], fill, value)
	}
	return img, nil
}

// GetAddedImage decodes the instrument's pre-summed image of a channel.
func (s *Stack) GetAddedImage(channel int) (models.Raster, error) {
	if err := s.CheckChannel(channel); err != nil {
		return models.Raster{}, err
	}
	return s.decode(container.AddedImagePath(channel))
}

// GetSavedShift returns the shift correction stored with the file, usually the
// one performed in the acquisition software.
func (s *Stack) GetSavedShift() (models.ShiftTable, error) {
	blob, err := container.Bytes(s.tree, container.PathShifts)
	if err != nil {
		return nil, err
	}
	shifts, err := blockcodec.DecodeInt32Pairs(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding saved shifts: %w", err)
	}
	return models.ShiftTable(shifts), nil
}

func (s *Stack) decode(path string) (models.Raster, error) {
	blob, err := container.Bytes(s.tree, path)
	if err != nil {
		return models.Raster{}, err
	}
	img, err := blockcodec.DecodeGrid(blob, s.sx, s.sy)
	if err != nil {
		return models.Raster{}, fmt.Errorf("decoding %q: %w", path, err)
	}
	return img, nil
}
