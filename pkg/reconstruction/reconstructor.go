package reconstruction

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"itastack/internal/logging"
	"itastack/internal/models"
	"itastack/pkg/channels"
	"itastack/pkg/stack"
)

// Params holds the reconstruction parameters.
type Params struct {
	// NumCores is the number of scans decoded concurrently.
	// Values below 1 select runtime.NumCPU().
	NumCores int

	// Shift, when set, is applied to every per-scan image before it is added.
	// It has no effect on pre-summed (added) images.
	Shift *stack.ShiftOptions

	// Logger receives debug messages about skipped inputs.
	// The zero value selects the package logger.
	Logger *zerolog.Logger
}

// Reconstructor builds aggregated images out of an image stack.
//
// Per-scan images are reduced in parallel: every worker owns one (sy, sx)
// accumulator and the accumulators are added together once all scans are in.
// A failing scan fails the whole call; no partial sum is returned.
type Reconstructor struct {
	// params stores the reconstruction configuration
	params *Params

	stack    *stack.Stack
	channels *channels.Table

	logger zerolog.Logger
}

// NewReconstructor creates a new reconstructor over a stack and its peak table.
//
// Parameters:
//   - st: the image stack to read from
//   - table: the peak table used to resolve names and masses
//   - params: reconstruction configuration, nil for defaults
//
// Returns:
//   - A new Reconstructor
func NewReconstructor(st *stack.Stack, table *channels.Table, params *Params) *Reconstructor {
	if params == nil {
		params = &Params{}
	}
	r := &Reconstructor{
		params:   params,
		stack:    st,
		channels: table,
		logger:   logging.Logger(),
	}
	if params.Logger != nil {
		r.logger = *params.Logger
	}
	return r
}

// Stack returns the underlying image stack.
func (r *Reconstructor) Stack() *stack.Stack {
	return r.stack
}

// Channels returns the peak table.
func (r *Reconstructor) Channels() *channels.Table {
	return r.channels
}

// WithShift returns a reconstructor sharing stack, table and parameters, but
// applying shift to every per-scan image.
func (r *Reconstructor) WithShift(shift *stack.ShiftOptions) *Reconstructor {
	p := *r.params
	p.Shift = shift
	p.Logger = &r.logger
	return NewReconstructor(r.stack, r.channels, &p)
}

// SumByName adds the images of every channel matching names over the given
// scans (nil for all scans). The result is flipped so that row 0 is the
// bottom of the field of view.
func (r *Reconstructor) SumByName(names []string, scans []int, strict bool) (models.Image, []models.Channel, error) {
	chs, err := r.channels.ByName(names, strict)
	if err != nil {
		return models.Image{}, nil, err
	}
	sum, err := r.sumScans(ids(chs), scans)
	if err != nil {
		return models.Image{}, nil, err
	}
	return models.Image{Raster: sum.FlipUD(), Label: joinAssign(chs)}, chs, nil
}

// SumByMass adds, over the given scans (nil for all scans), the images of the
// channel containing each mass. Every mass is resolved on its own, so a
// repeated mass counts twice. A mass of 0 selects nothing.
func (r *Reconstructor) SumByMass(masses []float64, scans []int) (models.Image, []models.Channel, error) {
	sum, chs, err := r.SumByMassRaw(masses, scans)
	if err != nil {
		return models.Image{}, nil, err
	}
	return models.Image{Raster: sum.FlipUD(), Label: "Masses: " + joinLabels(chs)}, chs, nil
}

// SumByMassRaw is SumByMass without the vertical flip, in the orientation of
// Stack.GetImage.
func (r *Reconstructor) SumByMassRaw(masses []float64, scans []int) (models.Raster, []models.Channel, error) {
	// scans are validated before any mass lookup or decode
	if _, err := r.scanList(scans); err != nil {
		return models.Raster{}, nil, err
	}
	chs, err := r.resolveMasses(masses)
	if err != nil {
		return models.Raster{}, nil, err
	}
	sum, err := r.sumScans(ids(chs), scans)
	if err != nil {
		return models.Raster{}, nil, err
	}
	return sum, chs, nil
}

// AddedByName adds the pre-summed images of every channel matching names.
func (r *Reconstructor) AddedByName(names []string, strict bool) (models.Image, []models.Channel, error) {
	chs, err := r.channels.ByName(names, strict)
	if err != nil {
		return models.Image{}, nil, err
	}
	sum, err := r.sumAdded(ids(chs))
	if err != nil {
		return models.Image{}, nil, err
	}
	return models.Image{Raster: sum.FlipUD(), Label: joinAssign(chs)}, chs, nil
}

// AddedByMass adds the pre-summed images of the channel containing each mass.
func (r *Reconstructor) AddedByMass(masses []float64) (models.Image, []models.Channel, error) {
	chs, err := r.resolveMasses(masses)
	if err != nil {
		return models.Image{}, nil, err
	}
	sum, err := r.sumAdded(ids(chs))
	if err != nil {
		return models.Image{}, nil, err
	}
	return models.Image{Raster: sum.FlipUD(), Label: joinLabels(chs)}, chs, nil
}

func (r *Reconstructor) resolveMasses(masses []float64) ([]models.Channel, error) {
	chs := make([]models.Channel, 0, len(masses))
	for _, m := range masses {
		ch, err := r.channels.ByMass(m)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			r.logger.Debug().Float64("mass", m).Msg("mass 0 selects no channel, skipping")
			continue
		}
		chs = append(chs, *ch)
	}
	return chs, nil
}

// scanList expands nil to every scan and validates explicit indices.
func (r *Reconstructor) scanList(scans []int) ([]int, error) {
	if scans == nil {
		all := make([]int, r.stack.Scans())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	for _, s := range scans {
		if err := r.stack.CheckScan(s); err != nil {
			return nil, err
		}
	}
	return scans, nil
}

func (r *Reconstructor) numWorkers(tasks int) int {
	n := r.params.NumCores
	if n < 1 {
		n = runtime.NumCPU()
	}
	if n > tasks {
		n = tasks
	}
	return max(n, 1)
}

// sumScans adds GetImage(id, s) for every id and scan into one raster.
func (r *Reconstructor) sumScans(channelIDs []int, scans []int) (models.Raster, error) {
	scans, err := r.scanList(scans)
	if err != nil {
		return models.Raster{}, err
	}
	for _, id := range channelIDs {
		if err := r.stack.CheckChannel(id); err != nil {
			return models.Raster{}, err
		}
	}

	sx, sy := r.stack.Dims()
	total := models.NewRaster(sx, sy)
	if len(scans) == 0 || len(channelIDs) == 0 {
		return total, nil
	}

	// Create a channel for results
	type workerResult struct {
		sum models.Raster
		err error
	}
	jobs := make(chan int)
	resultChan := make(chan workerResult)
	done := make(chan struct{})
	defer close(done)

	workers := r.numWorkers(len(scans))
	for w := 0; w < workers; w++ {
		go func() {
			acc := models.NewRaster(sx, sy)
			var werr error
			for s := range jobs {
				if werr != nil {
					continue // drain
				}
				for _, id := range channelIDs {
					img, err := r.stack.GetImage(id, s, r.params.Shift)
					if err != nil {
						werr = fmt.Errorf("scan %d, channel %d: %w", s, id, err)
						break
					}
					floats.Add(acc.Pix, img.Pix)
				}
			}
			select {
			case resultChan <- workerResult{sum: acc, err: werr}:
			case <-done:
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range scans {
			select {
			case jobs <- s:
			case <-done:
				return
			}
		}
	}()

	// Collect results
	var firstErr error
	for w := 0; w < workers; w++ {
		res := <-resultChan
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		floats.Add(total.Pix, res.sum.Pix)
	}
	if firstErr != nil {
		return models.Raster{}, firstErr
	}
	return total, nil
}

// sumAdded adds the pre-summed images of the given channels.
func (r *Reconstructor) sumAdded(channelIDs []int) (models.Raster, error) {
	sx, sy := r.stack.Dims()
	total := models.NewRaster(sx, sy)
	for _, id := range channelIDs {
		img, err := r.stack.GetAddedImage(id)
		if err != nil {
			return models.Raster{}, fmt.Errorf("added image of channel %d: %w", id, err)
		}
		floats.Add(total.Pix, img.Pix)
	}
	return total, nil
}

func ids(chs []models.Channel) []int {
	out := make([]int, len(chs))
	for i, ch := range chs {
		out[i] = ch.ID
	}
	return out
}

func joinAssign(chs []models.Channel) string {
	names := make([]string, len(chs))
	for i, ch := range chs {
		names[i] = ch.Assign
	}
	return strings.Join(names, ",")
}

func joinLabels(chs []models.Channel) string {
	names := make([]string, len(chs))
	for i, ch := range chs {
		names[i] = ch.Label()
	}
	return strings.Join(names, ",")
}
