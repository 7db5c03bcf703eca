package reconstruction

import (
	"errors"
	"fmt"
	"sort"

	"itastack/internal/models"
)

// Skip records an input that was left out of a collection.
type Skip struct {
	Key string
	Err error
}

// Collection is a set of named pre-summed images sharing one field of view.
type Collection struct {
	// Width and Height are the physical size of the field of view
	Width, Height float64

	// Images maps a name to its image
	Images map[string]models.Image

	// Order lists the names in insertion order
	Order []string

	// Skipped lists inputs that resolved to no channel
	Skipped []Skip
}

func (r *Reconstructor) newCollection() *Collection {
	w, h := r.stack.PhysicalSize()
	return &Collection{Width: w, Height: h, Images: make(map[string]models.Image)}
}

func (c *Collection) add(name string, img models.Image) {
	if _, ok := c.Images[name]; !ok {
		c.Order = append(c.Order, name)
	}
	c.Images[name] = img
}

// CollectByMass builds one added image per mass, named after the channel label.
// A nil masses slice selects the centroid of every selectable channel.
// Masses that match no channel are recorded in Skipped.
func (r *Reconstructor) CollectByMass(masses []float64) (*Collection, error) {
	if masses == nil {
		for _, ch := range r.channels.Channels() {
			if ch.ID > 1 {
				masses = append(masses, ch.CenterMass)
			}
		}
	}
	c := r.newCollection()
	for _, m := range masses {
		img, chs, err := r.AddedByMass([]float64{m})
		if errors.Is(err, models.ErrNotFound) {
			r.logger.Debug().Float64("mass", m).Err(err).Msg("skipping mass")
			c.Skipped = append(c.Skipped, Skip{Key: fmt.Sprintf("%.2f", m), Err: err})
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(chs) == 0 {
			continue
		}
		c.add(chs[0].Label(), img)
	}
	return c, nil
}

// CollectByName builds one added image per group, named after the group key.
// Groups whose patterns match no channel are recorded in Skipped.
func (r *Reconstructor) CollectByName(groups map[string][]string, strict bool) (*Collection, error) {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := r.newCollection()
	for _, k := range keys {
		img, chs, err := r.AddedByName(groups[k], strict)
		if errors.Is(err, models.ErrNotFound) {
			r.logger.Debug().Str("group", k).Err(err).Msg("skipping group")
			c.Skipped = append(c.Skipped, Skip{Key: k, Err: err})
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, ch := range chs {
			r.logger.Debug().Str("group", k).Str("channel", ch.String()).Msg("collected")
		}
		img.Label = k
		c.add(k, img)
	}
	return c, nil
}
