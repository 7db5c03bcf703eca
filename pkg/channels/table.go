// Package channels parses the peak table (mass interval list) of a measurement
// and resolves channel names and masses to image-stack channel identifiers.
package channels

import (
	"fmt"
	"regexp"

	"itastack/internal/models"
	"itastack/pkg/container"
)

// reservedIDs are the identifiers below which a channel is never selected by mass.
const reservedIDs = 2

// Table is the read-only list of channels, in row-key order.
type Table struct {
	rows []models.Channel
}

// New builds a table from already parsed rows. The slice is copied.
func New(rows []models.Channel) *Table {
	t := &Table{rows: make([]models.Channel, len(rows))}
	copy(t.rows, rows)
	return t
}

// Parse reads MassIntervalList/mi[k] records for k = 0, 1, ... until the first
// missing record.
func Parse(tree container.Tree) (*Table, error) {
	t := &Table{}
	for k := 0; ; k++ {
		base := container.PeakPath(k)
		ok, err := container.Exists(tree, container.Join(base, container.FieldID))
		if err != nil {
			return nil, fmt.Errorf("reading peak %d: %w", k, err)
		}
		if !ok {
			break
		}
		ch, err := parseRow(tree, base)
		if err != nil {
			return nil, fmt.Errorf("reading peak %d: %w", k, err)
		}
		t.rows = append(t.rows, ch)
	}
	return t, nil
}

func parseRow(tree container.Tree, base string) (models.Channel, error) {
	var ch models.Channel

	id, err := container.Int(tree, container.Join(base, container.FieldID))
	if err != nil {
		return ch, err
	}
	if id < 0 {
		return ch, &models.FormatError{Op: "parse peak", Path: base, Err: fmt.Errorf("negative id %d", id)}
	}
	ch.ID = int(id)

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{container.FieldLMass, &ch.LowerMass},
		{container.FieldUMass, &ch.UpperMass},
		{container.FieldCMass, &ch.CenterMass},
	} {
		if *f.dst, err = container.Float64(tree, container.Join(base, f.name)); err != nil {
			return ch, err
		}
	}

	// assign and desc are optional, an absent string is an empty one
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{container.FieldAssign, &ch.Assign},
		{container.FieldDesc, &ch.Desc},
	} {
		p := container.Join(base, f.name)
		ok, err := container.Exists(tree, p)
		if err != nil {
			return ch, err
		}
		if !ok {
			continue
		}
		if *f.dst, err = container.Text(tree, p); err != nil {
			return ch, err
		}
	}

	if !(ch.LowerMass <= ch.CenterMass && ch.CenterMass <= ch.UpperMass) {
		return ch, &models.FormatError{
			Op:   "parse peak",
			Path: base,
			Err:  fmt.Errorf("centroid %.4f outside [%.4f, %.4f]", ch.CenterMass, ch.LowerMass, ch.UpperMass),
		}
	}
	return ch, nil
}

// Len returns the number of channels.
func (t *Table) Len() int {
	return len(t.rows)
}

// Channels returns a copy of all rows.
func (t *Table) Channels() []models.Channel {
	out := make([]models.Channel, len(t.rows))
	copy(out, t.rows)
	return out
}

// ByID returns the first channel with the given identifier.
func (t *Table) ByID(id int) (models.Channel, bool) {
	for _, ch := range t.rows {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Channel{}, false
}

// ByMass returns the first selectable channel whose window contains mass.
// A mass of exactly 0 means "no channel" and yields (nil, nil).
func (t *Table) ByMass(mass float64) (*models.Channel, error) {
	if mass == 0 {
		return nil, nil
	}
	for i := range t.rows {
		ch := t.rows[i]
		if ch.ID >= reservedIDs && ch.Contains(mass) {
			return &ch, nil
		}
	}
	return nil, &models.NotFoundError{Mass: mass}
}

// ByName returns every channel whose assignment or description matches one of
// the patterns. Patterns are regular expressions anchored at the start of the
// string. In strict mode the whole string must match, optionally followed by a
// polarity sign, so "Na" matches "Na" and "Na+" but not "NaCl".
//
// Each pattern is matched on its own and the results are concatenated in
// pattern order; a channel matched by two patterns appears twice.
func (t *Table) ByName(patterns []string, strict bool) ([]models.Channel, error) {
	var res []models.Channel
	for _, p := range patterns {
		re, err := compile(p, strict)
		if err != nil {
			return nil, err
		}
		for _, ch := range t.rows {
			if re.MatchString(ch.Assign) || re.MatchString(ch.Desc) {
				res = append(res, ch)
			}
		}
	}
	if len(res) == 0 {
		return nil, &models.NotFoundError{Patterns: patterns}
	}
	return res, nil
}

func compile(pattern string, strict bool) (*regexp.Regexp, error) {
	expr := "^(?:" + pattern + ")"
	if strict {
		expr += "[+-]?$"
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &models.ConfigError{Field: "pattern", Msg: fmt.Sprintf("%q: %v", pattern, err)}
	}
	return re, nil
}
