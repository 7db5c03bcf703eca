package models

// Shift is an integer pixel translation of one scan relative to the reference scan
type Shift struct {
	DX, DY int
}

// ShiftTable holds one Shift per scan. Entry 0 is the reference.
type ShiftTable []Shift

// Recentered returns a copy of the table with (dx, dy) subtracted from every entry.
func (t ShiftTable) Recentered(dx, dy int) ShiftTable {
	out := make(ShiftTable, len(t))
	for i, s := range t {
		out[i] = Shift{DX: s.DX - dx, DY: s.DY - dy}
	}
	return out
}
