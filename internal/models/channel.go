package models

import "fmt"

// Channel is one row of the peak table: a named mass window with an identifier
// that selects an image-stack slot.
type Channel struct {
	// ID selects the image slot. 0 and 1 are reserved and never selected by mass.
	ID int

	// LowerMass and UpperMass bound the window (inclusive)
	LowerMass float64
	UpperMass float64

	// CenterMass is the centroid of the window
	CenterMass float64

	// Assign is the human readable assignment, e.g. "Na+". May be empty.
	Assign string

	// Desc is a free-form description
	Desc string
}

// Label returns the assignment, or the centroid mass when the channel is unassigned.
func (c Channel) Label() string {
	if c.Assign != "" {
		return c.Assign
	}
	return fmt.Sprintf("%.2fu", c.CenterMass)
}

// Contains reports whether mass falls inside [LowerMass, UpperMass].
func (c Channel) Contains(mass float64) bool {
	return c.LowerMass <= mass && mass <= c.UpperMass
}

func (c Channel) String() string {
	return fmt.Sprintf("%s (%s), mass: %.2f - %.2f", c.Assign, c.Desc, c.LowerMass, c.UpperMass)
}
