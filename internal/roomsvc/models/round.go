package models

import (
	"slices"
	"time"
)

type Round struct {
	Active    bool      `json:"active"`
	Drawn     []int     `json:"extractedNumbers"` // draw order
	LastDrawn int       `json:"lastExtracted"`    // 0 before the first draw
	Remaining []int     `json:"-"`                // popped from the end
	Winner    string    `json:"winner,omitempty"` // player id
	StartedAt time.Time `json:"startedAt"`
}

// Exhausted reports a finished round that ran out of numbers with nobody
// completing a card.
func (r *Round) Exhausted() bool {
	return !r.Active && r.Winner == "" && len(r.Remaining) == 0 && len(r.Drawn) > 0
}

func (r *Round) Finished() bool {
	return r.Winner != "" || r.Exhausted()
}

func (r *Round) Clone() Round {
	c := *r
	c.Drawn = slices.Clone(r.Drawn)
	c.Remaining = slices.Clone(r.Remaining)
	return c
}
