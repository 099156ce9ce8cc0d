package models

import (
	"slices"
	"time"
)

type Player struct {
	ID       string    `json:"id"` // connection id
	Name     string    `json:"name"`
	Card     []int     `json:"cardNumbers"`
	Matched  int       `json:"extractedCount"`
	HasWon   bool      `json:"hasWon"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (p *Player) HasNumber(n int) bool {
	_, found := slices.BinarySearch(p.Card, n)
	return found
}

func (p *Player) Clone() *Player {
	c := *p
	c.Card = slices.Clone(p.Card)
	return &c
}
