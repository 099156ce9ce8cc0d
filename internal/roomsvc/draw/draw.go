// Package draw runs the per-room round state machine. Callers must hold the
// room's lock for the whole call.
package draw

import (
	"math/rand"
	"slices"
	"time"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/card"
	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

type Engine struct {
	Min      int
	Max      int
	CardSize int
	Now      func() time.Time
}

func NewEngine(min, max, cardSize int) *Engine {
	return &Engine{Min: min, Max: max, CardSize: cardSize, Now: time.Now}
}

type Result struct {
	Number int
	Winner *models.Player // nil unless this draw completed a card
	Over   bool           // round became terminal on this draw
}

// Start (re)initialises the round and deals every current player a new card.
func (e *Engine) Start(room *models.Room) error {
	cards := make([][]int, len(room.Players))
	for i := range room.Players {
		c, err := card.Card(e.Min, e.Max, e.CardSize)
		if err != nil {
			return err
		}
		cards[i] = c
	}

	pool := card.Pool(e.Min, e.Max)
	now := e.Now()
	room.Round = models.Round{
		Active:    true,
		Drawn:     make([]int, 0, len(pool)),
		Remaining: pool,
		StartedAt: now,
	}
	for i, p := range room.Players {
		p.Card = cards[i]
		p.Matched = 0
		p.HasWon = false
	}
	room.UpdatedAt = now
	return nil
}

// Idle resets the round to a full, not yet started pool.
func (e *Engine) Idle(room *models.Room) {
	room.Round = models.Round{Remaining: card.Pool(e.Min, e.Max)}
}

// Deal builds a card for a player joining room now. Numbers already drawn in
// the current round count as matched, but a dealt card is never complete:
// at least one of its numbers is still in the pool. Between rounds the card
// only counts from the next start.
func (e *Engine) Deal(room *models.Room) ([]int, int, error) {
	c, err := card.Card(e.Min, e.Max, e.CardSize)
	if err != nil {
		return nil, 0, err
	}
	r := &room.Round
	if !r.Active {
		return c, 0, nil
	}

	matched := 0
	for _, n := range r.Drawn {
		if _, ok := slices.BinarySearch(c, n); ok {
			matched++
		}
	}
	if matched == len(c) && len(r.Remaining) > 0 {
		// every number on c was drawn, so any pool number is new to c
		c[rand.Intn(len(c))] = r.Remaining[rand.Intn(len(r.Remaining))]
		slices.Sort(c)
		matched--
	}
	return c, matched, nil
}

// Next pops one number off the pool and scores it. When several players
// complete their card on the same draw, the earliest joined one wins.
func (e *Engine) Next(room *models.Room) (Result, error) {
	r := &room.Round
	if !r.Active {
		return Result{}, apperr.ErrRoundNotActive
	}
	if len(r.Remaining) == 0 {
		return Result{}, apperr.ErrPoolExhausted
	}

	last := len(r.Remaining) - 1
	n := r.Remaining[last]
	r.Remaining = r.Remaining[:last]
	r.Drawn = append(r.Drawn, n)
	r.LastDrawn = n
	room.UpdatedAt = e.Now()

	for _, p := range room.Players {
		if p.HasNumber(n) && p.Matched < len(p.Card) {
			p.Matched++
		}
	}

	res := Result{Number: n}
	for _, p := range room.Players {
		if !p.HasWon && len(p.Card) > 0 && p.Matched == len(p.Card) {
			p.HasWon = true
			r.Winner = p.ID
			r.Active = false
			res.Winner = p
			res.Over = true
			break
		}
	}

	if res.Winner == nil && len(r.Remaining) == 0 {
		r.Active = false
		res.Over = true
	}
	return res, nil
}
