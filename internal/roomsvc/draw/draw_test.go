package draw

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

func newRoom(players ...string) *models.Room {
	room := &models.Room{Code: "ABC234", CreatedAt: time.Now()}
	for _, id := range players {
		room.Players = append(room.Players, &models.Player{ID: id, Name: id})
	}
	return room
}

func checkInvariant(t *testing.T, r models.Round) {
	t.Helper()
	require.Equal(t, 90, len(r.Drawn)+len(r.Remaining))
	seen := map[int]bool{}
	for _, n := range r.Drawn {
		require.False(t, seen[n], "%d drawn twice", n)
		seen[n] = true
	}
	for _, n := range r.Remaining {
		require.False(t, seen[n], "%d both drawn and remaining", n)
		seen[n] = true
	}
	if len(r.Drawn) > 0 {
		require.Equal(t, r.Drawn[len(r.Drawn)-1], r.LastDrawn)
	}
}

func TestStartDealsCards(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom("p1", "p2")
	room.Players[0].Matched = 7
	room.Players[0].HasWon = true

	require.NoError(t, e.Start(room))

	assert.True(t, room.Round.Active)
	assert.Empty(t, room.Round.Drawn)
	assert.Len(t, room.Round.Remaining, 90)
	assert.Empty(t, room.Round.Winner)
	for _, p := range room.Players {
		assert.Len(t, p.Card, 15)
		assert.Zero(t, p.Matched)
		assert.False(t, p.HasWon)
	}
	checkInvariant(t, room.Round)
}

func TestNextRequiresActiveRound(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom("p1")
	e.Idle(room)

	_, err := e.Next(room)
	assert.ErrorIs(t, err, apperr.ErrRoundNotActive)
	assert.Empty(t, room.Round.Drawn)
	assert.Len(t, room.Round.Remaining, 90)
}

func TestDrawToExhaustion(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom("p1")
	require.NoError(t, e.Start(room))
	p := room.Players[0]

	var winnerAt int
	prev := 0
	for i := 1; i <= 90; i++ {
		res, err := e.Next(room)
		require.NoError(t, err)
		checkInvariant(t, room.Round)

		require.GreaterOrEqual(t, p.Matched, prev, "matched count decreased")
		require.LessOrEqual(t, p.Matched, 15)
		prev = p.Matched

		if res.Winner != nil {
			winnerAt = i
			break
		}
	}

	// a single player always completes a 15 number card before the pool runs out
	require.NotZero(t, winnerAt)
	assert.True(t, p.HasWon)
	assert.Equal(t, 15, p.Matched)
	assert.Equal(t, p.ID, room.Round.Winner)
	assert.False(t, room.Round.Active)
	assert.Contains(t, p.Card, room.Round.LastDrawn)

	_, err := e.Next(room)
	assert.ErrorIs(t, err, apperr.ErrRoundNotActive)
}

func TestExhaustionWithoutWinner(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom()
	require.NoError(t, e.Start(room))

	for i := 0; i < 90; i++ {
		res, err := e.Next(room)
		require.NoError(t, err)
		assert.Equal(t, i == 89, res.Over)
	}
	assert.False(t, room.Round.Active)
	assert.Empty(t, room.Round.Remaining)
	assert.Empty(t, room.Round.Winner)
	assert.True(t, room.Round.Exhausted())
	checkInvariant(t, room.Round)

	_, err := e.Next(room)
	assert.ErrorIs(t, err, apperr.ErrRoundNotActive)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestPoolExhaustedOnInconsistentActiveRound(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom()
	room.Round = models.Round{Active: true}

	_, err := e.Next(room)
	assert.ErrorIs(t, err, apperr.ErrPoolExhausted)
}

func TestSimultaneousCompletionJoinOrderWins(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom("early", "late")

	cardA := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 50}
	cardB := []int{20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 50}
	room.Players[0].Card = cardA
	room.Players[0].Matched = 14
	room.Players[1].Card = cardB
	room.Players[1].Matched = 14

	drawn := []int{}
	drawn = append(drawn, cardA[:14]...)
	drawn = append(drawn, cardB[:14]...)
	var remaining []int
	for n := 1; n <= 90; n++ {
		if !slices.Contains(drawn, n) && n != 50 {
			remaining = append(remaining, n)
		}
	}
	remaining = append(remaining, 50) // next to pop
	room.Round = models.Round{Active: true, Drawn: drawn, Remaining: remaining, LastDrawn: drawn[len(drawn)-1]}
	checkInvariant(t, room.Round)

	res, err := e.Next(room)
	require.NoError(t, err)
	require.Equal(t, 50, res.Number)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "early", res.Winner.ID)

	assert.True(t, room.Players[0].HasWon)
	assert.False(t, room.Players[1].HasWon)
	assert.Equal(t, 15, room.Players[1].Matched)
	assert.Equal(t, "early", room.Round.Winner)
	assert.False(t, room.Round.Active)

	won := 0
	for _, p := range room.Players {
		if p.HasWon {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestDealCountsDrawnNumbers(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom()
	require.NoError(t, e.Start(room))
	for i := 0; i < 45; i++ {
		_, err := e.Next(room)
		require.NoError(t, err)
	}

	c, matched, err := e.Deal(room)
	require.NoError(t, err)
	want := 0
	for _, n := range c {
		if slices.Contains(room.Round.Drawn, n) {
			want++
		}
	}
	assert.Equal(t, want, matched)
}

func TestDealNeverCompletesCard(t *testing.T) {
	e := NewEngine(1, 90, 15)
	for run := 0; run < 20; run++ {
		room := newRoom()
		require.NoError(t, e.Start(room))
		for i := 0; i < 89; i++ {
			_, err := e.Next(room)
			require.NoError(t, err)
		}

		c, matched, err := e.Deal(room)
		require.NoError(t, err)
		require.Len(t, c, 15)
		assert.True(t, slices.IsSorted(c))
		assert.Equal(t, 14, matched)
		assert.Contains(t, c, room.Round.Remaining[0])
		assert.Len(t, slices.Compact(slices.Clone(c)), 15)
	}
}

func TestDealBetweenRounds(t *testing.T) {
	e := NewEngine(1, 90, 15)
	room := newRoom()
	e.Idle(room)

	c, matched, err := e.Deal(room)
	require.NoError(t, err)
	assert.Len(t, c, 15)
	assert.Equal(t, 0, matched)
}
