package models

import "time"

type Settings struct {
	MaxPlayers  int  `json:"maxPlayers"`
	ShowSmorfia bool `json:"showSmorfia"`
	AutoMark    bool `json:"autoMark"`
	AutoStart   bool `json:"autoStart"`
}

// RoomOperator points at the operator account and the connection currently
// bound to it. ConnID is empty while the operator is disconnected.
type RoomOperator struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	ConnID string `json:"connId,omitempty"`
}

type Room struct {
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Operator  RoomOperator `json:"operator"`
	Players   []*Player    `json:"players"` // join order
	Round     Round        `json:"round"`
	Settings  Settings     `json:"settings"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (r *Room) Player(id string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) Winner() *Player {
	if r.Round.Winner == "" {
		return nil
	}
	p, _ := r.Player(r.Round.Winner)
	return p
}

// Clone returns a deep copy safe to hand out after the room lock is released.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		c.Players[i] = p.Clone()
	}
	c.Round = r.Round.Clone()
	return &c
}
