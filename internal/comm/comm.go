package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "create-room", "extract-number"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
	RoomCode string          `json:"roomcode,omitempty"` // set on messages mirrored to NATS
}

// client -> server
const (
	AdminLogin    = "admin-login"
	CreateAdmin   = "create-admin"
	CreateRoom    = "create-room"
	JoinRoom      = "join-room"
	StartGame     = "start-game"
	NewGame       = "new-game"
	ExtractNumber = "extract-number"
	MarkNumber    = "mark-number"
	AutoDraw      = "auto-draw"
	RebindRoom    = "rebind-room"
	Ping          = "ping"
)

// server -> client
const (
	LoginSuccess     = "login-success"
	LoginError       = "login-error"
	AdminCreated     = "admin-created"
	RoomCreated      = "room-created"
	RoomJoined       = "room-joined"
	CardDealt        = "card-dealt"
	RoomRebound      = "room-rebound"
	PlayerJoined     = "player-joined"
	PlayerLeft       = "player-left"
	OperatorLeft     = "operator-left"
	OperatorRejoined = "operator-rejoined"
	RoomClosed       = "room-closed"
	GameStarted      = "game-started"
	NewGameStarted   = "new-game-started"
	NumberExtracted  = "number-extracted"
	NumberMarked     = "number-marked"
	GameWon          = "game-won"
	AutoDrawUpdated  = "auto-draw-updated"
	Pong             = "pong"
	Error            = "error"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type CreateRoomRequest struct {
	Name       string          `json:"name"`
	MaxPlayers int             `json:"maxPlayers"`
	Settings   models.Settings `json:"settings"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Name       string `json:"name"` // older clients
}

type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type MarkRequest struct {
	RoomCode string `json:"roomCode"`
	Number   int    `json:"number"`
}

type AutoDrawRequest struct {
	RoomCode   string `json:"roomCode"`
	Enabled    bool   `json:"enabled"`
	IntervalMs int    `json:"intervalMs"`
}

type RebindRequest struct {
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type UserData struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	CardNumbers []int  `json:"cardNumbers,omitempty"`
}

type PlayerView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Matched  int       `json:"extractedCount"`
	HasWon   bool      `json:"hasWon"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoundView struct {
	Active    bool        `json:"active"`
	Drawn     []int       `json:"extractedNumbers"`
	LastDrawn int         `json:"lastExtracted"`
	Remaining int         `json:"remaining"`
	Winner    *PlayerView `json:"winner"`
	StartedAt *time.Time  `json:"startedAt"`
}

type RoomView struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Operator  string          `json:"admin"`
	Online    bool            `json:"adminOnline"`
	Players   []PlayerView    `json:"players"`
	Game      RoundView       `json:"game"`
	Settings  models.Settings `json:"settings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RoomSummary is one row of the room listing.
type RoomSummary struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Operator   string    `json:"admin"`
	Players    int       `json:"players"`
	GameActive bool      `json:"gameActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RoomCreatedData struct {
	RoomCode string   `json:"roomCode"`
	Room     RoomView `json:"room"`
	User     UserData `json:"user"`
}

type RoomJoinedData struct {
	Room RoomView `json:"room"`
	User UserData `json:"user"`
}

type RosterData struct {
	Player   *PlayerView  `json:"player,omitempty"`
	PlayerId string       `json:"playerId,omitempty"`
	Players  []PlayerView `json:"players"`
}

type RoomData struct {
	Room RoomView `json:"room"`
}

type NumberData struct {
	Number  int      `json:"number"`
	Meaning string   `json:"meaning,omitempty"`
	Room    RoomView `json:"room"`
}

type WinData struct {
	Winner PlayerView `json:"winner"`
	Room   RoomView   `json:"room"`
}

type NoticeData struct {
	Message      string `json:"message"`
	GraceSeconds int    `json:"graceSeconds,omitempty"`
}

type MarkedData struct {
	Number int `json:"number"`
}

type AutoDrawData struct {
	Enabled    bool `json:"enabled"`
	IntervalMs int  `json:"intervalMs"`
}

type PongData struct {
	Timestamp int64 `json:"timestamp"`
}

type LoginData struct {
	Operator *models.Operator `json:"operator"`
	Token    string           `json:"token"`
}

func NewPlayerView(p *models.Player) PlayerView {
	return PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		Matched:  p.Matched,
		HasWon:   p.HasWon,
		JoinedAt: p.JoinedAt,
	}
}

func NewPlayerViews(players []*models.Player) []PlayerView {
	views := make([]PlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, NewPlayerView(p))
	}
	return views
}

// NewRoomView renders the public state of a room. The undrawn pool and
// other players' cards never leave the server.
func NewRoomView(r *models.Room) RoomView {
	round := RoundView{
		Active:    r.Round.Active,
		Drawn:     append([]int{}, r.Round.Drawn...),
		LastDrawn: r.Round.LastDrawn,
		Remaining: len(r.Round.Remaining),
	}
	if !r.Round.StartedAt.IsZero() {
		started := r.Round.StartedAt
		round.StartedAt = &started
	}
	if w := r.Winner(); w != nil {
		v := NewPlayerView(w)
		round.Winner = &v
	}

	return RoomView{
		Code:      r.Code,
		Name:      r.Name,
		Operator:  r.Operator.Name,
		Online:    r.Operator.ConnID != "",
		Players:   NewPlayerViews(r.Players),
		Game:      round,
		Settings:  r.Settings,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func NewRoomSummary(r *models.Room) RoomSummary {
	return RoomSummary{
		Code:       r.Code,
		Name:       r.Name,
		Operator:   r.Operator.Name,
		Players:    len(r.Players),
		GameActive: r.Round.Active,
		CreatedAt:  r.CreatedAt,
	}
}
