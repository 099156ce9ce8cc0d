// Package room owns every live room. Each room sits behind its own mutex so
// work on one room never waits on another.
package room

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/content"
	"github.com/avvvet/tombola-service/internal/roomsvc/draw"
	"github.com/avvvet/tombola-service/internal/roomsvc/models"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
)

// Notifier delivers events to connections. Directory calls it while holding
// the room lock, so implementations must not block.
type Notifier interface {
	ToRoom(roomCode, msgType string, payload any)
	ToSocket(socketId, msgType string, payload any)
}

// Archiver records rounds that ended or were abandoned. It receives a copy.
type Archiver interface {
	Archive(room *models.Room, outcome string)
}

const (
	OutcomeWon       = "won"
	OutcomeExhausted = "exhausted"
	OutcomeAbandoned = "abandoned"
)

type Options struct {
	NumberMin           int
	NumberMax           int
	CardSize            int
	DefaultMaxPlayers   int
	MaxPlayersPerRoom   int
	MaxRoomsPerOperator int
	JoinLockAfter       time.Duration
}

type entry struct {
	mu    sync.Mutex
	room  *models.Room
	owner string // operator account, immutable
	gone  bool

	grace    *time.Timer
	graceGen uint64
}

type Directory struct {
	opts    Options
	engine  *draw.Engine
	reg     *registry.Registry
	notify  Notifier
	archive Archiver

	mu    sync.RWMutex
	rooms map[string]*entry

	onRemove []func(code string)
}

func NewDirectory(opts Options, reg *registry.Registry, notify Notifier, archive Archiver) *Directory {
	if opts.DefaultMaxPlayers == 0 {
		opts.DefaultMaxPlayers = 20
	}
	if opts.MaxPlayersPerRoom == 0 {
		opts.MaxPlayersPerRoom = 50
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Directory{
		opts:    opts,
		engine:  draw.NewEngine(opts.NumberMin, opts.NumberMax, opts.CardSize),
		reg:     reg,
		notify:  notify,
		archive: archive,
		rooms:   make(map[string]*entry),
	}
}

// OnRemove registers fn to run whenever a room is removed. fn runs under the
// room lock and must not block. Register hooks before serving requests.
func (d *Directory) OnRemove(fn func(code string)) {
	d.onRemove = append(d.onRemove, fn)
}

// acquire returns the locked entry for code.
func (d *Directory) acquire(code string) (*entry, error) {
	d.mu.RLock()
	e, ok := d.rooms[NormalizeCode(code)]
	d.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrRoomNotFound
	}

	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return nil, apperr.ErrRoomNotFound
	}
	return e, nil
}

func authorize(e *entry, connID string) error {
	if connID == "" || e.room.Operator.ConnID != connID {
		return apperr.ErrUnauthorized
	}
	return nil
}

func validName(name string, min, max int) bool {
	n := utf8.RuneCountInString(name)
	return n >= min && n <= max
}

func (d *Directory) Create(connID string, op registry.Identity, name string, settings models.Settings) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if !validName(name, 3, 50) {
		return nil, apperr.Validation("invalid_room_name", "room name must be 3 to 50 characters")
	}
	if op.Email == "" {
		return nil, apperr.ErrUnauthorized
	}

	switch {
	case settings.MaxPlayers == 0:
		settings.MaxPlayers = d.opts.DefaultMaxPlayers
	case settings.MaxPlayers < 2:
		settings.MaxPlayers = 2
	case settings.MaxPlayers > d.opts.MaxPlayersPerRoom:
		settings.MaxPlayers = d.opts.MaxPlayersPerRoom
	}

	now := time.Now()
	e := &entry{owner: op.Email}
	e.mu.Lock()
	defer e.mu.Unlock()

	d.mu.Lock()
	if d.opts.MaxRoomsPerOperator > 0 && d.countOwnedLocked(op.Email) >= d.opts.MaxRoomsPerOperator {
		d.mu.Unlock()
		return nil, apperr.ErrTooManyRooms
	}

	code := ""
	for i := 0; i < codeAttempts; i++ {
		c := newCode()
		if _, taken := d.rooms[c]; !taken {
			code = c
			break
		}
	}
	if code == "" {
		d.mu.Unlock()
		log.Errorf("room code space exhausted after %d attempts", codeAttempts)
		return nil, apperr.ErrInternal
	}

	if err := d.reg.Bind(connID, registry.RoleOperator, code); err != nil {
		d.mu.Unlock()
		return nil, err
	}

	e.room = &models.Room{
		Code:      code,
		Name:      name,
		Operator:  models.RoomOperator{Email: op.Email, Name: op.Name, ConnID: connID},
		Players:   []*models.Player{},
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if settings.AutoStart {
		if err := d.engine.Start(e.room); err != nil {
			d.reg.Unbind(connID, code)
			d.mu.Unlock()
			return nil, err
		}
	} else {
		d.engine.Idle(e.room)
	}
	d.rooms[code] = e
	d.mu.Unlock()

	log.Infof("room %s created by %s (conn %s)", code, op.Email, connID)

	d.notify.ToSocket(connID, comm.RoomCreated, comm.RoomCreatedData{
		RoomCode: code,
		Room:     comm.NewRoomView(e.room),
		User:     comm.UserData{ID: connID, Role: string(registry.RoleOperator), Name: op.Name},
	})
	return e.room.Clone(), nil
}

func (d *Directory) countOwnedLocked(email string) int {
	n := 0
	for _, e := range d.rooms {
		if e.owner == email {
			n++
		}
	}
	return n
}

func (d *Directory) Join(connID, code, playerName string) (*models.Player, error) {
	e, err := d.acquire(code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	room := e.room

	playerName = strings.TrimSpace(playerName)
	if !validName(playerName, 2, 20) {
		return nil, apperr.Validation("invalid_player_name", "player name must be 2 to 20 characters")
	}
	if err := d.reg.CanBind(connID); err != nil {
		return nil, err
	}
	for _, p := range room.Players {
		if strings.EqualFold(p.Name, playerName) {
			return nil, apperr.ErrNameTaken
		}
	}
	if len(room.Players) >= room.Settings.MaxPlayers {
		return nil, apperr.ErrRoomFull
	}
	if d.opts.JoinLockAfter > 0 && room.Round.Active && time.Since(room.Round.StartedAt) > d.opts.JoinLockAfter {
		return nil, apperr.ErrRoundInProgress
	}

	cardNumbers, matched, err := d.engine.Deal(room)
	if err != nil {
		return nil, err
	}
	if err := d.reg.Bind(connID, registry.RolePlayer, room.Code); err != nil {
		return nil, err
	}

	now := time.Now()
	player := &models.Player{
		ID:       connID,
		Name:     playerName,
		Card:     cardNumbers,
		Matched:  matched,
		JoinedAt: now,
	}
	room.Players = append(room.Players, player)
	room.UpdatedAt = now

	log.Infof("%s joined room %s (%d/%d)", playerName, room.Code, len(room.Players), room.Settings.MaxPlayers)

	d.notify.ToSocket(connID, comm.RoomJoined, comm.RoomJoinedData{
		Room: comm.NewRoomView(room),
		User: comm.UserData{ID: connID, Role: string(registry.RolePlayer), Name: playerName, CardNumbers: cardNumbers},
	})
	pv := comm.NewPlayerView(player)
	d.notify.ToRoom(room.Code, comm.PlayerJoined, comm.RosterData{
		Player:  &pv,
		Players: comm.NewPlayerViews(room.Players),
	})
	return player.Clone(), nil
}

// Start begins a round, or restarts the current one when reset is set.
// Only the bound operator connection may call it.
func (d *Directory) Start(connID, code string, reset bool) (*models.Room, error) {
	e, err := d.acquire(code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if err := authorize(e, connID); err != nil {
		return nil, err
	}

	d.archiveAbandoned(e)
	if err := d.engine.Start(e.room); err != nil {
		return nil, err
	}

	msgType := comm.GameStarted
	if reset {
		msgType = comm.NewGameStarted
	}
	log.Infof("round started in room %s (%d players)", e.room.Code, len(e.room.Players))

	d.notify.ToRoom(e.room.Code, msgType, comm.RoomData{Room: comm.NewRoomView(e.room)})
	// every card changed; each player gets their own
	for _, p := range e.room.Players {
		d.notify.ToSocket(p.ID, comm.CardDealt, comm.UserData{
			ID: p.ID, Role: string(registry.RolePlayer), Name: p.Name, CardNumbers: p.Card,
		})
	}
	return e.room.Clone(), nil
}

type Drawn struct {
	Number  int
	Meaning string
	Winner  *models.Player
	Over    bool
}

func (d *Directory) Draw(connID, code string) (Drawn, error) {
	e, err := d.acquire(code)
	if err != nil {
		return Drawn{}, err
	}
	defer e.mu.Unlock()

	if err := authorize(e, connID); err != nil {
		return Drawn{}, err
	}
	res, err := d.engine.Next(e.room)
	if err != nil {
		return Drawn{}, err
	}

	out := Drawn{Number: res.Number, Meaning: content.Meaning(res.Number), Over: res.Over}
	view := comm.NewRoomView(e.room)
	d.notify.ToRoom(e.room.Code, comm.NumberExtracted, comm.NumberData{
		Number:  res.Number,
		Meaning: out.Meaning,
		Room:    view,
	})

	if res.Winner != nil {
		out.Winner = res.Winner.Clone()
		log.Infof("room %s won by %s after %d numbers", e.room.Code, res.Winner.Name, len(e.room.Round.Drawn))
		d.notify.ToRoom(e.room.Code, comm.GameWon, comm.WinData{
			Winner: comm.NewPlayerView(res.Winner),
			Room:   view,
		})
		d.archiveRound(e, OutcomeWon)
	} else if res.Over {
		log.Infof("room %s pool exhausted with no winner", e.room.Code)
		d.archiveRound(e, OutcomeExhausted)
	}
	return out, nil
}

// Mark confirms a number on the caller's own card once it has been drawn.
func (d *Directory) Mark(connID, code string, number int) error {
	e, err := d.acquire(code)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	p, _ := e.room.Player(connID)
	if p == nil {
		return apperr.ErrUnauthorized
	}
	if !p.HasNumber(number) {
		return apperr.Validation("number_not_on_card", "number is not on your card")
	}
	drawn := false
	for _, n := range e.room.Round.Drawn {
		if n == number {
			drawn = true
			break
		}
	}
	if !drawn {
		return apperr.Validation("number_not_drawn", "number has not been drawn")
	}

	d.notify.ToSocket(connID, comm.NumberMarked, comm.MarkedData{Number: number})
	return nil
}

// Leave removes a player from the room.
func (d *Directory) Leave(connID, code string) error {
	e, err := d.acquire(code)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	p, i := e.room.Player(connID)
	if p == nil {
		return nil
	}
	e.room.Players = append(e.room.Players[:i], e.room.Players[i+1:]...)
	e.room.UpdatedAt = time.Now()
	d.reg.Unbind(connID, e.room.Code)

	log.Infof("%s left room %s", p.Name, e.room.Code)

	d.notify.ToRoom(e.room.Code, comm.PlayerLeft, comm.RosterData{
		PlayerId: connID,
		Players:  comm.NewPlayerViews(e.room.Players),
	})
	return nil
}

// ReleaseOperator handles the operator connection going away. With grace <= 0
// the room is closed on the spot; otherwise it waits for a rebind until the
// grace timer fires.
func (d *Directory) ReleaseOperator(connID, code string, grace time.Duration) error {
	e, err := d.acquire(code)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.room.Operator.ConnID != connID {
		return nil
	}
	d.reg.Unbind(connID, e.room.Code)

	if grace <= 0 {
		d.removeLocked(e, "The operator left the room")
		return nil
	}

	e.room.Operator.ConnID = ""
	e.room.UpdatedAt = time.Now()
	e.graceGen++
	gen := e.graceGen
	roomCode := e.room.Code
	e.grace = time.AfterFunc(grace, func() { d.expire(roomCode, gen) })

	log.Infof("operator of room %s disconnected, closing in %s unless they return", roomCode, grace)
	d.notify.ToRoom(roomCode, comm.OperatorLeft, comm.NoticeData{
		Message:      "The operator disconnected",
		GraceSeconds: int(grace / time.Second),
	})
	return nil
}

func (d *Directory) expire(code string, gen uint64) {
	e, err := d.acquire(code)
	if err != nil {
		return
	}
	defer e.mu.Unlock()

	// a rebind after the timer fired but before we got the lock bumps graceGen
	if e.graceGen != gen || e.room.Operator.ConnID != "" {
		return
	}
	log.Infof("grace period over for room %s", code)
	d.removeLocked(e, "The operator did not come back")
}

// Rebind gives a returning operator account authority over its room again on
// a new connection, cancelling any pending grace timer.
func (d *Directory) Rebind(connID, code string, op registry.Identity) (*models.Room, error) {
	e, err := d.acquire(code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if op.Email == "" || e.owner != op.Email {
		return nil, apperr.ErrUnauthorized
	}
	room := e.room
	if room.Operator.ConnID == connID {
		return room.Clone(), nil
	}
	if err := d.reg.Bind(connID, registry.RoleOperator, room.Code); err != nil {
		return nil, err
	}
	if old := room.Operator.ConnID; old != "" {
		d.reg.Unbind(old, room.Code)
	}

	if e.grace != nil {
		e.grace.Stop()
		e.grace = nil
	}
	e.graceGen++
	room.Operator.ConnID = connID
	if op.Name != "" {
		room.Operator.Name = op.Name
	}
	room.UpdatedAt = time.Now()

	log.Infof("operator %s rebound room %s on conn %s", op.Email, room.Code, connID)

	view := comm.NewRoomView(room)
	d.notify.ToSocket(connID, comm.RoomRebound, comm.RoomData{Room: view})
	d.notify.ToRoom(room.Code, comm.OperatorRejoined, comm.RoomData{Room: view})
	return room.Clone(), nil
}

// Remove closes a room and tells everyone still inside.
func (d *Directory) Remove(code, reason string) error {
	e, err := d.acquire(code)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	d.removeLocked(e, reason)
	return nil
}

func (d *Directory) removeLocked(e *entry, reason string) {
	code := e.room.Code
	d.notify.ToRoom(code, comm.RoomClosed, comm.NoticeData{Message: reason})
	for _, s := range d.reg.RoomSessions(code) {
		d.reg.Unbind(s.ID, code)
	}
	if e.grace != nil {
		e.grace.Stop()
		e.grace = nil
	}
	d.archiveAbandoned(e)
	e.gone = true
	for _, fn := range d.onRemove {
		fn(code)
	}

	d.mu.Lock()
	delete(d.rooms, code)
	d.mu.Unlock()

	log.Infof("room %s closed: %s", code, reason)
}

func (d *Directory) Get(code string) (*models.Room, error) {
	e, err := d.acquire(code)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return e.room.Clone(), nil
}

func (d *Directory) List() []*models.Room {
	d.mu.RLock()
	entries := make([]*entry, 0, len(d.rooms))
	for _, e := range d.rooms {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.gone {
			rooms = append(rooms, e.room.Clone())
		}
		e.mu.Unlock()
	}
	return rooms
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *Directory) archiveRound(e *entry, outcome string) {
	if d.archive != nil {
		d.archive.Archive(e.room.Clone(), outcome)
	}
}

// archiveAbandoned records a round that had draws but never finished.
func (d *Directory) archiveAbandoned(e *entry) {
	if len(e.room.Round.Drawn) > 0 && !e.room.Round.Finished() {
		d.archiveRound(e, OutcomeAbandoned)
	}
}

type nopNotifier struct{}

func (nopNotifier) ToRoom(string, string, any)   {}
func (nopNotifier) ToSocket(string, string, any) {}
