// Package lifecycle reacts to websocket connections coming and going.
package lifecycle

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
)

// Rooms is the part of the room directory a disconnect touches.
type Rooms interface {
	ReleaseOperator(connID, code string, grace time.Duration) error
	Leave(connID, code string) error
}

type Supervisor struct {
	reg   *registry.Registry
	rooms Rooms
	grace time.Duration
}

// New returns a Supervisor applying one grace period to every room. A zero
// grace closes a room the moment its operator connection drops.
func New(reg *registry.Registry, rooms Rooms, grace time.Duration) *Supervisor {
	if grace < 0 {
		grace = 0
	}
	return &Supervisor{reg: reg, rooms: rooms, grace: grace}
}

func (s *Supervisor) Grace() time.Duration {
	return s.grace
}

func (s *Supervisor) Connect(sess *registry.Session) {
	s.reg.Store(sess)
	log.Infof("connection %s opened from %s (%d live)", sess.ID, sess.IP, s.reg.Count())
}

// Disconnect releases whatever room the connection held, then forgets it.
func (s *Supervisor) Disconnect(socketId string) {
	sess, ok := s.reg.Get(socketId)
	if !ok {
		return
	}

	code := sess.RoomCode()
	var err error
	switch sess.Role() {
	case registry.RoleOperator:
		err = s.rooms.ReleaseOperator(socketId, code, s.grace)
	case registry.RolePlayer:
		err = s.rooms.Leave(socketId, code)
	}
	if err != nil && !errors.Is(err, apperr.ErrRoomNotFound) {
		log.Errorf("releasing room %s for connection %s: %v", code, socketId, err)
	}

	s.reg.Delete(socketId)
	sess.Close()
	log.Infof("connection %s closed (%d live)", socketId, s.reg.Count())
}
