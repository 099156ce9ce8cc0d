package ws

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/auth"
	"github.com/avvvet/tombola-service/internal/roomsvc/caller"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
	"github.com/avvvet/tombola-service/internal/roomsvc/room"
)

const authTimeout = 5 * time.Second

var errBadPayload = apperr.Validation("invalid_payload", "malformed message data")

// Ws turns websocket messages into room directory calls.
type Ws struct {
	reg    *registry.Registry
	dir    *room.Directory
	auth   *auth.Service
	caller *caller.Caller
	notify room.Notifier
}

func NewWs(reg *registry.Registry, dir *room.Directory, authSvc *auth.Service, autoCaller *caller.Caller, notify room.Notifier) *Ws {
	return &Ws{reg: reg, dir: dir, auth: authSvc, caller: autoCaller, notify: notify}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic handling %s from socket %s: %v\n%s", message.Type, socketId, r, debug.Stack())
			s.SendError(socketId, apperr.ErrInternal)
		}
	}()

	var err error
	switch message.Type {
	case comm.AdminLogin:
		err = s.handleLogin(socketId, message)
	case comm.CreateAdmin:
		err = s.handleCreateAdmin(socketId, message)
	case comm.CreateRoom:
		err = s.handleCreateRoom(socketId, message)
	case comm.JoinRoom:
		err = s.handleJoinRoom(socketId, message)
	case comm.StartGame:
		err = s.handleStart(socketId, message, false)
	case comm.NewGame:
		err = s.handleStart(socketId, message, true)
	case comm.ExtractNumber:
		err = s.handleExtract(socketId, message)
	case comm.MarkNumber:
		err = s.handleMark(socketId, message)
	case comm.AutoDraw:
		err = s.handleAutoDraw(socketId, message)
	case comm.RebindRoom:
		err = s.handleRebind(socketId, message)
	case comm.Ping:
		s.notify.ToSocket(socketId, comm.Pong, comm.PongData{Timestamp: time.Now().UnixMilli()})
	default:
		log.Warnf("unknown event received: %s", message.Type)
		err = apperr.Validation("unknown_event", "unknown message type "+message.Type)
	}

	if err != nil {
		s.SendError(socketId, err)
	}
}

// SendError reports err to the requesting socket only.
func (s *Ws) SendError(socketId string, err error) {
	pub := apperr.Public(err)
	if pub.Kind == apperr.KindInternal {
		log.Errorf("request from socket %s failed: %v", socketId, err)
	} else {
		log.Debugf("request from socket %s rejected: %v", socketId, err)
	}
	s.notify.ToSocket(socketId, comm.Error, comm.ErrorData{
		Code:    pub.Code,
		Kind:    string(pub.Kind),
		Message: pub.Message,
	})
}

// Authenticate attaches the operator named by token to the socket.
func (s *Ws) Authenticate(socketId, token string) error {
	sess, ok := s.reg.Get(socketId)
	if !ok {
		return apperr.New(apperr.KindNotFound, "connection_not_found", "connection is gone")
	}
	id, err := s.auth.Verify(token)
	if err != nil {
		return err
	}
	sess.SetOperator(&id)
	log.Infof("socket %s authenticated as operator %s", socketId, id.Email)
	return nil
}

func decode(msg *comm.WSMessage, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return errBadPayload
	}
	return nil
}

func (s *Ws) operator(socketId string) (*registry.Identity, error) {
	sess, ok := s.reg.Get(socketId)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	id := sess.Operator()
	if id == nil {
		return nil, apperr.ErrUnauthorized
	}
	return id, nil
}

func (s *Ws) handleLogin(socketId string, msg *comm.WSMessage) error {
	var req comm.LoginRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	sess, ok := s.reg.Get(socketId)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	op, token, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		pub := apperr.Public(err)
		if pub.Kind == apperr.KindInternal {
			log.Errorf("login for %s failed: %v", req.Email, err)
		}
		s.notify.ToSocket(socketId, comm.LoginError, comm.ErrorData{
			Code:    pub.Code,
			Kind:    string(pub.Kind),
			Message: pub.Message,
		})
		return nil
	}

	sess.SetOperator(auth.Identity(op))
	s.notify.ToSocket(socketId, comm.LoginSuccess, comm.LoginData{Operator: op, Token: token})
	return nil
}

func (s *Ws) handleCreateAdmin(socketId string, msg *comm.WSMessage) error {
	var req comm.CreateAdminRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	by, err := s.operator(socketId)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	op, err := s.auth.CreateOperator(ctx, by, req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	s.notify.ToSocket(socketId, comm.AdminCreated, comm.LoginData{Operator: op})
	return nil
}

func (s *Ws) handleCreateRoom(socketId string, msg *comm.WSMessage) error {
	var req comm.CreateRoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	id, err := s.operator(socketId)
	if err != nil {
		return err
	}

	settings := req.Settings
	if req.MaxPlayers != 0 {
		settings.MaxPlayers = req.MaxPlayers
	}
	_, err = s.dir.Create(socketId, *id, req.Name, settings)
	return err
}

func (s *Ws) handleJoinRoom(socketId string, msg *comm.WSMessage) error {
	var req comm.JoinRoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	name := req.PlayerName
	if name == "" {
		name = req.Name
	}
	_, err := s.dir.Join(socketId, req.RoomCode, name)
	return err
}

func (s *Ws) handleStart(socketId string, msg *comm.WSMessage, reset bool) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	_, err := s.dir.Start(socketId, req.RoomCode, reset)
	return err
}

func (s *Ws) handleExtract(socketId string, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	_, err := s.dir.Draw(socketId, req.RoomCode)
	return err
}

func (s *Ws) handleMark(socketId string, msg *comm.WSMessage) error {
	var req comm.MarkRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	return s.dir.Mark(socketId, req.RoomCode, req.Number)
}

func (s *Ws) handleAutoDraw(socketId string, msg *comm.WSMessage) error {
	var req comm.AutoDrawRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	r, err := s.dir.Get(req.RoomCode)
	if err != nil {
		return err
	}
	if r.Operator.ConnID != socketId {
		return apperr.ErrUnauthorized
	}
	// r is a snapshot. If the operator loses the room before the first tick,
	// that draw fails authorization and the caller stops itself.

	interval := caller.Interval(req.IntervalMs)
	if req.Enabled {
		if !r.Round.Active {
			return apperr.ErrRoundNotActive
		}
		s.caller.Start(r.Code, socketId, interval)
	} else {
		s.caller.Stop(r.Code)
	}
	s.notify.ToRoom(r.Code, comm.AutoDrawUpdated, comm.AutoDrawData{
		Enabled:    req.Enabled,
		IntervalMs: int(interval / time.Millisecond),
	})
	return nil
}

func (s *Ws) handleRebind(socketId string, msg *comm.WSMessage) error {
	var req comm.RebindRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	if req.Token != "" {
		if err := s.Authenticate(socketId, req.Token); err != nil {
			return err
		}
	}
	id, err := s.operator(socketId)
	if err != nil {
		return err
	}
	_, err = s.dir.Rebind(socketId, req.RoomCode, *id)
	return err
}
