package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
)

const (
	RoomTopicPrefix = "tombola.room."
	ControlTopic    = "tombola.control"
)

// control messages accepted on ControlTopic
const (
	CloseRoom = "close-room"
)

type CloseRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// Broker fans events out to websocket sessions and mirrors room events to
// NATS when a connection is configured.
type Broker struct {
	Conn *nats.Conn
	reg  *registry.Registry

	closeRoom func(code, reason string) error
}

func NewBroker(conn *nats.Conn, reg *registry.Registry) *Broker {
	return &Broker{Conn: conn, reg: reg}
}

// ToRoom enqueues the event on every session bound to roomCode. It never blocks.
func (b *Broker) ToRoom(roomCode, msgType string, payload any) {
	msg, ok := encode(msgType, payload)
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling %s for room %s: %v", msgType, roomCode, err)
		return
	}
	for _, s := range b.reg.RoomSessions(roomCode) {
		if !s.Enqueue(data) {
			log.Warnf("dropped %s for socket %s in room %s: send queue full", msgType, s.ID, roomCode)
		}
	}

	if b.Conn != nil {
		msg.RoomCode = roomCode
		mirror, err := json.Marshal(msg)
		if err != nil {
			log.Errorf("Error marshaling mirror of %s: %v", msgType, err)
			return
		}
		// Publish only buffers; nats flushes in the background.
		_ = b.Publish(RoomTopicPrefix+roomCode, mirror)
	}
}

func (b *Broker) ToSocket(socketId, msgType string, payload any) {
	s, ok := b.reg.Get(socketId)
	if !ok {
		return
	}
	msg, ok := encode(msgType, payload)
	if !ok {
		return
	}
	msg.SocketId = socketId

	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling %s for socket %s: %v", msgType, socketId, err)
		return
	}
	if !s.Enqueue(data) {
		log.Warnf("dropped %s for socket %s: send queue full", msgType, socketId)
	}
}

func encode(msgType string, payload any) (*comm.WSMessage, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Error marshaling %s payload: %v", msgType, err)
		return nil, false
	}
	return &comm.WSMessage{Type: msgType, Data: data}, true
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// SubscribeControl listens for operational commands, such as closing a room
// from outside the websocket surface.
func (b *Broker) SubscribeControl(closeRoom func(code, reason string) error) (*nats.Subscription, error) {
	b.closeRoom = closeRoom
	sub, err := b.Conn.Subscribe(ControlTopic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.handleControl(msgNats.Data)
}

func (b *Broker) handleControl(raw []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		log.Errorf("Error decoding control message: %s", err)
		return
	}

	switch message.Type {
	case CloseRoom:
		var req CloseRoomRequest
		if err := json.Unmarshal(message.Data, &req); err != nil {
			log.Errorf("Error decoding %s: %s", CloseRoom, err)
			return
		}
		if req.Reason == "" {
			req.Reason = "The room was closed"
		}
		if err := b.closeRoom(req.RoomCode, req.Reason); err != nil {
			log.Warnf("%s %s: %v", CloseRoom, req.RoomCode, err)
		}
	default:
		log.Warnf("unknown control message: %s", message.Type)
	}
}
