package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
	"github.com/avvvet/tombola-service/internal/roomsvc/auth"
	"github.com/avvvet/tombola-service/internal/roomsvc/lifecycle"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
	"github.com/avvvet/tombola-service/internal/roomsvc/room"
	"github.com/avvvet/tombola-service/internal/roomsvc/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

type Options struct {
	Port          string
	SendBuffer    int
	MessageRate   float64 // inbound messages per second per connection
	AllowedOrigin func(r *http.Request) bool
}

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	reg      *registry.Registry
	dir      *room.Directory
	sup      *lifecycle.Supervisor
	opts     Options
	started  time.Time
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(s *ws.Ws, reg *registry.Registry, dir *room.Directory, sup *lifecycle.Supervisor, opts Options) *Handler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = 20
	}
	checkOrigin := opts.AllowedOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		ws:      s,
		reg:     reg,
		dir:     dir,
		sup:     sup,
		opts:    opts,
		started: time.Now(),
	}
}

// HandleWebSocket upgrades the request and runs the connection's read and
// write pumps. An optional ?token= authenticates an operator up front.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	sess := registry.NewSession(socketId, clientIP(r), h.opts.SendBuffer)
	h.sup.Connect(sess)

	if token := r.URL.Query().Get("token"); token != "" {
		if err := h.ws.Authenticate(socketId, token); err != nil {
			h.ws.SendError(socketId, err)
		}
	}

	go h.writePump(conn, sess)
	go h.readPump(conn, sess)
}

func (h *Handler) readPump(conn *websocket.Conn, sess *registry.Session) {
	defer func() {
		h.sup.Disconnect(sess.ID)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.opts.MessageRate), int(h.opts.MessageRate)*2)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", sess.ID, err)
			}
			return
		}

		if !limiter.Allow() {
			h.ws.SendError(sess.ID, apperr.New(apperr.KindCapacity, "rate_limited", "too many messages"))
			continue
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Debugf("Failed to unmarshal message from socket %s: %v", sess.ID, err)
			h.ws.SendError(sess.ID, apperr.Validation("invalid_message", "invalid message format"))
			continue
		}

		h.ws.SocketMessage(sess.ID, message)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sess *registry.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	outbox := sess.Outbox()
	for {
		select {
		case message, ok := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "tombola service is running at port " + h.opts.Port,
		Code:    http.StatusOK,
	})
}

type Stats struct {
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Uptime      string `json:"uptime"`
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "ok",
		Code:    http.StatusOK,
		Data: Stats{
			Rooms:       h.dir.Count(),
			Connections: h.reg.Count(),
			Uptime:      time.Since(h.started).Round(time.Second).String(),
		},
	})
}

// RoomsHandler lists the rooms of the calling operator, or every room for a
// super admin.
func (h *Handler) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}
	id, err := auth.IdentityFromClaims(claims)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	summaries := []comm.RoomSummary{}
	for _, rm := range h.dir.List() {
		if id.SuperAdmin || rm.Operator.Email == id.Email {
			summaries = append(summaries, comm.NewRoomSummary(rm))
		}
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: summaries})
}

func (h *Handler) RoomHandler(w http.ResponseWriter, r *http.Request) {
	rm, err := h.dir.Get(chi.URLParam(r, "code"))
	if err != nil {
		pub := apperr.Public(err)
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: pub.Message})
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: comm.NewRoomView(rm)})
}
