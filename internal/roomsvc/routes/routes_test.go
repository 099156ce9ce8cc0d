package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tombola-service/internal/comm"
	"github.com/avvvet/tombola-service/internal/roomsvc/auth"
	"github.com/avvvet/tombola-service/internal/roomsvc/broker"
	"github.com/avvvet/tombola-service/internal/roomsvc/caller"
	"github.com/avvvet/tombola-service/internal/roomsvc/handlers"
	"github.com/avvvet/tombola-service/internal/roomsvc/lifecycle"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
	"github.com/avvvet/tombola-service/internal/roomsvc/room"
	"github.com/avvvet/tombola-service/internal/roomsvc/ws"
)

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	reg := registry.New()
	br := broker.NewBroker(nil, reg)
	dir := room.NewDirectory(room.Options{NumberMin: 1, NumberMax: 90, CardSize: 15}, reg, br, nil)
	authSvc := auth.NewService(auth.NewMemoryStore(), "test-secret", time.Hour)
	require.NoError(t, authSvc.SeedSuperAdmin(context.Background(), "admin@tombola.it", "secret1", "Boss"))
	_, token, err := authSvc.Login(context.Background(), "admin@tombola.it", "secret1")
	require.NoError(t, err)

	autoCaller := caller.New(dir, br)
	dir.OnRemove(func(code string) { autoCaller.Stop(code) })
	sup := lifecycle.New(reg, dir, 0)
	h := handlers.NewHandler(ws.NewWs(reg, dir, authSvc, autoCaller, br), reg, dir, sup, handlers.Options{Port: "test"})

	r := chi.NewRouter()
	SetRoutes(r, h, authSvc.TokenAuth())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, token
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(comm.WSMessage{Type: msgType, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) comm.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m comm.WSMessage
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func getJSON(t *testing.T, url, token string) (int, handlers.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rsp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	var body handlers.Response
	_ = json.NewDecoder(rsp.Body).Decode(&body)
	return rsp.StatusCode, body
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	status, body := getJSON(t, srv.URL+"/v1/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body.Message, "running")
}

func TestRoomsNeedsToken(t *testing.T) {
	srv, token := newServer(t)

	status, _ := getJSON(t, srv.URL+"/v1/rooms", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = getJSON(t, srv.URL+"/v1/rooms", token)
	assert.Equal(t, http.StatusOK, status)
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv, token := newServer(t)

	op := dial(t, srv, "?token="+token)
	send(t, op, comm.CreateRoom, comm.CreateRoomRequest{Name: "Tombolata"})
	created := read(t, op)
	require.Equal(t, comm.RoomCreated, created.Type)
	var cd comm.RoomCreatedData
	require.NoError(t, json.Unmarshal(created.Data, &cd))

	player := dial(t, srv, "")
	send(t, player, comm.JoinRoom, comm.JoinRoomRequest{RoomCode: cd.RoomCode, PlayerName: "Anna"})
	assert.Equal(t, comm.RoomJoined, read(t, player).Type)
	assert.Equal(t, comm.PlayerJoined, read(t, player).Type)
	assert.Equal(t, comm.PlayerJoined, read(t, op).Type)

	status, body := getJSON(t, srv.URL+"/v1/room/"+strings.ToLower(cd.RoomCode), "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body.Data)

	status, body = getJSON(t, srv.URL+"/v1/rooms", token)
	require.Equal(t, http.StatusOK, status)
	rooms, ok := body.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, rooms, 1)

	status, _ = getJSON(t, srv.URL+"/v1/stats", "")
	assert.Equal(t, http.StatusOK, status)

	// no grace configured: the room goes with its operator
	require.NoError(t, op.Close())
	assert.Equal(t, comm.RoomClosed, read(t, player).Type)

	status, _ = getJSON(t, srv.URL+"/v1/room/"+cd.RoomCode, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestInvalidFrame(t *testing.T) {
	srv, _ := newServer(t)
	conn := dial(t, srv, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	m := read(t, conn)
	require.Equal(t, comm.Error, m.Type)
	var e comm.ErrorData
	require.NoError(t, json.Unmarshal(m.Data, &e))
	assert.Equal(t, "invalid_message", e.Code)
}
