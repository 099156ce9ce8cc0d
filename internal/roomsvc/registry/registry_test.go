package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tombola-service/internal/roomsvc/apperr"
)

func TestBindOneRoomPerConnection(t *testing.T) {
	reg := New()
	reg.Store(NewSession("s1", "127.0.0.1", 4))

	require.NoError(t, reg.Bind("s1", RolePlayer, "ROOM01"))
	assert.ErrorIs(t, reg.Bind("s1", RoleOperator, "ROOM02"), apperr.ErrAlreadyInRoom)
	assert.ErrorIs(t, reg.CanBind("s1"), apperr.ErrAlreadyInRoom)

	s, ok := reg.Get("s1")
	require.True(t, ok)
	assert.Equal(t, RolePlayer, s.Role())
	assert.Equal(t, "ROOM01", s.RoomCode())

	reg.Unbind("s1", "ROOM02")
	assert.Equal(t, "ROOM01", s.RoomCode())
	reg.Unbind("s1", "ROOM01")
	assert.Equal(t, "", s.RoomCode())
	assert.Equal(t, RoleNone, s.Role())
	assert.NoError(t, reg.CanBind("s1"))
}

func TestBindUnknownConnection(t *testing.T) {
	reg := New()
	err := reg.Bind("ghost", RolePlayer, "ROOM01")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRoomSessions(t *testing.T) {
	reg := New()
	for _, id := range []string{"a", "b", "c"} {
		reg.Store(NewSession(id, "", 4))
	}
	require.NoError(t, reg.Bind("a", RoleOperator, "R1"))
	require.NoError(t, reg.Bind("b", RolePlayer, "R1"))
	require.NoError(t, reg.Bind("c", RolePlayer, "R2"))

	ids := []string{}
	for _, s := range reg.RoomSessions("R1") {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Equal(t, 3, reg.Count())

	reg.Delete("b")
	assert.Len(t, reg.RoomSessions("R1"), 1)
}

func TestEnqueueDropsWhenFullOrClosed(t *testing.T) {
	s := NewSession("s1", "", 1)
	assert.True(t, s.Enqueue([]byte("one")))
	assert.False(t, s.Enqueue([]byte("two")))

	assert.Equal(t, "one", string(<-s.Outbox()))

	s.Close()
	s.Close()
	assert.False(t, s.Enqueue([]byte("three")))
	_, open := <-s.Outbox()
	assert.False(t, open)
}

func TestOperatorIdentityCopy(t *testing.T) {
	s := NewSession("s1", "", 1)
	assert.Nil(t, s.Operator())

	s.SetOperator(&Identity{Email: "op@example.com", Name: "Op"})
	id := s.Operator()
	id.Name = "changed"
	assert.Equal(t, "Op", s.Operator().Name)
}
