package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROOM_GRACE_PERIOD", "")
	t.Setenv("JOIN_LOCK_AFTER", "")
	t.Setenv("MAX_PLAYERS_PER_ROOM", "")

	cfg := Load()
	assert.Equal(t, 1, cfg.NumberMin)
	assert.Equal(t, 90, cfg.NumberMax)
	assert.Equal(t, 15, cfg.CardSize)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
	assert.Equal(t, time.Duration(0), cfg.JoinLockAfter)
	assert.Equal(t, 50, cfg.MaxPlayersPerRoom)
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("ROOM_GRACE_PERIOD", "0")
	t.Setenv("JOIN_LOCK_AFTER", "2m")
	t.Setenv("MAX_PLAYERS_PER_ROOM", "nope")

	cfg := Load()
	assert.Equal(t, time.Duration(0), cfg.GracePeriod)
	assert.Equal(t, 2*time.Minute, cfg.JoinLockAfter)
	assert.Equal(t, 50, cfg.MaxPlayersPerRoom)
}

func TestLoadPort(t *testing.T) {
	t.Setenv("SOCKET_SERVICE_PORT", "")
	assert.Equal(t, "3000", Load().Port)

	t.Setenv("SOCKET_SERVICE_PORT", "8081")
	assert.Equal(t, "8081", Load().Port)
}
