package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("join ABC123: %w", ErrRoomFull)

	assert.ErrorIs(t, err, ErrRoomFull)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, KindCapacity, KindOf(err))
}

func TestPublicHidesUnknownErrors(t *testing.T) {
	assert.Equal(t, ErrInternal, Public(errors.New("pgx: connection refused")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	v := Validation("bad_name", "name too short")
	assert.Same(t, v, Public(fmt.Errorf("wrap: %w", v)))
}
