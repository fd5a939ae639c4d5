package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"roomchat/backend/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesKind(t *testing.T) {
	err := apperror.NotFound("Unable to find user '%s'.", "bob")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.NotErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "Unable to find user 'bob'.", err.Error())
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("kick: %w", apperror.Authorization("You are not an owner of lobby."))

	assert.ErrorIs(t, err, apperror.ErrAuthorization)
	assert.Equal(t, apperror.KindAuthorization, apperror.KindOf(err))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", apperror.Validation("Join which room?"), "Join which room?"},
		{"persistence", apperror.Persistence(errors.New("connection refused")), apperror.GenericMessage},
		{"plain", errors.New("boom"), apperror.GenericMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.UserMessage(tt.err))
		})
	}
}

func TestPersistence_Unwraps(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := apperror.Persistence(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.Equal(t, "persistence", apperror.KindOf(err).String())
}
