package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

func TestRegisterUser_Success(t *testing.T) {
	users := newFakeUserRepo()
	events := &capturingPublisher{}
	h := NewRegisterUserHandler(users, events, nil)
	h.bcryptCost = bcrypt.MinCost

	res, err := h.Handle(context.Background(), RegisterUserCommand{
		Email:       "Dana@Example.com",
		Password:    "correct horse",
		DisplayName: "Dana",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.UserID)
	assert.Equal(t, "dana@example.com", res.Email, "email is normalized")
	assert.Equal(t, 1, res.Level)

	stored := users.stored(res.UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.Equal(t, "en", stored.NativeLanguage.String(), "native language defaults")

	assert.Len(t, events.ofType(shared.EventUserRegistered), 1)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	h := NewRegisterUserHandler(users, nil, nil)
	h.bcryptCost = bcrypt.MinCost

	cmd := RegisterUserCommand{Email: "dana@example.com", Password: "correct horse", DisplayName: "Dana"}
	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestRegisterUser_Validation(t *testing.T) {
	h := NewRegisterUserHandler(nil, nil, nil)

	_, err := h.Handle(context.Background(), RegisterUserCommand{
		Email: "not-an-email", Password: "long enough pw", DisplayName: "Dana",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)

	_, err = h.Handle(context.Background(), RegisterUserCommand{
		Email: "dana@example.com", Password: "short", DisplayName: "Dana",
	})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), RegisterUserCommand{
		Email: "dana@example.com", Password: "long enough pw", DisplayName: "  ",
	})
	assert.True(t, shared.IsValidation(err))
}
