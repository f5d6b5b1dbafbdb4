package command

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE COMMAND
// Credential check plus the login side effects (streak, STREAK tasks).
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateCommand contains login credentials.
type AuthenticateCommand struct {
	Email    string
	Password string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AuthenticateCommand) Validate() error {
	if c.Email == "" {
		return shared.NewDomainError("user", "Authenticate", shared.ErrEmptyValue, "email is required")
	}
	if c.Password == "" {
		return shared.NewDomainError("user", "Authenticate", shared.ErrEmptyValue, "password is required")
	}
	return nil
}

// AuthenticateResult contains the authenticated user's snapshot.
type AuthenticateResult struct {
	UserID      string
	Email       string
	DisplayName string

	TotalPoints int
	Level       int
	Streak      int
}

// AuthenticateHandler handles the AuthenticateCommand.
type AuthenticateHandler struct {
	users  user.Repository
	login  *RecordLoginHandler
	events shared.EventPublisher
	log    *logger.Logger
}

// NewAuthenticateHandler creates a new AuthenticateHandler.
func NewAuthenticateHandler(
	users user.Repository,
	login *RecordLoginHandler,
	events shared.EventPublisher,
	log *logger.Logger,
) *AuthenticateHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AuthenticateHandler{
		users:  users,
		login:  login,
		events: events,
		log:    log.With(logger.Component("authenticate")),
	}
}

// Handle verifies credentials and records the login. Unknown emails and
// wrong passwords both surface as shared.ErrInvalidCredential so callers
// cannot probe for registered addresses.
func (h *AuthenticateHandler) Handle(ctx context.Context, cmd AuthenticateCommand) (*AuthenticateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	email := shared.Email(cmd.Email).Normalize()
	u, err := h.users.GetByEmail(ctx, email.String())
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrInvalidCredential
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.Password)); err != nil {
		return nil, shared.ErrInvalidCredential
	}

	loginResult, err := h.login.Handle(ctx, RecordLoginCommand{
		UserID:        u.ID,
		At:            time.Now().UTC(),
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, err
	}

	// Reload for the fresh points/level after any STREAK awards.
	u, err = h.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	h.log.Info("user authenticated", logger.UserID(u.ID))

	if h.events != nil {
		if err := h.events.Publish(shared.NewUserLoggedInEvent(u.ID, loginResult.Streak)); err != nil {
			h.log.Warn("failed to publish login event", logger.Err(err), logger.UserID(u.ID))
		}
	}

	return &AuthenticateResult{
		UserID:      u.ID,
		Email:       u.Email.String(),
		DisplayName: u.DisplayName,
		TotalPoints: u.TotalPoints,
		Level:       u.Level,
		Streak:      loginResult.Streak,
	}, nil
}
