package command

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// minPasswordLength is the minimum accepted password length, in runes.
const minPasswordLength = 8

// RegisterUserCommand contains the data for creating a new learner account.
type RegisterUserCommand struct {
	Email          string
	Password       string
	DisplayName    string
	NativeLanguage string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if !shared.Email(c.Email).Normalize().IsValid() {
		return shared.ErrInvalidEmail
	}
	if utf8.RuneCountInString(c.Password) < minPasswordLength {
		return shared.NewDomainError("user", "Register", shared.ErrInvalidInput,
			"password must be at least 8 characters")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return shared.NewDomainError("user", "Register", shared.ErrEmptyValue, "display name is required")
	}
	return nil
}

// RegisterUserResult contains the outcome of the registration.
type RegisterUserResult struct {
	UserID      string
	Email       string
	DisplayName string
	Level       int
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	users  user.Repository
	events shared.EventPublisher
	log    *logger.Logger

	bcryptCost int
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(users user.Repository, events shared.EventPublisher, log *logger.Logger) *RegisterUserHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegisterUserHandler{
		users:      users,
		events:     events,
		log:        log.With(logger.Component("register_user")),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Handle executes the registration.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, shared.WrapError("user", "Register", shared.ErrInvalidInput, "failed to hash password", err)
	}

	u, err := user.New(shared.Email(cmd.Email), string(hash), cmd.DisplayName, shared.LanguageCode(cmd.NativeLanguage))
	if err != nil {
		return nil, err
	}

	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}

	h.log.Info("user registered", logger.UserID(u.ID))

	if h.events != nil {
		event := shared.NewUserRegisteredEvent(u.ID, u.Email.String(), u.DisplayName)
		if err := h.events.Publish(event); err != nil {
			h.log.Warn("failed to publish user registered event", logger.Err(err), logger.UserID(u.ID))
		}
	}

	return &RegisterUserResult{
		UserID:      u.ID,
		Email:       u.Email.String(),
		DisplayName: u.DisplayName,
		Level:       u.Level,
	}, nil
}
