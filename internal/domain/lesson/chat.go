package lesson

import (
	"time"

	"github.com/google/uuid"
)

// Agent identifies which side of the conversation produced a turn.
type Agent string

const (
	AgentUser Agent = "USER"
	AgentAI   Agent = "AI"
)

// ChatTurn is one utterance in the conversation for a content unit.
// Turns are append-only: never mutated, never deleted.
type ChatTurn struct {
	ID        string
	LessonID  string
	ContentID string
	UserID    string
	Agent     Agent
	Text      string
	CreatedAt time.Time
}

// NewChatTurn creates a turn for the given unit.
func NewChatTurn(lessonID, contentID, userID string, agent Agent, text string, at time.Time) *ChatTurn {
	return &ChatTurn{
		ID:        uuid.NewString(),
		LessonID:  lessonID,
		ContentID: contentID,
		UserID:    userID,
		Agent:     agent,
		Text:      text,
		CreatedAt: at,
	}
}
