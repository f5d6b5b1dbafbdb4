package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/external/ai"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERACT COMMAND
// One conversational turn against the active unit of a lesson: resolve the
// unit, synthesize the bootstrap on first contact, obtain a judgment, and
// persist the exchange plus the resulting state transitions atomically.
// ══════════════════════════════════════════════════════════════════════════════

// FallbackReply is returned when the judge cannot be reached. Nothing is
// persisted in that case, so retrying the same message is always safe.
const FallbackReply = "Sorry, I couldn't process your message right now. Please send it again in a moment."

// completionPhrases are the fragments that mark a learner message as a
// completion request: the judge is then asked to assess mastery.
var completionPhrases = []string{
	"i understand",
	"i got it",
	"got it",
	"i'm done",
	"im done",
	"i am done",
	"makes sense",
	"understood",
	"next unit",
	"next lesson",
	"move on",
	"i'm ready",
	"im ready",
}

// wantsCompletionCheck reports whether the message carries
// completion-request language.
func wantsCompletionCheck(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range completionPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// BootstrapMessage synthesizes the deterministic first turn for a content
// unit from the learner's name and the lesson title. The literal first
// user input is discarded so every unit starts from the same pedagogical
// framing.
func BootstrapMessage(studentName, lessonTitle string) string {
	return fmt.Sprintf(
		"Hi, I'm %s! I'm ready to start the lesson %q. Please introduce the first topic and guide me through it step by step.",
		studentName, lessonTitle,
	)
}

// InteractCommand contains one learner message for a lesson.
type InteractCommand struct {
	UserID   string
	LessonID string

	// Message is the raw learner input. Discarded and replaced by the
	// bootstrap message on the first-ever turn for the active unit.
	Message string

	// Language optionally overrides the lesson's target language hint.
	Language shared.LanguageCode

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c InteractCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("lesson", "Interact", shared.ErrEmptyValue, "user_id is required")
	}
	if c.LessonID == "" {
		return shared.NewDomainError("lesson", "Interact", shared.ErrEmptyValue, "lesson_id is required")
	}
	if strings.TrimSpace(c.Message) == "" {
		return shared.NewDomainError("lesson", "Interact", shared.ErrEmptyValue, "message is required")
	}
	return nil
}

// InteractResult contains the tutor's reply and the state transitions the
// interaction caused.
type InteractResult struct {
	ResponseText string

	// Judged is false when the judge was unavailable and ResponseText
	// carries the fallback apology. No state changed in that case.
	Judged bool

	CompletionScore int
	ContentID       string
	SequenceNumber  int
	UnitCompleted   bool
	LessonCompleted bool
}

// InteractHandler handles the InteractCommand.
type InteractHandler struct {
	users     user.Repository
	lessons   lesson.Repository
	chats     lesson.ChatRepository
	judge     ai.Judge
	increment *IncrementProgressHandler
	events    shared.EventPublisher
	log       *logger.Logger

	historyWindow int
}

// NewInteractHandler creates a new InteractHandler.
func NewInteractHandler(
	users user.Repository,
	lessons lesson.Repository,
	chats lesson.ChatRepository,
	judge ai.Judge,
	increment *IncrementProgressHandler,
	events shared.EventPublisher,
	historyWindow int,
	log *logger.Logger,
) *InteractHandler {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	if log == nil {
		log = logger.Default()
	}
	return &InteractHandler{
		users:         users,
		lessons:       lessons,
		chats:         chats,
		judge:         judge,
		increment:     increment,
		events:        events,
		historyWindow: historyWindow,
		log:           log.With(logger.Component("interact")),
	}
}

// Handle executes one conversational turn. Persistence happens only after
// a successful judgment, and then as one atomic exchange (user turn, AI
// turn, unit and lesson state); a judge failure returns the fallback
// apology with zero side effects.
func (h *InteractHandler) Handle(ctx context.Context, cmd InteractCommand) (*InteractResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	les, err := h.lessons.GetByID(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if les.UserID != cmd.UserID {
		return nil, shared.ErrLessonNotOwned
	}
	if !les.Ready() {
		return nil, shared.ErrLessonNotReady
	}

	now := time.Now().UTC()
	les.Touch(now)

	unit := les.ActiveUnit()
	if unit == nil {
		return nil, shared.ErrLessonEmpty
	}

	turnCount, err := h.chats.CountTurns(ctx, cmd.UserID, unit.ID)
	if err != nil {
		return nil, err
	}
	firstContact := turnCount == 0

	message := cmd.Message
	if firstContact {
		message = BootstrapMessage(u.DisplayName, les.Title)
		les.Start(now)
	}

	judgment, err := h.judgeInteraction(ctx, u, les, unit, message)
	if err != nil {
		h.log.Error("judge unavailable, returning fallback",
			logger.Err(err), logger.UserID(u.ID), logger.LessonID(les.ID), logger.ContentID(unit.ID))
		return &InteractResult{ResponseText: FallbackReply, Judged: false}, nil
	}

	unitCompleted, err := unit.ApplyScore(judgment.CompletionScore, now)
	if err != nil {
		return nil, err
	}
	lessonCompleted := unitCompleted && les.CompleteIfFinished(now)

	// The AI turn is stamped one microsecond later: history reads order by
	// (created_at, id), and the id is random, so equal stamps could flip an
	// exchange. One microsecond is the smallest step timestamptz preserves.
	userTurn := lesson.NewChatTurn(les.ID, unit.ID, u.ID, lesson.AgentUser, message, now)
	aiTurn := lesson.NewChatTurn(les.ID, unit.ID, u.ID, lesson.AgentAI, judgment.ResponseText, now.Add(time.Microsecond))

	if err := h.lessons.SaveExchange(ctx, les, unit, userTurn, aiTurn); err != nil {
		return nil, err
	}

	h.publishTransitions(u, les, unit, unitCompleted, lessonCompleted)
	h.advanceProgress(ctx, cmd, lessonCompleted)

	return &InteractResult{
		ResponseText:    judgment.ResponseText,
		Judged:          true,
		CompletionScore: judgment.CompletionScore,
		ContentID:       unit.ID,
		SequenceNumber:  unit.SequenceNumber,
		UnitCompleted:   unitCompleted,
		LessonCompleted: lessonCompleted,
	}, nil
}

// judgeInteraction assembles the judge context (profile, lesson, unit,
// recent history restored to chronological order, resolved message) and
// obtains the verdict.
func (h *InteractHandler) judgeInteraction(
	ctx context.Context,
	u *user.User,
	les *lesson.Lesson,
	unit *lesson.ContentUnit,
	message string,
) (*ai.Judgment, error) {
	recent, err := h.chats.RecentTurns(ctx, u.ID, unit.ID, h.historyWindow)
	if err != nil {
		return nil, err
	}

	history := make([]ai.Turn, 0, len(recent))
	for _, t := range lesson.Chronological(recent) {
		history = append(history, ai.Turn{FromUser: t.Agent == lesson.AgentUser, Text: t.Text})
	}

	nextUnitTitle := ""
	if unit.SequenceNumber < len(les.Units) {
		nextUnitTitle = les.Units[unit.SequenceNumber].Title
	}

	return h.judge.Judge(ctx, ai.JudgeInput{
		StudentName:         u.DisplayName,
		NativeLanguage:      u.NativeLanguage.String(),
		TargetLanguage:      les.Language.String(),
		LessonTitle:         les.Title,
		UnitTitle:           unit.Title,
		UnitBody:            unit.Body,
		NextUnitTitle:       nextUnitTitle,
		History:             history,
		Message:             message,
		CompletionRequested: wantsCompletionCheck(message),
	})
}

// publishTransitions emits unit/lesson completion events, best-effort.
func (h *InteractHandler) publishTransitions(
	u *user.User,
	les *lesson.Lesson,
	unit *lesson.ContentUnit,
	unitCompleted, lessonCompleted bool,
) {
	if h.events == nil {
		return
	}
	if unitCompleted {
		event := shared.NewUnitCompletedEvent(unit.ID, les.ID, u.ID, unit.SequenceNumber)
		if err := h.events.Publish(event); err != nil {
			h.log.Warn("failed to publish unit completed event", logger.Err(err), logger.ContentID(unit.ID))
		}
	}
	if lessonCompleted {
		if err := h.events.Publish(shared.NewLessonCompletedEvent(les.ID, u.ID, les.Title)); err != nil {
			h.log.Warn("failed to publish lesson completed event", logger.Err(err), logger.LessonID(les.ID))
		}
	}
}

// advanceProgress feeds the gamification engine after the exchange is
// durable: every judged interaction counts toward CONTENT tasks, and a
// lesson completion additionally counts toward LESSON tasks. Progress
// failures are logged, not surfaced - the learner already has their reply.
func (h *InteractHandler) advanceProgress(ctx context.Context, cmd InteractCommand, lessonCompleted bool) {
	if h.increment == nil {
		return
	}

	if _, err := h.increment.Handle(ctx, IncrementProgressCommand{
		UserID:        cmd.UserID,
		Category:      task.CategoryContent,
		CorrelationID: cmd.CorrelationID,
	}); err != nil {
		h.log.Error("failed to increment content progress", logger.Err(err), logger.UserID(cmd.UserID))
	}

	if lessonCompleted {
		if _, err := h.increment.Handle(ctx, IncrementProgressCommand{
			UserID:        cmd.UserID,
			Category:      task.CategoryLesson,
			CorrelationID: cmd.CorrelationID,
		}); err != nil {
			h.log.Error("failed to increment lesson progress", logger.Err(err), logger.UserID(cmd.UserID))
		}
	}
}
