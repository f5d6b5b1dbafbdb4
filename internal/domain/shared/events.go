// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// User events
	EventUserRegistered EventType = "user.registered"
	EventUserLoggedIn   EventType = "user.logged_in"

	// Progress events
	EventPointsAwarded  EventType = "progress.points_awarded"
	EventLevelUp        EventType = "progress.level_up"
	EventTaskCompleted  EventType = "progress.task_completed"
	EventStreakExtended EventType = "progress.streak_extended"
	EventStreakBroken   EventType = "progress.streak_broken"

	// Lesson events
	EventLessonGenerated        EventType = "lesson.generated"
	EventLessonGenerationFailed EventType = "lesson.generation_failed"
	EventLessonStarted          EventType = "lesson.started"
	EventLessonCompleted        EventType = "lesson.completed"
	EventUnitCompleted          EventType = "lesson.unit_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted when a new user registers.
type UserRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Payload implements Event interface.
func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"display_name": e.DisplayName,
	}
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent.
func NewUserRegisteredEvent(userID, email, displayName string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventUserRegistered, userID),
		Email:       email,
		DisplayName: displayName,
	}
}

// UserLoggedInEvent is emitted on every successful authentication.
type UserLoggedInEvent struct {
	BaseEvent
	Streak int `json:"streak"`
}

// Payload implements Event interface.
func (e UserLoggedInEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"streak": e.Streak}
}

// NewUserLoggedInEvent creates a new UserLoggedInEvent.
func NewUserLoggedInEvent(userID string, streak int) UserLoggedInEvent {
	return UserLoggedInEvent{
		BaseEvent: NewBaseEvent(EventUserLoggedIn, userID),
		Streak:    streak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// TaskCompletedEvent is emitted the first time a task's count reaches its
// required count. Emitted at most once per (user, task) pair.
type TaskCompletedEvent struct {
	BaseEvent
	TaskID        string `json:"task_id"`
	Category      string `json:"category"`
	PointsAwarded int    `json:"points_awarded"`
	TotalPoints   int    `json:"total_points"`
}

// Payload implements Event interface.
func (e TaskCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":        e.TaskID,
		"category":       e.Category,
		"points_awarded": e.PointsAwarded,
		"total_points":   e.TotalPoints,
	}
}

// NewTaskCompletedEvent creates a new TaskCompletedEvent.
func NewTaskCompletedEvent(userID, taskID, category string, pointsAwarded, totalPoints int) TaskCompletedEvent {
	return TaskCompletedEvent{
		BaseEvent:     NewBaseEvent(EventTaskCompleted, userID),
		TaskID:        taskID,
		Category:      category,
		PointsAwarded: pointsAwarded,
		TotalPoints:   totalPoints,
	}
}

// LevelUpEvent is emitted when a user's derived level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel    int `json:"old_level"`
	NewLevel    int `json:"new_level"`
	TotalPoints int `json:"total_points"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level":    e.OldLevel,
		"new_level":    e.NewLevel,
		"total_points": e.TotalPoints,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalPoints int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:   NewBaseEvent(EventLevelUp, userID),
		OldLevel:    oldLevel,
		NewLevel:    newLevel,
		TotalPoints: totalPoints,
	}
}

// StreakExtendedEvent is emitted when a login extends the user's streak.
type StreakExtendedEvent struct {
	BaseEvent
	Streak int `json:"streak"`
}

// Payload implements Event interface.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"streak": e.Streak}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, streak int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent: NewBaseEvent(EventStreakExtended, userID),
		Streak:    streak,
	}
}

// StreakBrokenEvent is emitted when a login gap resets the user's streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"previous_streak": e.PreviousStreak}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Lesson Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonGeneratedEvent is emitted when background generation finishes.
type LessonGeneratedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	UnitCount int    `json:"unit_count"`
}

// Payload implements Event interface.
func (e LessonGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"title":      e.Title,
		"unit_count": e.UnitCount,
	}
}

// NewLessonGeneratedEvent creates a new LessonGeneratedEvent.
func NewLessonGeneratedEvent(lessonID, userID, title string, unitCount int) LessonGeneratedEvent {
	return LessonGeneratedEvent{
		BaseEvent: NewBaseEvent(EventLessonGenerated, lessonID),
		UserID:    userID,
		Title:     title,
		UnitCount: unitCount,
	}
}

// LessonGenerationFailedEvent is emitted when background generation
// exhausts its retries.
type LessonGenerationFailedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e LessonGenerationFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"reason":  e.Reason,
	}
}

// NewLessonGenerationFailedEvent creates a new LessonGenerationFailedEvent.
func NewLessonGenerationFailedEvent(lessonID, userID, reason string) LessonGenerationFailedEvent {
	return LessonGenerationFailedEvent{
		BaseEvent: NewBaseEvent(EventLessonGenerationFailed, lessonID),
		UserID:    userID,
		Reason:    reason,
	}
}

// UnitCompletedEvent is emitted when the judge reports full mastery of a
// content unit.
type UnitCompletedEvent struct {
	BaseEvent
	LessonID       string `json:"lesson_id"`
	UserID         string `json:"user_id"`
	SequenceNumber int    `json:"sequence_number"`
}

// Payload implements Event interface.
func (e UnitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":       e.LessonID,
		"user_id":         e.UserID,
		"sequence_number": e.SequenceNumber,
	}
}

// NewUnitCompletedEvent creates a new UnitCompletedEvent.
func NewUnitCompletedEvent(contentID, lessonID, userID string, sequenceNumber int) UnitCompletedEvent {
	return UnitCompletedEvent{
		BaseEvent:      NewBaseEvent(EventUnitCompleted, contentID),
		LessonID:       lessonID,
		UserID:         userID,
		SequenceNumber: sequenceNumber,
	}
}

// LessonCompletedEvent is emitted when the final content unit of a lesson
// is completed.
type LessonCompletedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"title":   e.Title,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(lessonID, userID, title string) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent: NewBaseEvent(EventLessonCompleted, lessonID),
		UserID:    userID,
		Title:     title,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish publishes an event to all subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
