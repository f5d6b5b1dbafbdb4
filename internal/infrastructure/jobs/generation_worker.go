// Package jobs runs the background lesson-generation pipeline. Lesson
// creation acknowledges immediately; workers here pick the job up, call the
// AI generator, and persist either the generated units or a terminal
// failure the client can observe by polling.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
	"github.com/lingoquest/lingoquest-backend/internal/infrastructure/external/ai"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// ErrQueueFull is returned when the generation queue cannot accept a job.
var ErrQueueFull = errors.New("generation queue is full")

// ErrWorkerStopped is returned when dispatching to a stopped worker.
var ErrWorkerStopped = errors.New("generation worker is stopped")

// ══════════════════════════════════════════════════════════════════════════════
// GENERATION WORKER
// ══════════════════════════════════════════════════════════════════════════════

// GenerationWorkerConfig configures the worker pool.
type GenerationWorkerConfig struct {
	// QueueSize caps pending jobs.
	QueueSize int

	// Workers is the number of concurrent generation goroutines.
	Workers int

	// JobTimeout bounds one generation end to end, AI retries included.
	JobTimeout time.Duration

	Log *logger.Logger
}

// DefaultGenerationWorkerConfig returns sensible defaults.
func DefaultGenerationWorkerConfig() GenerationWorkerConfig {
	return GenerationWorkerConfig{
		QueueSize:  100,
		Workers:    2,
		JobTimeout: 3 * time.Minute,
	}
}

// GenerationWorker consumes lesson IDs from a bounded queue and fills each
// lesson with generated content. It implements the command layer's
// GenerationDispatcher.
type GenerationWorker struct {
	lessons   lesson.Repository
	users     user.Repository
	generator ai.Generator
	events    shared.EventPublisher
	log       *logger.Logger

	queue      chan string
	jobTimeout time.Duration
	workers    int

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewGenerationWorker creates a new GenerationWorker.
func NewGenerationWorker(
	lessons lesson.Repository,
	users user.Repository,
	generator ai.Generator,
	events shared.EventPublisher,
	config GenerationWorkerConfig,
) *GenerationWorker {
	if config.Log == nil {
		config.Log = logger.Default()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 3 * time.Minute
	}

	return &GenerationWorker{
		lessons:    lessons,
		users:      users,
		generator:  generator,
		events:     events,
		log:        config.Log.With(logger.Component("generation_worker")),
		queue:      make(chan string, config.QueueSize),
		jobTimeout: config.JobTimeout,
		workers:    config.Workers,
	}
}

// Start launches the worker goroutines.
func (w *GenerationWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return errors.New("generation worker already started")
	}
	if w.stopped {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.started = true

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx)
	}

	w.log.Info("generation workers started", logger.Int("workers", w.workers))
	return nil
}

// Stop drains nothing: in-flight jobs finish, queued jobs are abandoned.
// Abandoned jobs are recovered by the stale-generation reaper.
func (w *GenerationWorker) Stop() error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.log.Info("generation workers stopped")
	return nil
}

// Dispatch enqueues a lesson for generation. Never blocks: a full queue is
// reported to the caller, which marks the lesson failed.
func (w *GenerationWorker) Dispatch(lessonID string) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrWorkerStopped
	}
	w.mu.Unlock()

	select {
	case w.queue <- lessonID:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth reports the number of pending jobs.
func (w *GenerationWorker) QueueDepth() int {
	return len(w.queue)
}

func (w *GenerationWorker) runWorker(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case lessonID := <-w.queue:
			w.process(ctx, lessonID)
		}
	}
}

// process runs one generation job. All failure paths converge on a
// persisted failed status so the client never polls a job nobody owns.
func (w *GenerationWorker) process(ctx context.Context, lessonID string) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	log := w.log.With(logger.LessonID(lessonID))

	les, err := w.lessons.GetByID(jobCtx, lessonID)
	if err != nil {
		log.Error("failed to load lesson for generation", logger.Err(err))
		return
	}

	// Only jobs the command layer marked in progress are ours; anything
	// else was already resolved (reaper, duplicate dispatch).
	if les.GeneratingStatus != lesson.GeneratingInProgress {
		log.Warn("skipping lesson not awaiting generation",
			logger.String("generating_status", string(les.GeneratingStatus)))
		return
	}

	u, err := w.users.GetByID(jobCtx, les.UserID)
	if err != nil {
		log.Error("failed to load lesson owner", logger.Err(err))
		w.fail(jobCtx, les, "lesson owner could not be loaded")
		return
	}

	generated, err := w.generator.Generate(jobCtx, ai.GenerateInput{
		Request:        les.Request,
		TargetLanguage: les.Language.String(),
		NativeLanguage: u.NativeLanguage.String(),
	})
	if err != nil {
		log.Error("generation failed", logger.Err(err))
		w.fail(jobCtx, les, "AI generation failed")
		return
	}

	units := make([]lesson.GeneratedUnit, 0, len(generated.Units))
	for _, gu := range generated.Units {
		units = append(units, lesson.GeneratedUnit{Title: gu.Title, Body: gu.Body})
	}

	les.AttachGeneratedContent(generated.Title, units, time.Now().UTC())
	if err := w.lessons.Update(jobCtx, les); err != nil {
		log.Error("failed to persist generated lesson", logger.Err(err))
		return
	}

	log.Info("lesson generated",
		logger.String("title", les.Title),
		logger.Int("units", len(les.Units)))

	w.publish(shared.NewLessonGeneratedEvent(les.ID, les.UserID, les.Title, len(les.Units)))
}

func (w *GenerationWorker) fail(ctx context.Context, les *lesson.Lesson, reason string) {
	les.MarkGenerationFailed(time.Now().UTC())
	if err := w.lessons.Update(ctx, les); err != nil {
		w.log.Error("failed to persist generation failure",
			logger.LessonID(les.ID), logger.Err(err))
		return
	}
	w.publish(shared.NewLessonGenerationFailedEvent(les.ID, les.UserID, reason))
}

func (w *GenerationWorker) publish(event shared.Event) {
	if w.events == nil {
		return
	}
	if err := w.events.Publish(event); err != nil {
		w.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())), logger.Err(err))
	}
}
