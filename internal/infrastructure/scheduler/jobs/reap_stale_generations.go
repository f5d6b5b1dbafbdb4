// Package jobs contains the scheduled maintenance jobs.
package jobs

import (
	"context"
	"time"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/pkg/logger"
)

// StaleLessonFinder lists lessons stuck in the generating state past a
// deadline. The PostgreSQL lesson repository implements it.
type StaleLessonFinder interface {
	FindStaleGenerating(ctx context.Context, olderThan time.Time) ([]*lesson.Lesson, error)
	Update(ctx context.Context, l *lesson.Lesson) error
}

// ReapStaleGenerationsJob marks generation jobs that died without reaching
// a terminal status as failed. A generating lesson whose last update is
// older than the stale age lost its worker (crash, queue abandoned on
// shutdown) and will never complete; failing it lets the client stop
// polling and retry.
type ReapStaleGenerationsJob struct {
	lessons  StaleLessonFinder
	events   shared.EventPublisher
	staleAge time.Duration
	log      *logger.Logger
}

// NewReapStaleGenerationsJob creates the job.
func NewReapStaleGenerationsJob(lessons StaleLessonFinder, events shared.EventPublisher, staleAge time.Duration, log *logger.Logger) *ReapStaleGenerationsJob {
	if log == nil {
		log = logger.Default()
	}
	if staleAge <= 0 {
		staleAge = 10 * time.Minute
	}
	return &ReapStaleGenerationsJob{
		lessons:  lessons,
		events:   events,
		staleAge: staleAge,
		log:      log.With(logger.Component("reap_stale_generations")),
	}
}

// Name implements scheduler.Job.
func (j *ReapStaleGenerationsJob) Name() string {
	return "reap_stale_generations"
}

// Description implements scheduler.Job.
func (j *ReapStaleGenerationsJob) Description() string {
	return "marks lesson generations stuck past the stale age as failed"
}

// Run implements scheduler.Job.
func (j *ReapStaleGenerationsJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.staleAge)

	stale, err := j.lessons.FindStaleGenerating(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	reaped := 0
	for _, les := range stale {
		les.MarkGenerationFailed(time.Now().UTC())
		if err := j.lessons.Update(ctx, les); err != nil {
			j.log.Error("failed to reap stale generation",
				logger.LessonID(les.ID), logger.Err(err))
			continue
		}
		reaped++

		if j.events != nil {
			event := shared.NewLessonGenerationFailedEvent(les.ID, les.UserID, "generation timed out")
			if err := j.events.Publish(event); err != nil {
				j.log.Warn("failed to publish reap event", logger.Err(err))
			}
		}
	}

	j.log.Info("reaped stale generations",
		logger.Int("found", len(stale)),
		logger.Int("reaped", reaped))
	return nil
}
