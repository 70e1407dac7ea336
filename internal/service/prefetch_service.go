package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
	"github.com/noah-isme/untapped/pkg/jobs"
)

// PrefetchService loads every reference table and the teacher list in the
// background so the first UI calls after login hit a warm cache.
type PrefetchService struct {
	refs     *ReferenceService
	teachers *TeacherDirectory
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewPrefetchService constructs a PrefetchService with workers goroutines.
func NewPrefetchService(refs *ReferenceService, teachers *TeacherDirectory, workers int, logger *zap.Logger) *PrefetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PrefetchService{refs: refs, teachers: teachers, logger: logger}
	p.queue = jobs.NewQueue("prefetch", p.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: len(models.ReferenceKinds) + 1,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return p
}

// Start launches the workers.
func (p *PrefetchService) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop halts the workers, dropping pending loads.
func (p *PrefetchService) Stop() {
	p.queue.Stop()
}

// Schedule queues one load per reference table plus the teacher list.
func (p *PrefetchService) Schedule() {
	kinds := append(append([]models.Kind(nil), models.ReferenceKinds...), models.KindTeachers)
	for _, kind := range kinds {
		if _, err := p.queue.Enqueue(string(kind)); err != nil {
			p.logger.Warn("prefetch not scheduled", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

// Wait blocks until scheduled loads are done.
func (p *PrefetchService) Wait() {
	p.queue.Wait()
}

func (p *PrefetchService) handle(ctx context.Context, job jobs.Job) error {
	kind := models.Kind(job.Type)
	var err error
	if kind == models.KindTeachers {
		_, err = p.teachers.BulkLoad(ctx, false)
	} else {
		_, err = p.refs.Get(ctx, kind, false)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, appErrors.ErrSessionRequired) || errors.Is(err, appErrors.ErrPermissionDenied) || errors.Is(err, appErrors.ErrValidation) {
		return jobs.Permanent(err)
	}
	return err
}
