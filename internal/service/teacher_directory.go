package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

// TeacherMemo remembers resolved teachers between runs.
type TeacherMemo interface {
	Load(ctx context.Context) ([]models.Teacher, error)
	Remember(ctx context.Context, teacher models.Teacher) error
	Forget(ctx context.Context) error
}

// Teacher search outcomes, as reported to metrics.
const (
	searchDirect   = "direct"
	searchReversed = "reversed"
	searchMiss     = "miss"
	searchError    = "error"
)

// TeacherDirectory caches teachers by id. Besides the bulk listing it grows
// one teacher at a time through Search, which is the only way in when the
// account may not list teachers.
type TeacherDirectory struct {
	sessions sessionProvider
	memo     TeacherMemo
	metrics  *MetricsService
	logger   *zap.Logger

	mu     sync.Mutex
	loaded bool
	order  []int64
	byID   map[int64]models.Teacher
}

// NewTeacherDirectory constructs a TeacherDirectory. memo may be nil.
func NewTeacherDirectory(sessions sessionProvider, memo TeacherMemo, metrics *MetricsService, logger *zap.Logger) *TeacherDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherDirectory{
		sessions: sessions,
		memo:     memo,
		metrics:  metrics,
		logger:   logger,
		byID:     map[int64]models.Teacher{},
	}
}

// Warm adds the remembered teachers to the directory.
func (d *TeacherDirectory) Warm(ctx context.Context) (int, error) {
	if d.memo == nil {
		return 0, nil
	}
	teachers, err := d.memo.Load(ctx)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range teachers {
		d.putLocked(t)
	}
	return len(teachers), nil
}

// BulkLoad lists all teachers once, or again when reset is set. When the
// account has no right to list teachers the directory keeps what it has,
// a warning is logged and no error is returned.
func (d *TeacherDirectory) BulkLoad(ctx context.Context, reset bool) (map[int64]models.Teacher, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded && !reset {
		d.metrics.RecordCacheLookup(models.KindTeachers, true)
		return d.snapshotLocked(), nil
	}
	d.metrics.RecordCacheLookup(models.KindTeachers, false)

	gw, err := d.sessions.Require()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	teachers, err := gw.Teachers(ctx)
	d.metrics.ObserveRemoteFetch(models.KindTeachers, err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrPermissionDenied) {
			d.loaded = true
			d.logger.Warn("no right to list teachers, cache them manually using teacher search", zap.Error(err))
			return d.snapshotLocked(), nil
		}
		return nil, err
	}

	d.order = nil
	d.byID = make(map[int64]models.Teacher, len(teachers))
	for _, t := range teachers {
		d.putLocked(t)
	}
	d.loaded = true
	return d.snapshotLocked(), nil
}

// Search looks a teacher up by exact surname and forename. With tryReversed
// a miss is retried once with the two names swapped. A hit is added to the
// directory; a miss leaves it unchanged.
func (d *TeacherDirectory) Search(ctx context.Context, surname, forename string, tryReversed bool) (models.Teacher, bool, error) {
	gw, err := d.sessions.Require()
	if err != nil {
		return models.Teacher{}, false, err
	}

	type attempt struct {
		surname, forename, outcome string
	}
	attempts := []attempt{{surname, forename, searchDirect}}
	if tryReversed && surname != forename {
		attempts = append(attempts, attempt{forename, surname, searchReversed})
	}

	for _, a := range attempts {
		teacher, err := gw.TeacherByName(ctx, a.surname, a.forename)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				continue
			}
			d.metrics.RecordTeacherSearch(searchError)
			return models.Teacher{}, false, err
		}
		d.add(ctx, teacher)
		d.metrics.RecordTeacherSearch(a.outcome)
		return teacher, true, nil
	}

	d.metrics.RecordTeacherSearch(searchMiss)
	return models.Teacher{}, false, nil
}

// SearchFreeText resolves a single free-text name. "Forename, Surname" is
// tried as given. Otherwise every split between the first and last word is
// tried as forename/surname, lowest split first, without reversing.
func (d *TeacherDirectory) SearchFreeText(ctx context.Context, text string) (models.Teacher, bool, error) {
	text = strings.TrimSpace(text)
	if before, after, found := strings.Cut(text, ","); found {
		return d.Search(ctx, strings.TrimSpace(after), strings.TrimSpace(before), false)
	}

	words := strings.Fields(text)
	for k := 1; k < len(words); k++ {
		forename := strings.Join(words[:k], " ")
		surname := strings.Join(words[k:], " ")
		teacher, ok, err := d.Search(ctx, surname, forename, false)
		if err != nil || ok {
			return teacher, ok, err
		}
	}
	return models.Teacher{}, false, nil
}

// Resolve returns the full name for id, or a "? (<id>)" placeholder.
func (d *TeacherDirectory) Resolve(id int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.byID[id]; ok {
		if name := t.FullName(); name != "" {
			return name
		}
	}
	return models.Placeholder(id)
}

// Get returns the teacher with id if the directory knows it.
func (d *TeacherDirectory) Get(id int64) (models.Teacher, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.byID[id]
	return t, ok
}

// All returns the known teachers in insertion order.
func (d *TeacherDirectory) All() []models.Teacher {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Teacher, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Reset empties the directory. Remembered teachers are kept unless forget is set.
func (d *TeacherDirectory) Reset(ctx context.Context, forget bool) error {
	d.mu.Lock()
	d.loaded = false
	d.order = nil
	d.byID = map[int64]models.Teacher{}
	d.mu.Unlock()

	if forget && d.memo != nil {
		return d.memo.Forget(ctx)
	}
	return nil
}

func (d *TeacherDirectory) add(ctx context.Context, teacher models.Teacher) {
	d.mu.Lock()
	d.putLocked(teacher)
	d.mu.Unlock()

	if d.memo == nil {
		return
	}
	if err := d.memo.Remember(ctx, teacher); err != nil {
		d.logger.Warn("remember teacher failed", zap.Int64("id", teacher.ID), zap.Error(err))
	}
}

func (d *TeacherDirectory) putLocked(t models.Teacher) {
	if _, seen := d.byID[t.ID]; !seen {
		d.order = append(d.order, t.ID)
	}
	d.byID[t.ID] = t
}

func (d *TeacherDirectory) snapshotLocked() map[int64]models.Teacher {
	out := make(map[int64]models.Teacher, len(d.byID))
	for id, t := range d.byID {
		out[id] = t
	}
	return out
}
