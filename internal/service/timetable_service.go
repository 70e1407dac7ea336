package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

type teacherResolver interface {
	Resolve(id int64) string
}

// Projector turns timetable entries into flat records.
type Projector struct {
	teachers teacherResolver
}

// NewProjector constructs a Projector resolving teacher ids through teachers.
func NewProjector(teachers teacherResolver) *Projector {
	return &Projector{teachers: teachers}
}

// Project returns one record per entry, in entry order. When origin is not
// zero each record carries its 1-based day offset from origin.
func (p *Projector) Project(entries []models.TimetableEntry, origin time.Time) []models.FlatRecord {
	records := make([]models.FlatRecord, 0, len(entries))
	for _, e := range entries {
		rec := models.FlatRecord{
			Date:      e.Start.Format(models.DateLayout),
			StartTime: e.Start.Format(models.TimeLayout),
			EndTime:   e.End.Format(models.TimeLayout),
			Subjects:  names(e.Subjects, models.Entity.DisplayName),
			Rooms:     names(e.Rooms, shortName),
			Groups:    names(e.Groups, shortName),
			Teachers:  make([]models.TeacherRef, len(e.TeacherIDs)),
			Code:      e.Code,
		}
		for i, id := range e.TeacherIDs {
			rec.Teachers[i] = models.TeacherRef{ID: id, Name: p.teachers.Resolve(id)}
		}
		if !origin.IsZero() {
			rec.Day = dayOffset(origin, e.Start)
		}
		records = append(records, rec)
	}
	return records
}

func shortName(e models.Entity) string {
	return e.Name
}

func names(items []models.Entity, name func(models.Entity) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = name(item)
	}
	return out
}

func dayOffset(origin, t time.Time) int {
	o := time.Date(origin.Year(), origin.Month(), origin.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(d.Sub(o).Hours()/24)) + 1
}

// TimetableService fetches timetables and maps them onto cached reference data.
type TimetableService struct {
	sessions  sessionProvider
	refs      *ReferenceService
	projector *Projector
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(sessions sessionProvider, refs *ReferenceService, teachers teacherResolver, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		sessions:  sessions,
		refs:      refs,
		projector: NewProjector(teachers),
		validator: validate,
		logger:    logger,
	}
}

// Fetch returns the entries of the query sorted by start time. Subject, room
// and group ids are resolved through the reference cache; unknown ids become
// placeholder entities. Teacher ids are left raw.
func (s *TimetableService) Fetch(ctx context.Context, q models.TimetableQuery) ([]models.TimetableEntry, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	gw, err := s.sessions.Require()
	if err != nil {
		return nil, err
	}

	subjects, err := s.refs.Get(ctx, models.KindSubjects, false)
	if err != nil {
		return nil, err
	}
	rooms, err := s.refs.Get(ctx, models.KindRooms, false)
	if err != nil {
		return nil, err
	}
	groups, err := s.refs.Get(ctx, models.KindGroups, false)
	if err != nil {
		return nil, err
	}

	periods, err := gw.Timetable(ctx, q)
	if err != nil {
		return nil, err
	}

	entries := make([]models.TimetableEntry, 0, len(periods))
	for _, p := range periods {
		entries = append(entries, models.TimetableEntry{
			ID:         p.ID,
			Start:      p.Start,
			End:        p.End,
			Subjects:   resolveRefs(p.SubjectIDs, subjects),
			Rooms:      resolveRefs(p.RoomIDs, rooms),
			Groups:     resolveRefs(p.GroupIDs, groups),
			TeacherIDs: append([]int64(nil), p.TeacherIDs...),
			Code:       p.Code,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
	s.logger.Debug("timetable fetched", zap.String("kind", string(q.Kind)), zap.Int64("id", q.ID), zap.Int("entries", len(entries)))
	return entries, nil
}

// Records fetches and projects the query, numbering days from the query start.
func (s *TimetableService) Records(ctx context.Context, q models.TimetableQuery) ([]models.FlatRecord, error) {
	entries, err := s.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(entries, q.Start), nil
}

// Projector exposes the projector used by Records.
func (s *TimetableService) Projector() *Projector {
	return s.projector
}

func resolveRefs(ids []int64, table map[int64]models.Entity) []models.Entity {
	out := make([]models.Entity, len(ids))
	for i, id := range ids {
		if e, ok := table[id]; ok {
			out[i] = e
			continue
		}
		out[i] = models.PlaceholderEntity(id)
	}
	return out
}
