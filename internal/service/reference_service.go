package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

// entityTable is one populate-all, insertion-ordered reference table.
type entityTable struct {
	mu     sync.Mutex
	loaded bool
	order  []int64
	byID   map[int64]models.Entity
}

func (t *entityTable) replace(items []models.Entity) {
	byID := make(map[int64]models.Entity, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if _, seen := byID[item.ID]; !seen {
			order = append(order, item.ID)
		}
		byID[item.ID] = item
	}
	t.byID = byID
	t.order = order
	t.loaded = true
}

func (t *entityTable) list() []models.Entity {
	out := make([]models.Entity, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// ReferenceService is the reference cache for departments, subjects, rooms,
// school years and groups. Each table is fetched in full on first use and
// only refetched on an explicit reset.
type ReferenceService struct {
	sessions sessionProvider
	metrics  *MetricsService
	logger   *zap.Logger
	tables   map[models.Kind]*entityTable
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(sessions sessionProvider, metrics *MetricsService, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	tables := make(map[models.Kind]*entityTable, len(models.ReferenceKinds))
	for _, kind := range models.ReferenceKinds {
		tables[kind] = &entityTable{}
	}
	return &ReferenceService{sessions: sessions, metrics: metrics, logger: logger, tables: tables}
}

// Get returns the id-indexed table for kind, fetching it when it was never
// loaded or reset is set. The returned map is a copy.
func (s *ReferenceService) Get(ctx context.Context, kind models.Kind, reset bool) (map[int64]models.Entity, error) {
	var out map[int64]models.Entity
	err := s.withTable(ctx, kind, reset, func(t *entityTable) {
		out = make(map[int64]models.Entity, len(t.byID))
		for id, e := range t.byID {
			out[id] = e
		}
	})
	return out, err
}

// List returns the entities of kind in fetch order. It is the explicit
// "no filter" counterpart of Find.
func (s *ReferenceService) List(ctx context.Context, kind models.Kind, reset bool) ([]models.Entity, error) {
	var out []models.Entity
	err := s.withTable(ctx, kind, reset, func(t *entityTable) {
		out = t.list()
	})
	return out, err
}

// Lookup returns the entity with id, loading the table if needed.
func (s *ReferenceService) Lookup(ctx context.Context, kind models.Kind, id int64) (models.Entity, bool, error) {
	var (
		found models.Entity
		ok    bool
	)
	err := s.withTable(ctx, kind, false, func(t *entityTable) {
		found, ok = t.byID[id]
	})
	return found, ok, err
}

// GetByName returns the first entity whose short name equals name exactly.
func (s *ReferenceService) GetByName(ctx context.Context, kind models.Kind, name string) (models.Entity, bool, error) {
	items, err := s.List(ctx, kind, false)
	if err != nil {
		return models.Entity{}, false, err
	}
	for _, item := range items {
		if item.Name == name {
			return item, true, nil
		}
	}
	return models.Entity{}, false, nil
}

// Find returns the entities of kind whose display name matches the shell
// glob pattern, in fetch order. Matching is case sensitive. An empty pattern
// only matches entities with an empty display name; use List for everything.
func (s *ReferenceService) Find(ctx context.Context, kind models.Kind, pattern string) ([]models.Entity, error) {
	items, err := s.List(ctx, kind, false)
	if err != nil {
		return nil, err
	}
	return filterByGlob(items, pattern, models.Entity.DisplayName)
}

// Groups returns the groups, restricted to one department when department is
// not empty. department may be a department id or a department name.
func (s *ReferenceService) Groups(ctx context.Context, department string, reset bool) ([]models.Entity, error) {
	groups, err := s.List(ctx, models.KindGroups, reset)
	if err != nil {
		return nil, err
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return groups, nil
	}

	ids := map[int64]struct{}{}
	if id, err := strconv.ParseInt(department, 10, 64); err == nil {
		ids[id] = struct{}{}
	}
	dep, ok, err := s.GetByName(ctx, models.KindDepartments, department)
	if err != nil && len(ids) == 0 {
		return nil, err
	}
	if ok {
		ids[dep.ID] = struct{}{}
	}

	out := make([]models.Entity, 0, len(groups))
	for _, g := range groups {
		if _, match := ids[g.DepartmentID]; match && g.DepartmentID != 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

// FindGroups globs group short names, optionally within one department.
func (s *ReferenceService) FindGroups(ctx context.Context, pattern, department string) ([]models.Entity, error) {
	groups, err := s.Groups(ctx, department, false)
	if err != nil {
		return nil, err
	}
	return filterByGlob(groups, pattern, func(e models.Entity) string { return e.Name })
}

// Reset drops every table so the next access refetches.
func (s *ReferenceService) Reset() {
	for _, t := range s.tables {
		t.mu.Lock()
		t.loaded = false
		t.order = nil
		t.byID = nil
		t.mu.Unlock()
	}
}

func (s *ReferenceService) withTable(ctx context.Context, kind models.Kind, reset bool, fn func(*entityTable)) error {
	t, ok := s.tables[kind]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a reference table", kind))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded && !reset {
		s.metrics.RecordCacheLookup(kind, true)
		fn(t)
		return nil
	}
	s.metrics.RecordCacheLookup(kind, false)

	gw, err := s.sessions.Require()
	if err != nil {
		return err
	}

	start := time.Now()
	items, err := fetchKind(ctx, gw, kind)
	s.metrics.ObserveRemoteFetch(kind, err, time.Since(start))
	if err != nil {
		s.logger.Warn("reference fetch failed", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}

	t.replace(items)
	s.logger.Debug("reference table loaded", zap.String("kind", string(kind)), zap.Int("count", len(t.order)))
	fn(t)
	return nil
}

func fetchKind(ctx context.Context, gw Gateway, kind models.Kind) ([]models.Entity, error) {
	switch kind {
	case models.KindDepartments:
		return gw.Departments(ctx)
	case models.KindSubjects:
		return gw.Subjects(ctx)
	case models.KindRooms:
		return gw.Rooms(ctx)
	case models.KindSchoolYears:
		return gw.SchoolYears(ctx)
	case models.KindGroups:
		return gw.Groups(ctx)
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a reference table", kind))
}

func filterByGlob(items []models.Entity, pattern string, name func(models.Entity) string) ([]models.Entity, error) {
	out := make([]models.Entity, 0)
	if pattern == "" {
		for _, item := range items {
			if name(item) == "" {
				out = append(out, item)
			}
		}
		return out, nil
	}

	g, err := CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if g.Match(name(item)) {
			out = append(out, item)
		}
	}
	return out, nil
}

// CompileGlob compiles a shell-style pattern: '*', '?' and '[...]' (with '!'
// negation) are special, everything else, braces and backslashes included,
// matches literally. A ']' right after the opening '[' (or '[!') belongs to
// the class, and a '[' without a closing ']' is a literal.
func CompileGlob(pattern string) (glob.Glob, error) {
	runes := []rune(pattern)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '[':
			end := classEnd(runes, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteRune('[')
			j := i + 1
			if runes[j] == '!' {
				b.WriteRune('!')
				j++
			}
			for ; j < end; j++ {
				if runes[j] == ']' || runes[j] == '\\' {
					b.WriteRune('\\')
				}
				b.WriteRune(runes[j])
			}
			b.WriteRune(']')
			i = end
		case '{', '}', ']', '\\', ',':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	g, err := glob.Compile(b.String())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid pattern %q", pattern))
	}
	return g, nil
}

// classEnd returns the index of the ']' closing the class opened at open, or
// -1 when there is none.
func classEnd(runes []rune, open int) int {
	j := open + 1
	if j < len(runes) && runes[j] == '!' {
		j++
	}
	if j < len(runes) && runes[j] == ']' {
		j++
	}
	for ; j < len(runes); j++ {
		if runes[j] == ']' {
			return j
		}
	}
	return -1
}
