package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/noah-isme/untapped/internal/models"
	"github.com/noah-isme/untapped/internal/untis"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

type fakeGateway struct {
	mu sync.Mutex

	loginErr    error
	entities    map[models.Kind][]models.Entity
	teachers    []models.Teacher
	teachersErr error
	people      map[[2]string]int64
	periods     []models.Period

	calls     map[string]int
	searches  [][2]string
	loggedOut bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		entities: map[models.Kind][]models.Entity{},
		people:   map[[2]string]int64{},
		calls:    map[string]int{},
	}
}

func (f *fakeGateway) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeGateway) hit(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeGateway) Login(ctx context.Context) error {
	f.hit("Login")
	return f.loginErr
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	f.hit("Logout")
	f.loggedOut = true
	return nil
}

func (f *fakeGateway) list(kind models.Kind) ([]models.Entity, error) {
	f.hit(string(kind))
	return append([]models.Entity(nil), f.entities[kind]...), nil
}

func (f *fakeGateway) Departments(ctx context.Context) ([]models.Entity, error) {
	return f.list(models.KindDepartments)
}

func (f *fakeGateway) Subjects(ctx context.Context) ([]models.Entity, error) {
	return f.list(models.KindSubjects)
}

func (f *fakeGateway) Rooms(ctx context.Context) ([]models.Entity, error) {
	return f.list(models.KindRooms)
}

func (f *fakeGateway) SchoolYears(ctx context.Context) ([]models.Entity, error) {
	return f.list(models.KindSchoolYears)
}

func (f *fakeGateway) Groups(ctx context.Context) ([]models.Entity, error) {
	return f.list(models.KindGroups)
}

func (f *fakeGateway) Teachers(ctx context.Context) ([]models.Teacher, error) {
	f.hit("Teachers")
	if f.teachersErr != nil {
		return nil, f.teachersErr
	}
	return append([]models.Teacher(nil), f.teachers...), nil
}

func (f *fakeGateway) TeacherByName(ctx context.Context, surname, forename string) (models.Teacher, error) {
	f.hit("TeacherByName")
	f.mu.Lock()
	f.searches = append(f.searches, [2]string{surname, forename})
	id, ok := f.people[[2]string{surname, forename}]
	f.mu.Unlock()
	if !ok {
		return models.Teacher{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no teacher named %s %s", forename, surname))
	}
	return models.Teacher{ID: id, Surname: surname, Forename: forename}, nil
}

func (f *fakeGateway) Timetable(ctx context.Context, q models.TimetableQuery) ([]models.Period, error) {
	f.hit("Timetable")
	return append([]models.Period(nil), f.periods...), nil
}

// staticSession always hands out the same gateway.
type staticSession struct {
	gw Gateway
}

func (s staticSession) Require() (Gateway, error) {
	if s.gw == nil {
		return nil, appErrors.ErrSessionRequired
	}
	return s.gw, nil
}

func factoryFor(gateways ...*fakeGateway) (GatewayFactory, *[]untis.Credentials) {
	var seen []untis.Credentials
	i := 0
	return func(creds untis.Credentials) (Gateway, error) {
		seen = append(seen, creds)
		gw := gateways[i%len(gateways)]
		i++
		return gw, nil
	}, &seen
}

type memoryMemo struct {
	teachers  []models.Teacher
	err       error
	forgotten bool
}

func (m *memoryMemo) Load(ctx context.Context) ([]models.Teacher, error) {
	return append([]models.Teacher(nil), m.teachers...), m.err
}

func (m *memoryMemo) Remember(ctx context.Context, teacher models.Teacher) error {
	if m.err != nil {
		return m.err
	}
	m.teachers = append(m.teachers, teacher)
	return nil
}

func (m *memoryMemo) Forget(ctx context.Context) error {
	m.forgotten = true
	m.teachers = nil
	return nil
}
