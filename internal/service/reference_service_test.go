package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

func subjectsFixture() []models.Entity {
	return []models.Entity{
		{ID: 1, Name: "NET", LongName: "Netwerken"},
		{ID: 2, Name: "ALG", LongName: "Algebra"},
		{ID: 3, Name: "AN", LongName: "Analyse"},
		{ID: 4, Name: "X"},
	}
}

func newReferenceFixture() (*ReferenceService, *fakeGateway) {
	gw := newFakeGateway()
	gw.entities[models.KindSubjects] = subjectsFixture()
	gw.entities[models.KindRooms] = []models.Entity{{ID: 1, Name: "A101"}, {ID: 2, Name: "B202"}}
	gw.entities[models.KindDepartments] = []models.Entity{{ID: 10, Name: "IT"}, {ID: 20, Name: "Math"}}
	gw.entities[models.KindGroups] = []models.Entity{
		{ID: 100, Name: "1A", DepartmentID: 10},
		{ID: 101, Name: "1B", DepartmentID: 20},
		{ID: 102, Name: "2A", DepartmentID: 10},
	}
	return NewReferenceService(staticSession{gw: gw}, NewMetricsService(), nil), gw
}

func TestReferencePopulatesOnce(t *testing.T) {
	refs, gw := newReferenceFixture()
	ctx := context.Background()

	first, err := refs.Get(ctx, models.KindSubjects, false)
	require.NoError(t, err)
	second, err := refs.Get(ctx, models.KindSubjects, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.count(string(models.KindSubjects)))

	_, err = refs.Get(ctx, models.KindSubjects, true)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.count(string(models.KindSubjects)))

	refs.Reset()
	_, err = refs.List(ctx, models.KindSubjects, false)
	require.NoError(t, err)
	assert.Equal(t, 3, gw.count(string(models.KindSubjects)))
}

func TestReferenceResetReplacesTable(t *testing.T) {
	refs, gw := newReferenceFixture()
	ctx := context.Background()

	before, err := refs.Get(ctx, models.KindSubjects, false)
	require.NoError(t, err)
	require.Contains(t, before, int64(2))

	gw.entities[models.KindSubjects] = []models.Entity{
		{ID: 4, Name: "X"},
		{ID: 5, Name: "DB", LongName: "Databanken"},
		{ID: 1, Name: "NET", LongName: "Netwerken 2"},
	}
	after, err := refs.Get(ctx, models.KindSubjects, true)
	require.NoError(t, err)
	assert.Len(t, after, 3)
	assert.NotContains(t, after, int64(2))
	assert.NotContains(t, after, int64(3))
	assert.Equal(t, "Netwerken 2", after[1].LongName)

	list, err := refs.List(ctx, models.KindSubjects, false)
	require.NoError(t, err)
	ids := make([]int64, len(list))
	for i, e := range list {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{4, 5, 1}, ids, "order follows the latest fetch")

	_, ok, err := refs.Lookup(ctx, models.KindSubjects, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferenceDuplicateIDLastWins(t *testing.T) {
	refs, gw := newReferenceFixture()
	gw.entities[models.KindRooms] = []models.Entity{
		{ID: 1, Name: "A101"},
		{ID: 2, Name: "B202"},
		{ID: 1, Name: "A102"},
	}

	table, err := refs.Get(context.Background(), models.KindRooms, false)
	require.NoError(t, err)
	assert.Len(t, table, 2)
	assert.Equal(t, "A102", table[1].Name)

	list, err := refs.List(context.Background(), models.KindRooms, false)
	require.NoError(t, err)
	assert.Equal(t, []models.Entity{{ID: 1, Name: "A102"}, {ID: 2, Name: "B202"}}, list)
}

func TestReferenceConcurrentFirstUseFetchesOnce(t *testing.T) {
	refs, gw := newReferenceFixture()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := refs.Get(context.Background(), models.KindRooms, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, gw.count(string(models.KindRooms)))
}

func TestReferenceGetReturnsCopy(t *testing.T) {
	refs, _ := newReferenceFixture()
	table, err := refs.Get(context.Background(), models.KindRooms, false)
	require.NoError(t, err)
	delete(table, 1)

	room, ok, err := refs.Lookup(context.Background(), models.KindRooms, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A101", room.Name)

	_, ok, err = refs.Lookup(context.Background(), models.KindRooms, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferenceFind(t *testing.T) {
	refs, _ := newReferenceFixture()
	ctx := context.Background()

	all, err := refs.Find(ctx, models.KindSubjects, "*")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	prefixed, err := refs.Find(ctx, models.KindSubjects, "A*")
	require.NoError(t, err)
	require.Len(t, prefixed, 2)
	assert.Equal(t, int64(2), prefixed[0].ID)
	assert.Equal(t, int64(3), prefixed[1].ID)

	exact, err := refs.Find(ctx, models.KindSubjects, "Netwerken")
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, int64(1), exact[0].ID)

	short, err := refs.Find(ctx, models.KindSubjects, "X")
	require.NoError(t, err)
	require.Len(t, short, 1, "display name falls back to the short name")

	none, err := refs.Find(ctx, models.KindSubjects, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	caseSensitive, err := refs.Find(ctx, models.KindSubjects, "a*")
	require.NoError(t, err)
	assert.Empty(t, caseSensitive)

	class, err := refs.Find(ctx, models.KindSubjects, "[!A]*")
	require.NoError(t, err)
	assert.Len(t, class, 2)
}

func TestReferenceFindRooms(t *testing.T) {
	refs, _ := newReferenceFixture()
	rooms, err := refs.Find(context.Background(), models.KindRooms, "A*")
	require.NoError(t, err)
	assert.Equal(t, []models.Entity{{ID: 1, Name: "A101"}}, rooms)
}

func TestCompileGlobTreatsBracesLiterally(t *testing.T) {
	g, err := CompileGlob("{a,b}")
	require.NoError(t, err)
	assert.True(t, g.Match("{a,b}"))
	assert.False(t, g.Match("a"))
}

func TestCompileGlobBrackets(t *testing.T) {
	cases := []struct {
		pattern string
		match   []string
		miss    []string
	}{
		{pattern: "[", match: []string{"["}, miss: []string{""}},
		{pattern: "1[A", match: []string{"1[A"}, miss: []string{"1A"}},
		{pattern: "[]a]", match: []string{"]", "a"}, miss: []string{"b"}},
		{pattern: "[!]a]x", match: []string{"bx"}, miss: []string{"]x", "ax"}},
		{pattern: "[!]", match: []string{"[!]"}, miss: []string{"a"}},
		{pattern: "[1-3]A", match: []string{"2A"}, miss: []string{"4A"}},
		{pattern: `a\b`, match: []string{`a\b`}},
		{pattern: "a]b", match: []string{"a]b"}},
	}
	for _, tc := range cases {
		g, err := CompileGlob(tc.pattern)
		require.NoError(t, err, tc.pattern)
		for _, name := range tc.match {
			assert.True(t, g.Match(name), "%q should match %q", tc.pattern, name)
		}
		for _, name := range tc.miss {
			assert.False(t, g.Match(name), "%q should not match %q", tc.pattern, name)
		}
	}
}

func TestReferenceGroupsByDepartment(t *testing.T) {
	refs, _ := newReferenceFixture()
	ctx := context.Background()

	byName, err := refs.Groups(ctx, "IT", false)
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "1A", byName[0].Name)
	assert.Equal(t, "2A", byName[1].Name)

	byID, err := refs.Groups(ctx, "20", false)
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "1B", byID[0].Name)

	unknown, err := refs.Groups(ctx, "Art", false)
	require.NoError(t, err)
	assert.Empty(t, unknown)

	found, err := refs.FindGroups(ctx, "1*", "IT")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(100), found[0].ID)

	byExactName, ok, err := refs.GetByName(ctx, models.KindGroups, "2A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(102), byExactName.ID)
}

func TestReferenceRequiresSession(t *testing.T) {
	refs := NewReferenceService(staticSession{}, nil, nil)
	_, err := refs.Get(context.Background(), models.KindRooms, false)
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))
}

func TestReferenceRejectsTeachers(t *testing.T) {
	refs, _ := newReferenceFixture()
	_, err := refs.Get(context.Background(), models.KindTeachers, false)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
