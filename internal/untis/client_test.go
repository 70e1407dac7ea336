package untis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

type fakeServer struct {
	t       *testing.T
	mu      sync.Mutex
	results map[string]interface{}
	errs    map[string]rpcError
	calls   []rpcRequest
	cookies []string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	fs := &fakeServer{t: t, results: map[string]interface{}{}, errs: map[string]rpcError{}}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	fs.results["authenticate"] = map[string]interface{}{"sessionId": "sid-1", "personType": 2, "personId": 7}
	return fs, srv
}

func (f *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "/WebUntis/jsonrpc.do", r.URL.Path)
	assert.Equal(f.t, "demo school", r.URL.Query().Get("school"))
	var req rpcRequest
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	f.mu.Lock()
	f.calls = append(f.calls, req)
	if ck, err := r.Cookie(sessionCookie); err == nil {
		f.cookies = append(f.cookies, ck.Value)
	}
	result, hasResult := f.results[req.Method]
	rpcErr, hasErr := f.errs[req.Method]
	f.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case hasErr:
		resp["error"] = rpcErr
	case hasResult:
		resp["result"] = result
	default:
		resp["result"] = nil
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Credentials{Server: srv.URL, School: "demo school", User: "jdoe", Password: "secret"}, WithLocation(time.UTC))
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Credentials{Server: "example.com", School: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "https://arche.webuntis.com/WebUntis/jsonrpc.do?school=ap+school", endpointFor("arche.webuntis.com", "ap school"))
	assert.Equal(t, "http://127.0.0.1:1/WebUntis/jsonrpc.do?school=x", endpointFor("http://127.0.0.1:1/", "x"))
}

func TestCallBeforeLoginNeedsSession(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv)

	_, err := c.Subjects(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrSessionRequired))
}

func TestLoginSendsSessionCookie(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.results["getSubjects"] = []map[string]interface{}{
		{"id": 1, "name": "NET", "longName": "datacom & netwerken"},
		{"id": 0, "name": "broken"},
	}
	c := newTestClient(t, srv)

	require.NoError(t, c.Login(context.Background()))
	assert.True(t, c.LoggedIn())

	subjects, err := c.Subjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1, "entities failing validation are skipped")
	assert.Equal(t, models.Entity{ID: 1, Name: "NET", LongName: "datacom & netwerken"}, subjects[0])
	assert.Equal(t, []string{"sid-1"}, fs.cookies)

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.LoggedIn())
}

func TestRemoteErrorMapping(t *testing.T) {
	cases := []struct {
		code int
		want *appErrors.Error
	}{
		{codeBadCredentials, appErrors.ErrBadCredentials},
		{codeNoRight, appErrors.ErrPermissionDenied},
		{codeNotAuthenticated, appErrors.ErrSessionRequired},
		{codeDateNotAllowed, appErrors.ErrValidation},
		{-32601, appErrors.ErrUpstream},
	}
	for _, tc := range cases {
		err := mapRemoteError("m", &rpcError{Code: tc.code, Message: "x"})
		assert.True(t, errors.Is(err, tc.want), "code %d", tc.code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.errs["authenticate"] = rpcError{Code: codeBadCredentials, Message: "bad credentials"}
	c := newTestClient(t, srv)

	err := c.Login(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrBadCredentials))
	assert.False(t, c.LoggedIn())
}

func TestTeachersPermissionDenied(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.errs["getTeachers"] = rpcError{Code: codeNoRight, Message: "no right for getTeachers()"}
	c := newTestClient(t, srv)
	require.NoError(t, c.Login(context.Background()))

	_, err := c.Teachers(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
}

func TestTeacherByName(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.results["getPersonId"] = 42
	c := newTestClient(t, srv)
	require.NoError(t, c.Login(context.Background()))

	teacher, err := c.TeacherByName(context.Background(), "Doe", "Jane")
	require.NoError(t, err)
	assert.Equal(t, int64(42), teacher.ID)
	assert.Equal(t, "Jane Doe", teacher.FullName())

	last := fs.calls[len(fs.calls)-1]
	params, ok := last.Params.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Doe", params["sn"])
	assert.Equal(t, "Jane", params["fn"])
	assert.Equal(t, float64(personTypeTeacher), params["type"])

	fs.results["getPersonId"] = 0
	_, err = c.TeacherByName(context.Background(), "Nobody", "Here")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTimetableMapsPeriods(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.results["getTimetable"] = []map[string]interface{}{
		{"id": 9, "date": 20210920, "startTime": 830, "endTime": 1015,
			"kl": []map[string]int{{"id": 3}}, "te": []map[string]int{{"id": 42}, {"id": 99}},
			"su": []map[string]int{{"id": 1}}, "ro": []map[string]int{{"id": 2}}},
		{"id": 10, "date": 20210931, "startTime": 800, "endTime": 900},
	}
	c := newTestClient(t, srv)
	require.NoError(t, c.Login(context.Background()))

	q := models.TimetableQuery{
		Start: time.Date(2021, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 12, 21, 0, 0, 0, 0, time.UTC),
		Kind:  models.KindSubjects,
		ID:    1,
	}
	periods, err := c.Timetable(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, periods, 1, "periods with impossible dates are skipped")
	p := periods[0]
	assert.Equal(t, time.Date(2021, 9, 20, 8, 30, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2021, 9, 20, 10, 15, 0, 0, time.UTC), p.End)
	assert.Equal(t, []int64{42, 99}, p.TeacherIDs)
	assert.Equal(t, []int64{3}, p.GroupIDs)

	params := fs.calls[len(fs.calls)-1].Params.(map[string]interface{})
	assert.Equal(t, float64(20210920), params["startDate"])
	assert.Equal(t, float64(20211221), params["endDate"])
	assert.Equal(t, float64(models.ElementSubject), params["type"])
}

func TestTimetableRejectsUnqueryableKind(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv)
	_, err := c.Timetable(context.Background(), models.TimetableQuery{Kind: models.KindDepartments, ID: 1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime(20240229, 1745, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 17, 45, 0, 0, time.UTC), got)

	_, err = ParseDateTime(20230229, 0, time.UTC)
	assert.Error(t, err)
	_, err = ParseDateTime(20230101, 2460, time.UTC)
	assert.Error(t, err)
	assert.Equal(t, 20230105, FormatDate(time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)))
}
