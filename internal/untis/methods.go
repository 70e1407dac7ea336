package untis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/models"
	appErrors "github.com/noah-isme/untapped/pkg/errors"
)

// personTypeTeacher is the getPersonId type for teachers.
const personTypeTeacher = 2

type rawElement struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LongName     string `json:"longName"`
	ForeName     string `json:"foreName"`
	Title        string `json:"title"`
	DepartmentID int64  `json:"did"`
	StartDate    int    `json:"startDate"`
	EndDate      int    `json:"endDate"`
}

type rawRef struct {
	ID int64 `json:"id"`
}

type rawPeriod struct {
	ID        int64    `json:"id"`
	Date      int      `json:"date"`
	StartTime int      `json:"startTime"`
	EndTime   int      `json:"endTime"`
	Groups    []rawRef `json:"kl"`
	Teachers  []rawRef `json:"te"`
	Subjects  []rawRef `json:"su"`
	Rooms     []rawRef `json:"ro"`
	Code      string   `json:"code"`
}

// Departments lists all departments.
func (c *Client) Departments(ctx context.Context) ([]models.Entity, error) {
	return c.entities(ctx, "getDepartments", models.KindDepartments)
}

// Subjects lists all subjects.
func (c *Client) Subjects(ctx context.Context) ([]models.Entity, error) {
	return c.entities(ctx, "getSubjects", models.KindSubjects)
}

// Rooms lists all rooms.
func (c *Client) Rooms(ctx context.Context) ([]models.Entity, error) {
	return c.entities(ctx, "getRooms", models.KindRooms)
}

// SchoolYears lists all school years.
func (c *Client) SchoolYears(ctx context.Context) ([]models.Entity, error) {
	return c.entities(ctx, "getSchoolyears", models.KindSchoolYears)
}

// Groups lists the classes (klassen) of the current school year.
func (c *Client) Groups(ctx context.Context) ([]models.Entity, error) {
	return c.entities(ctx, "getKlassen", models.KindGroups)
}

// Teachers lists all teachers. Many accounts lack the right for this and get
// ErrPermissionDenied.
func (c *Client) Teachers(ctx context.Context) ([]models.Teacher, error) {
	var raw []rawElement
	if err := c.call(ctx, "getTeachers", struct{}{}, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Teacher, 0, len(raw))
	for _, r := range raw {
		t := models.Teacher{ID: r.ID, Surname: r.LongName, Forename: r.ForeName, LongName: r.LongName, Title: r.Title}
		if err := c.validate.Struct(t); err != nil {
			c.logger.Warn("skipping malformed teacher", zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// TeacherByName looks a teacher up by exact surname and forename. A miss is
// reported as ErrNotFound.
func (c *Client) TeacherByName(ctx context.Context, surname, forename string) (models.Teacher, error) {
	params := map[string]interface{}{
		"type": personTypeTeacher,
		"sn":   surname,
		"fn":   forename,
		"dob":  0,
	}
	var id int64
	if err := c.call(ctx, "getPersonId", params, &id); err != nil {
		return models.Teacher{}, err
	}
	if id == 0 {
		return models.Teacher{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no teacher named %s %s", forename, surname))
	}
	return models.Teacher{ID: id, Surname: surname, Forename: forename}, nil
}

// Timetable returns the periods of one element in the query's date range.
func (c *Client) Timetable(ctx context.Context, q models.TimetableQuery) ([]models.Period, error) {
	elementType, ok := models.ElementTypeFor(q.Kind)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot query a timetable by %s", q.Kind))
	}
	params := map[string]interface{}{
		"id":        q.ID,
		"type":      int(elementType),
		"startDate": FormatDate(q.Start),
		"endDate":   FormatDate(q.End),
	}
	var raw []rawPeriod
	if err := c.call(ctx, "getTimetable", params, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Period, 0, len(raw))
	for _, r := range raw {
		start, err := ParseDateTime(r.Date, r.StartTime, c.loc)
		if err != nil {
			c.logger.Warn("skipping period with bad start", zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		end, err := ParseDateTime(r.Date, r.EndTime, c.loc)
		if err != nil {
			c.logger.Warn("skipping period with bad end", zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, models.Period{
			ID:         r.ID,
			Start:      start,
			End:        end,
			GroupIDs:   refIDs(r.Groups),
			TeacherIDs: refIDs(r.Teachers),
			SubjectIDs: refIDs(r.Subjects),
			RoomIDs:    refIDs(r.Rooms),
			Code:       r.Code,
		})
	}
	return out, nil
}

func (c *Client) entities(ctx context.Context, method string, kind models.Kind) ([]models.Entity, error) {
	var raw []rawElement
	if err := c.call(ctx, method, struct{}{}, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Entity, 0, len(raw))
	for _, r := range raw {
		e := models.Entity{ID: r.ID, Name: r.Name, LongName: r.LongName}
		switch kind {
		case models.KindGroups:
			e.DepartmentID = r.DepartmentID
		case models.KindSchoolYears:
			if d, err := ParseDateTime(r.StartDate, 0, c.loc); err == nil {
				e.StartDate = &d
			}
			if d, err := ParseDateTime(r.EndDate, 0, c.loc); err == nil {
				e.EndDate = &d
			}
		}
		if err := c.validate.Struct(e); err != nil {
			c.logger.Warn("skipping malformed entity", zap.String("kind", string(kind)), zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func refIDs(refs []rawRef) []int64 {
	ids := make([]int64, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

// FormatDate renders t as the yyyymmdd integer the service expects.
func FormatDate(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// ParseDateTime combines a yyyymmdd date and an hhmm time of day.
func ParseDateTime(date, hhmm int, loc *time.Location) (time.Time, error) {
	year, month, day := date/10000, (date/100)%100, date%100
	hour, minute := hhmm/100, hhmm%100
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || hhmm < 0 {
		return time.Time{}, fmt.Errorf("invalid date/time %d %04d", date, hhmm)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %d", date)
	}
	return t, nil
}
