package models

import (
	"strings"
	"time"
)

// Formats used in projected records.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ListSeparator joins sub-lists inside a CSV field.
const ListSeparator = "|"

// TimetableEntry is one scheduled period. Teachers stay raw ids; resolving
// them is left to the projector.
type TimetableEntry struct {
	ID         int64     `json:"id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Subjects   []Entity  `json:"subjects"`
	Rooms      []Entity  `json:"rooms"`
	Groups     []Entity  `json:"groups"`
	TeacherIDs []int64   `json:"teacher_ids"`
	Code       string    `json:"code,omitempty"`
}

// FlatRecord is the display-ready form of a TimetableEntry. Its JSON encoding
// is the structured variant; CSVRow gives the delimited one.
type FlatRecord struct {
	Date      string       `json:"date"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Day       int          `json:"day,omitempty"`
	Subjects  []string     `json:"subjects"`
	Rooms     []string     `json:"rooms"`
	Groups    []string     `json:"groups"`
	Teachers  []TeacherRef `json:"teachers"`
	Code      string       `json:"code,omitempty"`
}

// CSVColumns is the fixed field order of CSVRow. It is not written as a header.
var CSVColumns = []string{"date", "start", "end", "subjects", "rooms", "groups", "teachers"}

// TeacherNames returns the resolved teacher names in entry order.
func (r FlatRecord) TeacherNames() []string {
	names := make([]string, len(r.Teachers))
	for i, t := range r.Teachers {
		names[i] = t.Name
	}
	return names
}

// CSVRow renders the record in CSVColumns order.
func (r FlatRecord) CSVRow() []string {
	return []string{
		r.Date,
		r.StartTime,
		r.EndTime,
		strings.Join(r.Subjects, ListSeparator),
		strings.Join(r.Rooms, ListSeparator),
		strings.Join(r.Groups, ListSeparator),
		strings.Join(r.TeacherNames(), ListSeparator),
	}
}

// ElementType selects which element a timetable query is about.
type ElementType int

// Element types as numbered by the remote service.
const (
	ElementGroup   ElementType = 1
	ElementTeacher ElementType = 2
	ElementSubject ElementType = 3
	ElementRoom    ElementType = 4
)

// ElementTypeFor maps a kind to its element type. ok is false for kinds a
// timetable cannot be queried by.
func ElementTypeFor(kind Kind) (ElementType, bool) {
	switch kind {
	case KindGroups:
		return ElementGroup, true
	case KindTeachers:
		return ElementTeacher, true
	case KindSubjects:
		return ElementSubject, true
	case KindRooms:
		return ElementRoom, true
	}
	return 0, false
}

// TimetableQuery asks for the periods of exactly one element in a date range.
type TimetableQuery struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
	Kind  Kind      `json:"kind" validate:"required,oneof=teachers groups subjects rooms"`
	ID    int64     `json:"id" validate:"required,gt=0"`
}

// Period is a timetable period as the remote service reports it, with every
// reference still a bare id.
type Period struct {
	ID         int64
	Start      time.Time
	End        time.Time
	GroupIDs   []int64
	TeacherIDs []int64
	SubjectIDs []int64
	RoomIDs    []int64
	Code       string
}
