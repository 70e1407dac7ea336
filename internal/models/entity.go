package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a reference table of the timetable service.
type Kind string

const (
	KindDepartments Kind = "departments"
	KindSubjects    Kind = "subjects"
	KindRooms       Kind = "rooms"
	KindSchoolYears Kind = "schoolyears"
	KindGroups      Kind = "groups"
	KindTeachers    Kind = "teachers"
)

// ReferenceKinds lists the kinds served by the reference cache. Teachers are
// kept apart because the backend may refuse to list them.
var ReferenceKinds = []Kind{KindDepartments, KindSubjects, KindRooms, KindSchoolYears, KindGroups}

// ParseKind accepts the plural table names plus a few aliases.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "departments", "department":
		return KindDepartments, nil
	case "subjects", "subject":
		return KindSubjects, nil
	case "rooms", "room":
		return KindRooms, nil
	case "schoolyears", "schoolyear", "school_years":
		return KindSchoolYears, nil
	case "groups", "group", "klassen", "classes", "class":
		return KindGroups, nil
	case "teachers", "teacher":
		return KindTeachers, nil
	}
	return "", fmt.Errorf("unknown kind %q", raw)
}

// Entity is a remote reference record. Identity is the id.
type Entity struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	Name     string `json:"name"`
	LongName string `json:"long_name"`

	// DepartmentID is set for groups only.
	DepartmentID int64 `json:"department_id,omitempty"`
	// StartDate and EndDate are set for school years only.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// DisplayName returns the long name, or the short name when no long name is known.
func (e Entity) DisplayName() string {
	if e.LongName != "" {
		return e.LongName
	}
	return e.Name
}

// Placeholder renders an unresolved reference so it stays visible in output.
func Placeholder(id int64) string {
	return fmt.Sprintf("? (%d)", id)
}

// PlaceholderEntity stands in for a reference id missing from the cache.
func PlaceholderEntity(id int64) Entity {
	name := Placeholder(id)
	return Entity{ID: id, Name: name, LongName: name}
}

// SessionStatus describes the active session.
type SessionStatus struct {
	LoggedIn bool   `json:"logged_in"`
	Server   string `json:"server,omitempty"`
	School   string `json:"school,omitempty"`
	User     string `json:"user,omitempty"`
}
