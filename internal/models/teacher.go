package models

import "strings"

// Teacher is a teacher known to the directory.
type Teacher struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	Surname  string `json:"surname"`
	Forename string `json:"forename"`
	LongName string `json:"long_name,omitempty"`
	Title    string `json:"title,omitempty"`
}

// FullName is "Forename Surname", falling back to the long name.
func (t Teacher) FullName() string {
	full := strings.TrimSpace(strings.TrimSpace(t.Forename) + " " + strings.TrimSpace(t.Surname))
	if full == "" {
		return t.LongName
	}
	return full
}

// TeacherRef is a resolved teacher reference inside a projected record.
type TeacherRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
