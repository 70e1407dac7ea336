package dto

import "github.com/noah-isme/untapped/internal/models"

// TeacherSearchRequest looks a teacher up either by surname and forename or
// by a single free-text name.
type TeacherSearchRequest struct {
	Surname     string `json:"surname" validate:"required_without=Name,max=100"`
	Forename    string `json:"forename" validate:"required_with=Surname,max=100"`
	Name        string `json:"name" validate:"required_without=Surname,max=200"`
	TryReversed *bool  `json:"try_reversed"`
}

// Reversed reports whether a miss should be retried with the names swapped. Defaults to true.
func (r TeacherSearchRequest) Reversed() bool {
	return r.TryReversed == nil || *r.TryReversed
}

// TeacherSearchResponse reports the outcome of a search.
type TeacherSearchResponse struct {
	Found   bool            `json:"found"`
	Teacher *models.Teacher `json:"teacher,omitempty"`
	Name    string          `json:"name,omitempty"`
}
