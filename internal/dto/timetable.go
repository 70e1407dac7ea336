package dto

// TimetableParams selects a timetable. Start and end are yyyy-mm-dd.
type TimetableParams struct {
	Kind   string `form:"kind" validate:"required"`
	ID     int64  `form:"id" validate:"required,gt=0"`
	Start  string `form:"start" validate:"required,datetime=2006-01-02"`
	End    string `form:"end" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
	Save   bool   `form:"save"`
}
