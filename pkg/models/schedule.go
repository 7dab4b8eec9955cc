package models

// Closed-day sentinel values written for days the caller did not supply.
const (
	ClosedTimeStart = "00:00"
	ClosedTimeEnd   = "23:59"
	DaysPerWeek     = 7
)

// ScheduleEntry is the opening window of a space for one day of the week.
// Day runs from 0 (Sunday) to 6 (Saturday).
type ScheduleEntry struct {
	ID        int64  `json:"id,omitempty" db:"id" gorm:"primaryKey;autoIncrement"`
	SpaceID   int64  `json:"space_id" db:"space_id" gorm:"index;not null"`
	Day       int    `json:"day" db:"day" gorm:"not null"`
	TimeStart string `json:"time_start" db:"time_start"`
	TimeEnd   string `json:"time_end" db:"time_end"`
	Closed    bool   `json:"closed" db:"closed"`
	// DayName comes from the weekdays lookup when it is joined
	DayName string `json:"day_name,omitempty" db:"-" gorm:"-"`
}

// TableName pins the gorm table name
func (ScheduleEntry) TableName() string { return "schedules" }

// Weekday is a row of the weekdays lookup table
type Weekday struct {
	Day  int    `json:"day" db:"day" gorm:"primaryKey;autoIncrement:false"`
	Name string `json:"name" db:"name"`
}

// DefaultWeekdays seeds the weekdays lookup
var DefaultWeekdays = []Weekday{
	{Day: 0, Name: "Sunday"},
	{Day: 1, Name: "Monday"},
	{Day: 2, Name: "Tuesday"},
	{Day: 3, Name: "Wednesday"},
	{Day: 4, Name: "Thursday"},
	{Day: 5, Name: "Friday"},
	{Day: 6, Name: "Saturday"},
}
