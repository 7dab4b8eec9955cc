package services

import (
	"regexp"

	"sports-spaces-backend/pkg/models"
)

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ScheduleInput is one caller-supplied opening window
type ScheduleInput struct {
	Day       int    `json:"day"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// validateSchedule checks day range, duplicates, HH:MM format and start < end
func validateSchedule(entries []ScheduleInput) error {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Day < 0 || e.Day >= models.DaysPerWeek {
			return validationError("schedule day %d is out of range 0-6", e.Day)
		}
		if seen[e.Day] {
			return validationError("schedule day %d is duplicated", e.Day)
		}
		seen[e.Day] = true

		if !timeOfDay.MatchString(e.TimeStart) {
			return validationError("schedule day %d: time_start %q is not HH:MM", e.Day, e.TimeStart)
		}
		if !timeOfDay.MatchString(e.TimeEnd) {
			return validationError("schedule day %d: time_end %q is not HH:MM", e.Day, e.TimeEnd)
		}
		// zero-padded HH:MM compares correctly as a string
		if e.TimeStart >= e.TimeEnd {
			return validationError("schedule day %d: time_start must be before time_end", e.Day)
		}
	}
	return nil
}

// normalizeSchedule expands the caller entries to one row per day 0..6.
// Days the caller left out are closed.
func normalizeSchedule(spaceID int64, entries []ScheduleInput) []models.ScheduleEntry {
	byDay := make(map[int]ScheduleInput, len(entries))
	for _, e := range entries {
		byDay[e.Day] = e
	}

	rows := make([]models.ScheduleEntry, 0, models.DaysPerWeek)
	for day := 0; day < models.DaysPerWeek; day++ {
		row := models.ScheduleEntry{
			SpaceID:   spaceID,
			Day:       day,
			TimeStart: models.ClosedTimeStart,
			TimeEnd:   models.ClosedTimeEnd,
			Closed:    true,
		}
		if e, ok := byDay[day]; ok {
			row.TimeStart = e.TimeStart
			row.TimeEnd = e.TimeEnd
			row.Closed = false
		}
		rows = append(rows, row)
	}
	return rows
}
