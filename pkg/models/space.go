package models

// SpaceState is the lifecycle state of a space
type SpaceState string

const (
	SpaceActive   SpaceState = "Active"
	SpaceInactive SpaceState = "Inactive"
)

// Valid reports whether s is one of the known states.
func (s SpaceState) Valid() bool {
	return s == SpaceActive || s == SpaceInactive
}

// Space is a bookable sports venue (row of the spaces table)
type Space struct {
	ID          int64      `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	Name        string     `json:"name" db:"name" gorm:"not null"`
	State       SpaceState `json:"state" db:"state" gorm:"not null"`
	Location    string     `json:"location" db:"location"`
	Description string     `json:"description" db:"description"`
	Capacity    int        `json:"capacity" db:"capacity"`
	ImageKey    string     `json:"image_key,omitempty" db:"image_key"`
}

// SpacePatch carries the fields of a partial space update.
// A nil field is left untouched.
type SpacePatch struct {
	Name        *string     `json:"name,omitempty"`
	State       *SpaceState `json:"state,omitempty"`
	Location    *string     `json:"location,omitempty"`
	Description *string     `json:"description,omitempty"`
	Capacity    *int        `json:"capacity,omitempty"`
	ImageKey    *string     `json:"image_key,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SpacePatch) IsEmpty() bool {
	return p.Name == nil && p.State == nil && p.Location == nil &&
		p.Description == nil && p.Capacity == nil && p.ImageKey == nil
}

// Columns returns the patch as a column -> value map with only the present fields.
func (p SpacePatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.State != nil {
		cols["state"] = string(*p.State)
	}
	if p.Location != nil {
		cols["location"] = *p.Location
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Capacity != nil {
		cols["capacity"] = *p.Capacity
	}
	if p.ImageKey != nil {
		cols["image_key"] = *p.ImageKey
	}
	return cols
}

// RevertOf builds the patch that puts back the values of prev for every field present in p.
func (p SpacePatch) RevertOf(prev *Space) SpacePatch {
	var out SpacePatch
	if p.Name != nil {
		out.Name = &prev.Name
	}
	if p.State != nil {
		out.State = &prev.State
	}
	if p.Location != nil {
		out.Location = &prev.Location
	}
	if p.Description != nil {
		out.Description = &prev.Description
	}
	if p.Capacity != nil {
		out.Capacity = &prev.Capacity
	}
	if p.ImageKey != nil {
		out.ImageKey = &prev.ImageKey
	}
	return out
}

// SpaceSport associates a space with a sport
type SpaceSport struct {
	SpaceID int64 `json:"space_id" db:"space_id" gorm:"primaryKey;autoIncrement:false"`
	SportID int64 `json:"sport_id" db:"sport_id" gorm:"primaryKey;autoIncrement:false"`
}

// SpaceDetail is a space joined with its sports and schedule rows
type SpaceDetail struct {
	Space
	Sports   []Sport
	Schedule []ScheduleEntry
}
