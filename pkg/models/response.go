package models

// SpaceResponse is the one projection of a space returned by every endpoint.
// Optional parts are omitted when absent.
type SpaceResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	State       SpaceState      `json:"state"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Capacity    int             `json:"capacity"`
	ImageKey    string          `json:"image_key,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Sports      []Sport         `json:"sports"`
	Schedule    []ScheduleEntry `json:"schedule"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}
