package models

// Sport is a named activity type that spaces can host
type Sport struct {
	ID   int64  `json:"id" db:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name,omitempty" db:"name" gorm:"not null"`
}
