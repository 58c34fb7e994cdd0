package model

import "time"

// Department (departments)
type Department struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;unique" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName departments
func (Department) TableName() string { return "departments" }
