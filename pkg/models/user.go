package models

import (
	"time"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`
	FirstName  string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName   string    `gorm:"type:varchar(150)" json:"last_name"`
	DateJoined time.Time `gorm:"autoCreateTime" json:"date_joined"`
}

func (User) TableName() string {
	return "users"
}
