package models

import "time"

type User struct {
	Username     string `gorm:"primaryKey;size:64"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:64;not null"`
	LastName     string `gorm:"size:64;not null"`
	Phone        string `gorm:"size:32"`
	JoinedAt     time.Time
	LastLoginAt  *time.Time
}

type Message struct {
	ID           uint   `gorm:"primaryKey"`
	FromUsername string `gorm:"index:idx_msg_from;size:64;not null"`
	ToUsername   string `gorm:"index:idx_msg_to;size:64;not null"`
	Body         string `gorm:"type:text;not null"`
	SentAt       time.Time
	ReadAt       *time.Time
}
