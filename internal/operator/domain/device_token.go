package domain

import (
	"errors"
	"time"
)

// DeviceToken is a Firebase Cloud Messaging token of an operator device that is
// told about every stored draft.
type DeviceToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	DeviceInfo string    `json:"device_info"`                   // Browser/device metadata
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string { return "operator_device_tokens" }

var ErrEmptyToken = errors.New("device token is required")
