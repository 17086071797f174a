package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Address struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Name          string         `gorm:"size:100;not null" json:"name"` // label, e.g. "Home"
	Recipient     string         `gorm:"size:100;not null" json:"recipient"`
	Phone         string         `gorm:"size:30;not null" json:"phone"`
	ZipCode       string         `gorm:"size:10" json:"zip_code"`
	Address       string         `gorm:"type:text;not null" json:"address"`
	DetailAddress string         `gorm:"type:text" json:"detail_address"`
	IsDefault     bool           `gorm:"default:false" json:"is_default"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Address) TableName() string {
	return "addresses"
}

// Label renders the address as the single line snapshotted onto orders.
func (a *Address) Label() string {
	parts := []string{a.Recipient, a.Phone, a.Address}
	if a.DetailAddress != "" {
		parts = append(parts, a.DetailAddress)
	}
	label := strings.Join(parts, ", ")
	if a.ZipCode != "" {
		label = fmt.Sprintf("%s (%s)", label, a.ZipCode)
	}
	return label
}
