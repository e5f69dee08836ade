package model

import (
	"time"

	"gorm.io/gorm"
)

// Manufacturer represents a part manufacturer; (created_by, name) is unique
type Manufacturer struct {
	ID            uint           `json:"id" gorm:"primarykey"`
	Name          string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_manufacturer_creator_name"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Phone         string         `json:"phone" gorm:"type:varchar(20)"`
	Address       string         `json:"address" gorm:"type:text"`
	Website       string         `json:"website" gorm:"type:varchar(255)"`
	Notes         string         `json:"notes" gorm:"type:text"`
	IsPublic      bool           `json:"is_public" gorm:"default:false"`
	CreatedBy     uint           `json:"created_by" gorm:"not null;uniqueIndex:idx_manufacturer_creator_name"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
