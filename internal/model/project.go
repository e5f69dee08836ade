package model

import (
	"time"

	"gorm.io/gorm"
)

// Project is owned by exactly one user; (owner_id, name) is unique
type Project struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_project_owner_name"`
	OwnerID     uint           `json:"owner_id" gorm:"not null;uniqueIndex:idx_project_owner_name"`
	Description string         `json:"description" gorm:"type:text"`
	IsPublic    bool           `json:"is_public" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
