package model

import (
	"time"
)

// Category is a node in the category forest. Path is the materialized chain of
// ancestor ids, e.g. "/1/4/9/" for a node with id 9 under 4 under root 1.
//
// Soft deletion is explicit (IsDeleted/DeletedAt/DeletedBy) rather than
// gorm.DeletedAt: duplicate detection and orphan reporting need to query
// deleted rows, so the automatic scoping would get in the way.
type Category struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	Name        string     `json:"name" gorm:"type:varchar(100);index;not null"`
	ParentID    *uint      `json:"parent_id" gorm:"index"`
	Path        string     `json:"path" gorm:"type:varchar(512);index"`
	Description string     `json:"description" gorm:"type:text"`
	IsPublic    bool       `json:"is_public" gorm:"default:false"`
	CreatedBy   uint       `json:"created_by" gorm:"index;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	IsDeleted   bool       `json:"is_deleted" gorm:"index;default:false"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   *uint      `json:"deleted_by,omitempty"`
}

// IsRoot reports whether the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
