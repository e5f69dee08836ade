package model

import (
	"time"

	"gorm.io/gorm"
)

// Part carries the stable identity of a part. All descriptive and engineering
// fields live on its versions; exactly one version is current at a time.
type Part struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	PartNumber string         `json:"part_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	CategoryID *uint          `json:"category_id" gorm:"index"`
	IsPublic   bool           `json:"is_public" gorm:"default:false"`
	CreatedBy  uint           `json:"created_by" gorm:"index;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Versions []PartVersion `json:"versions,omitempty" gorm:"foreignKey:PartID"`
}

// PartVersion holds the descriptive fields of a part at one revision
type PartVersion struct {
	ID              uint       `json:"id" gorm:"primarykey"`
	PartID          uint       `json:"part_id" gorm:"index;not null"`
	Version         int        `json:"version" gorm:"not null;default:1"`
	IsCurrent       bool       `json:"is_current" gorm:"index;default:false"`
	Name            string     `json:"name" gorm:"type:varchar(255)"`
	Description     string     `json:"description" gorm:"type:text"`
	FullDescription string     `json:"full_description" gorm:"type:text"`
	Notes           string     `json:"notes" gorm:"type:text"`
	Status          string     `json:"status" gorm:"type:varchar(30)"`
	Weight          *float64   `json:"weight"`
	WeightUnit      *string    `json:"weight_unit" gorm:"type:varchar(20)"`
	Tolerance       *float64   `json:"tolerance"`
	ToleranceUnit   *string    `json:"tolerance_unit" gorm:"type:varchar(20)"`
	Dimensions      JSONMap    `json:"dimensions" gorm:"type:text"`
	DimensionsUnit  *string    `json:"dimensions_unit" gorm:"type:varchar(20)"`
	TemperatureMin  *float64   `json:"temperature_min"`
	TemperatureMax  *float64   `json:"temperature_max"`
	TemperatureUnit *string    `json:"temperature_unit" gorm:"type:varchar(20)"`
	Properties      JSONMap    `json:"properties" gorm:"type:text"`
	CreatedBy       uint       `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
