package model

import (
	"time"
)

// AppliesTo values for CustomField
const (
	CustomFieldManufacturer = "manufacturer"
	CustomFieldSupplier     = "supplier"
	CustomFieldCategory     = "category"
)

// CustomField defines a user-defined attribute that can be attached to an
// entity kind. Values live in the per-entity side tables below and are stored
// JSON-stringified so any data type round-trips.
type CustomField struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	FieldName string    `json:"field_name" gorm:"type:varchar(100);not null;uniqueIndex:idx_field_name_applies"`
	DataType  string    `json:"data_type" gorm:"type:varchar(30);not null"`
	AppliesTo string    `json:"applies_to" gorm:"type:varchar(30);not null;uniqueIndex:idx_field_name_applies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManufacturerCustomValue stores one custom field value for a manufacturer
type ManufacturerCustomValue struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	ManufacturerID uint      `json:"manufacturer_id" gorm:"not null;uniqueIndex:idx_manufacturer_field"`
	CustomFieldID  uint      `json:"custom_field_id" gorm:"not null;uniqueIndex:idx_manufacturer_field"`
	Value          string    `json:"value" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SupplierCustomValue stores one custom field value for a supplier
type SupplierCustomValue struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	SupplierID    uint      `json:"supplier_id" gorm:"not null;uniqueIndex:idx_supplier_field"`
	CustomFieldID uint      `json:"custom_field_id" gorm:"not null;uniqueIndex:idx_supplier_field"`
	Value         string    `json:"value" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CategoryCustomValue stores one custom field value for a category
type CategoryCustomValue struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	CategoryID    uint      `json:"category_id" gorm:"not null;uniqueIndex:idx_category_field"`
	CustomFieldID uint      `json:"custom_field_id" gorm:"not null;uniqueIndex:idx_category_field"`
	Value         string    `json:"value" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
