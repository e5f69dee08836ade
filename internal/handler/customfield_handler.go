package handler

import (
	"encoding/json"
	"net/http"

	"bomserver/internal/apperr"
	"bomserver/internal/model"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomFieldRequest defines a new custom field
type CustomFieldRequest struct {
	FieldName string `json:"field_name" validate:"required"`
	DataType  string `json:"data_type" validate:"required,oneof=string number boolean json"`
	AppliesTo string `json:"applies_to" validate:"required,oneof=manufacturer supplier category"`
}

// CustomValuesRequest replaces the custom field values of one entity
type CustomValuesRequest struct {
	Values map[string]interface{} `json:"values"`
}

// ListCustomFields returns custom field definitions, optionally filtered by
// ?applies_to=
func ListCustomFields(c echo.Context) error {
	log := logger.FromContext(c)

	q := database.GetDB().Order("applies_to, field_name")
	if appliesTo := c.QueryParam("applies_to"); appliesTo != "" {
		q = q.Where("applies_to = ?", appliesTo)
	}

	var fields []model.CustomField
	if err := q.Find(&fields).Error; err != nil {
		log.Error("Failed to retrieve custom fields", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve custom fields"})
	}

	return c.JSON(http.StatusOK, fields)
}

// CreateCustomField defines a new custom field (admin only)
func CreateCustomField(c echo.Context) error {
	log := logger.FromContext(c)

	var req CustomFieldRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	field := model.CustomField{
		FieldName: req.FieldName,
		DataType:  req.DataType,
		AppliesTo: req.AppliesTo,
	}
	if err := database.GetDB().Create(&field).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "a custom field with this name already exists"))
	}

	log.Info("Custom field created",
		zap.String("field_name", field.FieldName),
		zap.String("applies_to", field.AppliesTo))
	return c.JSON(http.StatusCreated, field)
}

// DeleteCustomField removes a custom field definition and its values (admin only)
func DeleteCustomField(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var field model.CustomField
	if result := database.GetDB().First(&field, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "custom field not found"))
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		switch field.AppliesTo {
		case model.CustomFieldManufacturer:
			if err := tx.Where("custom_field_id = ?", field.ID).Delete(&model.ManufacturerCustomValue{}).Error; err != nil {
				return err
			}
		case model.CustomFieldSupplier:
			if err := tx.Where("custom_field_id = ?", field.ID).Delete(&model.SupplierCustomValue{}).Error; err != nil {
				return err
			}
		case model.CustomFieldCategory:
			if err := tx.Where("custom_field_id = ?", field.ID).Delete(&model.CategoryCustomValue{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&field).Error
	})
	if err != nil {
		log.Error("Failed to delete custom field", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete custom field"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Custom field deleted successfully"})
}

// customValue is a resolved (field id, value) pair ready for insertion
type customValue struct {
	FieldID uint
	Value   string
}

// resolveCustomValues maps field names to definitions of the given kind and
// JSON-stringifies the values. Unknown field names are a validation error.
func resolveCustomValues(tx *gorm.DB, appliesTo string, values map[string]interface{}) ([]customValue, error) {
	var fields []model.CustomField
	if err := tx.Where("applies_to = ?", appliesTo).Find(&fields).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load custom field definitions", err)
	}

	byName := make(map[string]uint, len(fields))
	for _, f := range fields {
		byName[f.FieldName] = f.ID
	}

	resolved := make([]customValue, 0, len(values))
	for name, value := range values {
		fieldID, ok := byName[name]
		if !ok {
			return nil, apperr.New(apperr.ValidationError, "unknown custom field: "+name)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, apperr.New(apperr.ValidationError, "unserializable value for custom field: "+name)
		}
		resolved = append(resolved, customValue{FieldID: fieldID, Value: string(encoded)})
	}
	return resolved, nil
}

// replaceManufacturerValues swaps all custom values of a manufacturer inside
// one transaction, so concurrent readers never see the half-applied state
// between the delete and the reinsert
func replaceManufacturerValues(db *gorm.DB, manufacturerID uint, values map[string]interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		resolved, err := resolveCustomValues(tx, model.CustomFieldManufacturer, values)
		if err != nil {
			return err
		}
		if err := tx.Where("manufacturer_id = ?", manufacturerID).
			Delete(&model.ManufacturerCustomValue{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to clear custom values", err)
		}
		for _, v := range resolved {
			row := model.ManufacturerCustomValue{
				ManufacturerID: manufacturerID,
				CustomFieldID:  v.FieldID,
				Value:          v.Value,
			}
			if err := tx.Create(&row).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "failed to store custom value", err)
			}
		}
		return nil
	})
}

// replaceSupplierValues swaps all custom values of a supplier inside one
// transaction
func replaceSupplierValues(db *gorm.DB, supplierID uint, values map[string]interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		resolved, err := resolveCustomValues(tx, model.CustomFieldSupplier, values)
		if err != nil {
			return err
		}
		if err := tx.Where("supplier_id = ?", supplierID).
			Delete(&model.SupplierCustomValue{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to clear custom values", err)
		}
		for _, v := range resolved {
			row := model.SupplierCustomValue{
				SupplierID:    supplierID,
				CustomFieldID: v.FieldID,
				Value:         v.Value,
			}
			if err := tx.Create(&row).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "failed to store custom value", err)
			}
		}
		return nil
	})
}
