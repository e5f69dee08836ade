package handler

import (
	"net/http"

	"bomserver/internal/apperr"
	"bomserver/internal/middleware"
	"bomserver/internal/model"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ManufacturerRequest is the payload for manufacturer creation and update
type ManufacturerRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Website       string `json:"website"`
	Notes         string `json:"notes"`
	IsPublic      bool   `json:"is_public"`
}

// ListManufacturers returns manufacturers visible to the caller
func ListManufacturers(c echo.Context) error {
	log := logger.FromContext(c)
	user, authenticated := middleware.CurrentUser(c)

	q := database.GetDB().Order("name")
	switch {
	case authenticated && user.IsAdmin():
	case authenticated:
		q = q.Where("is_public = ? OR created_by = ?", true, user.ID)
	default:
		q = q.Where("is_public = ?", true)
	}

	var manufacturers []model.Manufacturer
	if err := q.Find(&manufacturers).Error; err != nil {
		log.Error("Failed to retrieve manufacturers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve manufacturers"})
	}

	return c.JSON(http.StatusOK, manufacturers)
}

// GetManufacturer returns one manufacturer with its custom field values
func GetManufacturer(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "manufacturer not found"))
	}

	if !manufacturer.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && manufacturer.CreatedBy != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this manufacturer"))
		}
	}

	var values []model.ManufacturerCustomValue
	if err := database.GetDB().Where("manufacturer_id = ?", manufacturer.ID).Find(&values).Error; err != nil {
		log.Error("Failed to retrieve custom values", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve manufacturer"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"manufacturer":  manufacturer,
		"custom_values": values,
	})
}

// CreateManufacturer adds a manufacturer
func CreateManufacturer(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	var req ManufacturerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	manufacturer := model.Manufacturer{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Website:       req.Website,
		Notes:         req.Notes,
		IsPublic:      req.IsPublic,
		CreatedBy:     user.ID,
	}
	if err := database.GetDB().Create(&manufacturer).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a manufacturer with this name"))
	}

	log.Info("Manufacturer created",
		zap.Uint("manufacturer_id", manufacturer.ID),
		zap.String("name", manufacturer.Name))
	return c.JSON(http.StatusCreated, manufacturer)
}

// UpdateManufacturer updates a manufacturer owned by the caller
func UpdateManufacturer(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req ManufacturerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "manufacturer not found"))
	}
	if manufacturer.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can modify this manufacturer"))
	}

	manufacturer.Name = req.Name
	manufacturer.ContactPerson = req.ContactPerson
	manufacturer.Email = req.Email
	manufacturer.Phone = req.Phone
	manufacturer.Address = req.Address
	manufacturer.Website = req.Website
	manufacturer.Notes = req.Notes
	manufacturer.IsPublic = req.IsPublic

	if err := database.GetDB().Save(&manufacturer).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a manufacturer with this name"))
	}

	return c.JSON(http.StatusOK, manufacturer)
}

// DeleteManufacturer soft-deletes a manufacturer owned by the caller
func DeleteManufacturer(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "manufacturer not found"))
	}
	if manufacturer.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can delete this manufacturer"))
	}

	if err := database.GetDB().Delete(&manufacturer).Error; err != nil {
		log.Error("Failed to delete manufacturer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete manufacturer"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Manufacturer deleted successfully"})
}

// ReplaceManufacturerCustomFields replaces all custom field values of a
// manufacturer in one transaction
func ReplaceManufacturerCustomFields(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req CustomValuesRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var manufacturer model.Manufacturer
	if result := database.GetDB().First(&manufacturer, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "manufacturer not found"))
	}
	if manufacturer.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can modify this manufacturer"))
	}

	if err := replaceManufacturerValues(database.GetDB(), manufacturer.ID, req.Values); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Manufacturer custom fields replaced",
		zap.Uint("manufacturer_id", manufacturer.ID),
		zap.Int("count", len(req.Values)))
	return c.JSON(http.StatusOK, echo.Map{"message": "Custom fields updated successfully"})
}
