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

// SupplierRequest is the payload for supplier creation and update
type SupplierRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PaymentTerms  string `json:"payment_terms"`
	Notes         string `json:"notes"`
	IsPublic      bool   `json:"is_public"`
}

// ListSuppliers returns suppliers visible to the caller
func ListSuppliers(c echo.Context) error {
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

	var suppliers []model.Supplier
	if err := q.Find(&suppliers).Error; err != nil {
		log.Error("Failed to retrieve suppliers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve suppliers"})
	}

	return c.JSON(http.StatusOK, suppliers)
}

// GetSupplier returns one supplier with its custom field values
func GetSupplier(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "supplier not found"))
	}

	if !supplier.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && supplier.CreatedBy != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this supplier"))
		}
	}

	var values []model.SupplierCustomValue
	if err := database.GetDB().Where("supplier_id = ?", supplier.ID).Find(&values).Error; err != nil {
		log.Error("Failed to retrieve custom values", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve supplier"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"supplier":      supplier,
		"custom_values": values,
	})
}

// CreateSupplier adds a supplier
func CreateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	supplier := model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		IsPublic:      req.IsPublic,
		CreatedBy:     user.ID,
	}
	if err := database.GetDB().Create(&supplier).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a supplier with this name"))
	}

	log.Info("Supplier created",
		zap.Uint("supplier_id", supplier.ID),
		zap.String("name", supplier.Name))
	return c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier updates a supplier owned by the caller
func UpdateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req SupplierRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "supplier not found"))
	}
	if supplier.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can modify this supplier"))
	}

	supplier.Name = req.Name
	supplier.ContactPerson = req.ContactPerson
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.City = req.City
	supplier.Country = req.Country
	supplier.PaymentTerms = req.PaymentTerms
	supplier.Notes = req.Notes
	supplier.IsPublic = req.IsPublic

	if err := database.GetDB().Save(&supplier).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a supplier with this name"))
	}

	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier soft-deletes a supplier owned by the caller
func DeleteSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "supplier not found"))
	}
	if supplier.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can delete this supplier"))
	}

	if err := database.GetDB().Delete(&supplier).Error; err != nil {
		log.Error("Failed to delete supplier", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete supplier"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Supplier deleted successfully"})
}

// ReplaceSupplierCustomFields replaces all custom field values of a supplier
// in one transaction
func ReplaceSupplierCustomFields(c echo.Context) error {
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

	var supplier model.Supplier
	if result := database.GetDB().First(&supplier, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "supplier not found"))
	}
	if supplier.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can modify this supplier"))
	}

	if err := replaceSupplierValues(database.GetDB(), supplier.ID, req.Values); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Supplier custom fields replaced",
		zap.Uint("supplier_id", supplier.ID),
		zap.Int("count", len(req.Values)))
	return c.JSON(http.StatusOK, echo.Map{"message": "Custom fields updated successfully"})
}
