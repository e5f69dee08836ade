package handler

import (
	"encoding/json"
	"net/http"

	"bomserver/internal/apperr"
	"bomserver/internal/middleware"
	"bomserver/internal/model"
	"bomserver/internal/normalize"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"
	"bomserver/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PartRequest is the canonical part payload after normalization
type PartRequest struct {
	PartNumber      string                 `json:"part_number" validate:"required"`
	CategoryID      *uint                  `json:"category_id"`
	IsPublic        bool                   `json:"is_public"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	FullDescription string                 `json:"full_description"`
	Notes           string                 `json:"notes"`
	Status          string                 `json:"status"`
	Weight          *float64               `json:"weight"`
	WeightUnit      *string                `json:"weight_unit"`
	Tolerance       *float64               `json:"tolerance"`
	ToleranceUnit   *string                `json:"tolerance_unit"`
	Dimensions      map[string]interface{} `json:"dimensions"`
	DimensionsUnit  *string                `json:"dimensions_unit"`
	TemperatureMin  *float64               `json:"temperature_min"`
	TemperatureMax  *float64               `json:"temperature_max"`
	TemperatureUnit *string                `json:"temperature_unit"`
	Properties      map[string]interface{} `json:"properties"`
}

// decodePartRequest binds the raw payload, runs form normalization and decodes
// the result into the typed request
func decodePartRequest(c echo.Context) (*PartRequest, error) {
	var raw map[string]interface{}
	if err := c.Bind(&raw); err != nil {
		return nil, apperr.Wrap(apperr.ValidationError, "invalid request data", err)
	}

	normalized := normalize.Normalize(raw)

	buf, err := json.Marshal(normalized)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to encode normalized payload", err)
	}
	var req PartRequest
	if err := json.Unmarshal(buf, &req); err != nil {
		return nil, apperr.Wrap(apperr.ValidationError, "invalid request data", err)
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// versionFromRequest builds a part version row from the normalized payload
func versionFromRequest(req *PartRequest, partID uint, version int, createdBy uint) model.PartVersion {
	return model.PartVersion{
		PartID:          partID,
		Version:         version,
		IsCurrent:       true,
		Name:            req.Name,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Notes:           req.Notes,
		Status:          req.Status,
		Weight:          req.Weight,
		WeightUnit:      req.WeightUnit,
		Tolerance:       req.Tolerance,
		ToleranceUnit:   req.ToleranceUnit,
		Dimensions:      model.JSONMap(req.Dimensions),
		DimensionsUnit:  req.DimensionsUnit,
		TemperatureMin:  req.TemperatureMin,
		TemperatureMax:  req.TemperatureMax,
		TemperatureUnit: req.TemperatureUnit,
		Properties:      model.JSONMap(req.Properties),
		CreatedBy:       createdBy,
	}
}

// checkCategoryRef verifies that a referenced category exists and is not deleted
func checkCategoryRef(tx *gorm.DB, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&model.Category{}).
		Where("id = ? AND is_deleted = ?", *categoryID, false).
		Count(&count).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to check category", err)
	}
	if count == 0 {
		return apperr.New(apperr.ConstraintViolation, "referenced category does not exist")
	}
	return nil
}

// ListParts returns parts visible to the caller with their current version
func ListParts(c echo.Context) error {
	log := logger.FromContext(c)
	user, authenticated := middleware.CurrentUser(c)

	q := database.GetDB().Preload("Versions", "is_current = ?", true)
	switch {
	case authenticated && user.IsAdmin():
		// admins see everything
	case authenticated:
		q = q.Where("is_public = ? OR created_by = ?", true, user.ID)
	default:
		q = q.Where("is_public = ?", true)
	}

	var parts []model.Part
	if err := q.Find(&parts).Error; err != nil {
		log.Error("Failed to retrieve parts", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve parts"})
	}

	return c.JSON(http.StatusOK, parts)
}

// GetPart returns one part with its current version
func GetPart(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var part model.Part
	result := database.GetDB().Preload("Versions", "is_current = ?", true).First(&part, id)
	if result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "part not found"))
	}

	if !part.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && part.CreatedBy != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this part"))
		}
	}

	return c.JSON(http.StatusOK, part)
}

// CreatePart creates a part and its first version in one transaction
func CreatePart(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	req, err := decodePartRequest(c)
	if err != nil {
		return respondError(c, log, err)
	}

	part := model.Part{
		PartNumber: req.PartNumber,
		CategoryID: req.CategoryID,
		IsPublic:   req.IsPublic,
		CreatedBy:  user.ID,
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := checkCategoryRef(tx, req.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&part).Error; err != nil {
			return translateDuplicate(err, "a part with this part number already exists")
		}
		version := versionFromRequest(req, part.ID, 1, user.ID)
		if err := tx.Create(&version).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to create part version", err)
		}
		part.Versions = []model.PartVersion{version}
		return nil
	})
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordPartOperation("create")
	log.Info("Part created",
		zap.Uint("part_id", part.ID),
		zap.String("part_number", part.PartNumber))
	return c.JSON(http.StatusCreated, part)
}

// UpdatePart creates a new version and flips the current marker in one
// transaction, so readers never see zero or two current versions
func UpdatePart(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	req, err := decodePartRequest(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var part model.Part
	if result := database.GetDB().First(&part, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "part not found"))
	}
	if part.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can modify this part"))
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := checkCategoryRef(tx, req.CategoryID); err != nil {
			return err
		}

		part.PartNumber = req.PartNumber
		part.CategoryID = req.CategoryID
		part.IsPublic = req.IsPublic
		if err := tx.Save(&part).Error; err != nil {
			return translateDuplicate(err, "a part with this part number already exists")
		}

		var latest int
		row := tx.Model(&model.PartVersion{}).
			Where("part_id = ?", part.ID).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&latest); err != nil {
			return apperr.Wrap(apperr.Internal, "failed to read latest version", err)
		}

		if err := tx.Model(&model.PartVersion{}).
			Where("part_id = ? AND is_current = ?", part.ID, true).
			Update("is_current", false).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to retire current version", err)
		}

		version := versionFromRequest(req, part.ID, latest+1, user.ID)
		if err := tx.Create(&version).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to create part version", err)
		}
		part.Versions = []model.PartVersion{version}
		return nil
	})
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordPartOperation("update")
	log.Info("Part updated",
		zap.Uint("part_id", part.ID),
		zap.Int("version", part.Versions[0].Version))
	return c.JSON(http.StatusOK, part)
}

// DeletePart soft-deletes a part
func DeletePart(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var part model.Part
	if result := database.GetDB().First(&part, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "part not found"))
	}
	if part.CreatedBy != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the creator can delete this part"))
	}

	if err := database.GetDB().Delete(&part).Error; err != nil {
		log.Error("Failed to delete part", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete part"})
	}

	prometheus.RecordPartOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "Part deleted successfully"})
}

// ListPartVersions returns all versions of a part, oldest first
func ListPartVersions(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var part model.Part
	if result := database.GetDB().First(&part, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "part not found"))
	}

	if !part.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && part.CreatedBy != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this part"))
		}
	}

	var versions []model.PartVersion
	if err := database.GetDB().
		Where("part_id = ?", part.ID).
		Order("version").
		Find(&versions).Error; err != nil {
		log.Error("Failed to retrieve part versions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve versions"})
	}

	return c.JSON(http.StatusOK, versions)
}
