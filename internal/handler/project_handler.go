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

// ProjectRequest is the payload for project creation and update
type ProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// ListProjects returns the caller's own projects plus public ones
func ListProjects(c echo.Context) error {
	log := logger.FromContext(c)
	user, authenticated := middleware.CurrentUser(c)

	q := database.GetDB().Order("name")
	switch {
	case authenticated && user.IsAdmin():
	case authenticated:
		q = q.Where("is_public = ? OR owner_id = ?", true, user.ID)
	default:
		q = q.Where("is_public = ?", true)
	}

	var projects []model.Project
	if err := q.Find(&projects).Error; err != nil {
		log.Error("Failed to retrieve projects", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve projects"})
	}

	return c.JSON(http.StatusOK, projects)
}

// GetProject returns one project
func GetProject(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var project model.Project
	if result := database.GetDB().First(&project, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "project not found"))
	}

	if !project.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && project.OwnerID != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this project"))
		}
	}

	return c.JSON(http.StatusOK, project)
}

// CreateProject adds a project owned by the caller. The (owner, name) pair is
// unique; the duplicate-key error maps to a conflict.
func CreateProject(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	project := model.Project{
		Name:        req.Name,
		OwnerID:     user.ID,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := database.GetDB().Create(&project).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a project with this name"))
	}

	log.Info("Project created",
		zap.Uint("project_id", project.ID),
		zap.String("name", project.Name))
	return c.JSON(http.StatusCreated, project)
}

// UpdateProject updates a project owned by the caller
func UpdateProject(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, log, err)
	}

	var project model.Project
	if result := database.GetDB().First(&project, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "project not found"))
	}
	if project.OwnerID != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the owner can modify this project"))
	}

	project.Name = req.Name
	project.Description = req.Description
	project.IsPublic = req.IsPublic

	if err := database.GetDB().Save(&project).Error; err != nil {
		return respondError(c, log, translateDuplicate(err, "you already have a project with this name"))
	}

	return c.JSON(http.StatusOK, project)
}

// DeleteProject soft-deletes a project owned by the caller
func DeleteProject(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var project model.Project
	if result := database.GetDB().First(&project, id); result.Error != nil {
		return respondError(c, log, apperr.New(apperr.NotFound, "project not found"))
	}
	if project.OwnerID != user.ID && !user.IsAdmin() {
		return respondError(c, log, apperr.New(apperr.Forbidden, "only the owner can delete this project"))
	}

	if err := database.GetDB().Delete(&project).Error; err != nil {
		log.Error("Failed to delete project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete project"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Project deleted successfully"})
}
