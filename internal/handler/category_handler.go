package handler

import (
	"net/http"
	"strconv"

	"bomserver/internal/apperr"
	"bomserver/internal/hierarchy"
	"bomserver/internal/middleware"
	"bomserver/internal/model"
	"bomserver/pkg/database"
	"bomserver/pkg/logger"
	"bomserver/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CategoryRequest is the payload for category creation and update. ParentID is
// deliberately untyped: clients have sent numbers, numeric strings and empty
// strings, and an empty string must mean "no parent", never a distinct parent.
type CategoryRequest struct {
	Name        string      `json:"name"`
	ParentID    interface{} `json:"parent_id"`
	Description string      `json:"description"`
	IsPublic    bool        `json:"is_public"`
}

// ReparentRequest is the payload for moving a category
type ReparentRequest struct {
	ParentID interface{} `json:"parent_id"`
}

// ResolveDuplicatesRequest selects the repair strategy
type ResolveDuplicatesRequest struct {
	Strategy string `json:"strategy"`
}

// parseParentID normalizes the loosely-typed parent_id field to *uint.
// nil and "" mean root; numbers and numeric strings are accepted.
func parseParentID(v interface{}) (*uint, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case string:
		if tv == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseUint(tv, 10, 32)
		if err != nil {
			return nil, apperr.New(apperr.ValidationError, "invalid parent_id")
		}
		id := uint(parsed)
		return &id, nil
	case float64:
		if tv < 0 || tv != float64(uint(tv)) {
			return nil, apperr.New(apperr.ValidationError, "invalid parent_id")
		}
		id := uint(tv)
		return &id, nil
	default:
		return nil, apperr.New(apperr.ValidationError, "invalid parent_id")
	}
}

// ListCategories returns the category forest ordered by path. Categories are
// visible when public or owned by the caller; admins see everything.
// ?include_deleted=true additionally returns soft-deleted rows (admin only).
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	user, authenticated := middleware.CurrentUser(c)

	includeDeleted := c.QueryParam("include_deleted") == "true" &&
		authenticated && user.IsAdmin()

	mgr := hierarchy.NewManager(database.GetDB())
	cats, err := mgr.List(includeDeleted)
	if err != nil {
		return respondError(c, log, err)
	}

	visible := make([]model.Category, 0, len(cats))
	for _, cat := range cats {
		if cat.IsPublic {
			visible = append(visible, cat)
			continue
		}
		if authenticated && (user.IsAdmin() || cat.CreatedBy == user.ID) {
			visible = append(visible, cat)
		}
	}

	return c.JSON(http.StatusOK, visible)
}

// GetCategory returns one category
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	mgr := hierarchy.NewManager(database.GetDB())
	cat, err := mgr.Get(id)
	if err != nil {
		return respondError(c, log, err)
	}

	if !cat.IsPublic {
		user, ok := middleware.CurrentUser(c)
		if !ok || (!user.IsAdmin() && cat.CreatedBy != user.ID) {
			return respondError(c, log, apperr.New(apperr.Forbidden, "you do not have access to this category"))
		}
	}

	return c.JSON(http.StatusOK, cat)
}

// CreateCategory adds a category, enforcing the sibling and root name
// uniqueness invariants
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	parentID, err := parseParentID(req.ParentID)
	if err != nil {
		return respondError(c, log, err)
	}

	mgr := hierarchy.NewManager(database.GetDB())
	cat, err := mgr.Create(hierarchy.CreateInput{
		Name:        req.Name,
		ParentID:    parentID,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		CreatedBy:   user.ID,
	})
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordCategoryOperation("create")
	log.Info("Category created",
		zap.Uint("category_id", cat.ID),
		zap.String("name", cat.Name))
	return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory renames a category or changes its description/visibility.
// Renames re-validate name uniqueness against the existing parent.
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	// Bind into a raw map first so "field absent" and "field empty" stay
	// distinguishable for the patch.
	var raw map[string]interface{}
	if err := c.Bind(&raw); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	var in hierarchy.UpdateInput
	if v, ok := raw["name"].(string); ok {
		in.Name = &v
	}
	if v, ok := raw["description"].(string); ok {
		in.Description = &v
	}
	if v, ok := raw["is_public"].(bool); ok {
		in.IsPublic = &v
	}

	mgr := hierarchy.NewManager(database.GetDB())
	cat, err := mgr.Update(id, in, hierarchy.Actor{ID: user.ID, Admin: user.IsAdmin()})
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordCategoryOperation("update")
	return c.JSON(http.StatusOK, cat)
}

// ReparentCategory moves a category under a new parent. Moves that would
// create a cycle are rejected.
func ReparentCategory(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	var req ReparentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	parentID, err := parseParentID(req.ParentID)
	if err != nil {
		return respondError(c, log, err)
	}

	mgr := hierarchy.NewManager(database.GetDB())
	cat, err := mgr.Reparent(id, parentID, hierarchy.Actor{ID: user.ID, Admin: user.IsAdmin()})
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordCategoryOperation("reparent")
	log.Info("Category moved",
		zap.Uint("category_id", cat.ID),
		zap.String("path", cat.Path))
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory soft-deletes a category. Children are not cascaded; they
// surface through the orphans report.
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	user, _ := middleware.CurrentUser(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, log, err)
	}

	mgr := hierarchy.NewManager(database.GetDB())
	if err := mgr.SoftDelete(id, hierarchy.Actor{ID: user.ID, Admin: user.IsAdmin()}); err != nil {
		return respondError(c, log, err)
	}

	prometheus.RecordCategoryOperation("delete")
	log.Info("Category deleted", zap.Uint("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}

// ListDuplicateRoots reports groups of non-deleted root categories sharing a
// name. The report is data, not an error; the caller decides whether to
// auto-resolve or involve a human.
func ListDuplicateRoots(c echo.Context) error {
	log := logger.FromContext(c)

	mgr := hierarchy.NewManager(database.GetDB())
	groups, err := mgr.DetectDuplicateRoots()
	if err != nil {
		return respondError(c, log, err)
	}
	if groups == nil {
		groups = []hierarchy.DuplicateGroup{}
	}

	return c.JSON(http.StatusOK, echo.Map{"duplicates": groups})
}

// ResolveDuplicateRoots repairs duplicate root names with the requested
// strategy (keep-newest when omitted)
func ResolveDuplicateRoots(c echo.Context) error {
	log := logger.FromContext(c)

	var req ResolveDuplicatesRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	mgr := hierarchy.NewManager(database.GetDB())
	renamed, err := mgr.ResolveDuplicateRoots(req.Strategy)
	if err != nil {
		return respondError(c, log, err)
	}

	prometheus.DuplicateRootsResolvedCounter.Add(float64(renamed))
	log.Info("Duplicate roots resolved", zap.Int("renamed", renamed))
	return c.JSON(http.StatusOK, echo.Map{"renamed": renamed})
}

// ListOrphanCategories reports non-deleted categories whose parent has been
// soft-deleted
func ListOrphanCategories(c echo.Context) error {
	log := logger.FromContext(c)

	mgr := hierarchy.NewManager(database.GetDB())
	orphans, err := mgr.Orphans()
	if err != nil {
		return respondError(c, log, err)
	}
	if orphans == nil {
		orphans = []model.Category{}
	}

	return c.JSON(http.StatusOK, echo.Map{"orphans": orphans})
}
