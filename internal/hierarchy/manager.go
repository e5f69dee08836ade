package hierarchy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bomserver/internal/apperr"
	"bomserver/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StrategyKeepNewest retains the most recently created member of a duplicate
// group and renames the rest.
const StrategyKeepNewest = "keep-newest"

// Actor identifies the user performing a mutation
type Actor struct {
	ID    uint
	Admin bool
}

// Manager maintains the category forest: name uniqueness per sibling group and
// per root level, materialized paths, soft deletion and duplicate repair.
type Manager struct {
	db *gorm.DB
}

// NewManager creates a hierarchy manager on the given database
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// CreateInput holds the fields for a new category. A nil ParentID creates a
// root; empty-string parent ids must be normalized to nil before this point.
type CreateInput struct {
	Name        string
	ParentID    *uint
	Description string
	IsPublic    bool
	CreatedBy   uint
}

// UpdateInput lists only the fields a caller wants to change
type UpdateInput struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// DuplicateMember is one row of a duplicate root group
type DuplicateMember struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateGroup is a set of non-deleted roots sharing a name
type DuplicateGroup struct {
	Name    string            `json:"name"`
	Members []DuplicateMember `json:"members"`
}

// Create inserts a category, enforcing name uniqueness among non-deleted
// siblings (or roots when ParentID is nil) and computing the materialized path.
func (m *Manager) Create(in CreateInput) (*model.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.New(apperr.ValidationError, "category name is required")
	}

	cat := &model.Category{
		Name:        in.Name,
		ParentID:    in.ParentID,
		Description: in.Description,
		IsPublic:    in.IsPublic,
		CreatedBy:   in.CreatedBy,
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		parentPath := "/"
		if !cat.IsRoot() {
			parent, err := loadActive(tx, *cat.ParentID)
			if err != nil {
				return err
			}
			parentPath = parent.Path
		}

		if err := checkNameFree(tx, in.Name, in.ParentID, 0); err != nil {
			return err
		}

		if err := tx.Create(cat).Error; err != nil {
			return translateDBError(err, "category already exists")
		}

		cat.Path = fmt.Sprintf("%s%d/", parentPath, cat.ID)
		return tx.Model(cat).Update("path", cat.Path).Error
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// Get returns a non-deleted category by id
func (m *Manager) Get(id uint) (*model.Category, error) {
	return loadActive(m.db, id)
}

// List returns categories ordered by path. Deleted rows are excluded unless
// includeDeleted is set.
func (m *Manager) List(includeDeleted bool) ([]model.Category, error) {
	var cats []model.Category
	q := m.db.Order("path")
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.Find(&cats).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list categories", err)
	}
	return cats, nil
}

// Update applies the provided fields. A name change re-validates sibling (or
// root) uniqueness against the category's existing parent. Only the creator or
// an admin may update.
func (m *Manager) Update(id uint, in UpdateInput, actor Actor) (*model.Category, error) {
	var cat *model.Category
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		cat, err = loadActive(tx, id)
		if err != nil {
			return err
		}
		if cat.CreatedBy != actor.ID && !actor.Admin {
			return apperr.New(apperr.Forbidden, "only the creator can modify this category")
		}

		if in.Name != nil && *in.Name != cat.Name {
			if strings.TrimSpace(*in.Name) == "" {
				return apperr.New(apperr.ValidationError, "category name is required")
			}
			if err := checkNameFree(tx, *in.Name, cat.ParentID, cat.ID); err != nil {
				return err
			}
			cat.Name = *in.Name
		}
		if in.Description != nil {
			cat.Description = *in.Description
		}
		if in.IsPublic != nil {
			cat.IsPublic = *in.IsPublic
		}

		if err := tx.Save(cat).Error; err != nil {
			return translateDBError(err, "category already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// Reparent moves a category under a new parent (nil makes it a root). Moves
// under the category's own descendant are rejected and leave the tree
// unchanged. Paths of the node and all its descendants are recomputed in one
// transaction.
func (m *Manager) Reparent(id uint, newParentID *uint, actor Actor) (*model.Category, error) {
	var cat *model.Category
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		cat, err = loadActive(tx, id)
		if err != nil {
			return err
		}
		if cat.CreatedBy != actor.ID && !actor.Admin {
			return apperr.New(apperr.Forbidden, "only the creator can move this category")
		}

		parentPath := "/"
		if newParentID != nil {
			if *newParentID == id {
				return apperr.New(apperr.ConstraintViolation, "category cannot be its own parent")
			}
			parent, err := loadActive(tx, *newParentID)
			if err != nil {
				return err
			}
			if strings.HasPrefix(parent.Path, cat.Path) {
				return apperr.New(apperr.ConstraintViolation, "category cannot be moved under its own descendant")
			}
			parentPath = parent.Path
		}

		if err := checkNameFree(tx, cat.Name, newParentID, cat.ID); err != nil {
			return err
		}

		oldPath := cat.Path
		newPath := fmt.Sprintf("%s%d/", parentPath, cat.ID)

		cat.ParentID = newParentID
		cat.Path = newPath
		if err := tx.Save(cat).Error; err != nil {
			return translateDBError(err, "category already exists")
		}

		// Rewrite descendant paths. Descendants share the old path prefix.
		var descendants []model.Category
		if err := tx.Where("path LIKE ? AND id != ?", oldPath+"%", cat.ID).Find(&descendants).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to load descendants", err)
		}
		for i := range descendants {
			rewritten := newPath + strings.TrimPrefix(descendants[i].Path, oldPath)
			if err := tx.Model(&descendants[i]).Update("path", rewritten).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "failed to rewrite descendant path", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// SoftDelete marks a category deleted without touching its children. Children
// of a deleted parent stay linked and are reported by Orphans.
func (m *Manager) SoftDelete(id uint, actor Actor) error {
	cat, err := loadActive(m.db, id)
	if err != nil {
		return err
	}
	if cat.CreatedBy != actor.ID && !actor.Admin {
		return apperr.New(apperr.Forbidden, "only the creator can delete this category")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": actor.ID,
	}
	if err := m.db.Model(cat).Updates(updates).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete category", err)
	}
	return nil
}

// Orphans returns non-deleted categories whose parent has been soft-deleted.
// They stay hidden-but-linked; surfacing them is the repair entry point.
func (m *Manager) Orphans() ([]model.Category, error) {
	var orphans []model.Category
	err := m.db.
		Where("is_deleted = ? AND parent_id IN (?)",
			false,
			m.db.Model(&model.Category{}).Select("id").Where("is_deleted = ?", true),
		).
		Order("path").
		Find(&orphans).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query orphans", err)
	}
	return orphans, nil
}

// DetectDuplicateRoots groups non-deleted roots by name and returns the groups
// with more than one member. Duplicates are reported as data, not as an error.
func (m *Manager) DetectDuplicateRoots() ([]DuplicateGroup, error) {
	var roots []model.Category
	err := m.db.
		Where("parent_id IS NULL AND is_deleted = ?", false).
		Order("name, created_at").
		Find(&roots).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query root categories", err)
	}

	byName := make(map[string][]DuplicateMember)
	var names []string
	for _, r := range roots {
		if _, seen := byName[r.Name]; !seen {
			names = append(names, r.Name)
		}
		byName[r.Name] = append(byName[r.Name], DuplicateMember{ID: r.ID, CreatedAt: r.CreatedAt})
	}

	var groups []DuplicateGroup
	for _, name := range names {
		if members := byName[name]; len(members) > 1 {
			groups = append(groups, DuplicateGroup{Name: name, Members: members})
		}
	}
	return groups, nil
}

// ResolveDuplicateRoots repairs duplicate root names. With keep-newest, the
// most recently created member of each group keeps its name and every other
// member is renamed with a disambiguating suffix. Parts referencing the
// renamed categories are not relinked; this is a repair, not a merge.
// Running it again on a resolved forest is a no-op. Returns the number of
// categories renamed.
func (m *Manager) ResolveDuplicateRoots(strategy string) (int, error) {
	if strategy == "" {
		strategy = StrategyKeepNewest
	}
	if strategy != StrategyKeepNewest {
		return 0, apperr.New(apperr.ValidationError, "unknown resolution strategy: "+strategy)
	}

	groups, err := m.DetectDuplicateRoots()
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, group := range groups {
		// Each group resolves in its own transaction so a failure in one
		// group does not roll back repairs already applied to others.
		err := m.db.Transaction(func(tx *gorm.DB) error {
			members := make([]DuplicateMember, len(group.Members))
			copy(members, group.Members)
			sort.Slice(members, func(i, j int) bool {
				if members[i].CreatedAt.Equal(members[j].CreatedAt) {
					return members[i].ID > members[j].ID
				}
				return members[i].CreatedAt.After(members[j].CreatedAt)
			})

			// members[0] is the newest; it keeps the name untouched.
			for _, member := range members[1:] {
				newName, err := freeRootName(tx, group.Name)
				if err != nil {
					return err
				}
				if err := tx.Model(&model.Category{}).
					Where("id = ?", member.ID).
					Update("name", newName).Error; err != nil {
					return apperr.Wrap(apperr.Internal, "failed to rename duplicate category", err)
				}
				zap.L().Info("renamed duplicate root category",
					zap.Uint("id", member.ID),
					zap.String("old_name", group.Name),
					zap.String("new_name", newName))
				renamed++
			}
			return nil
		})
		if err != nil {
			return renamed, err
		}
	}
	return renamed, nil
}

// freeRootName picks a disambiguated name not used by any non-deleted root
func freeRootName(tx *gorm.DB, base string) (string, error) {
	candidate := base + " (duplicate)"
	for n := 2; ; n++ {
		var count int64
		err := tx.Model(&model.Category{}).
			Where("parent_id IS NULL AND is_deleted = ? AND name = ?", false, candidate).
			Count(&count).Error
		if err != nil {
			return "", apperr.Wrap(apperr.Internal, "failed to probe for free name", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (duplicate %d)", base, n)
	}
}

// checkNameFree enforces the uniqueness invariant: at most one non-deleted
// root per name, at most one non-deleted child per (parent_id, name).
// excludeID skips the row being updated.
func checkNameFree(tx *gorm.DB, name string, parentID *uint, excludeID uint) error {
	q := tx.Model(&model.Category{}).Where("name = ? AND is_deleted = ?", name, false)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to check category name", err)
	}
	if count > 0 {
		if parentID == nil {
			return apperr.New(apperr.ConstraintViolation, "a root category with this name already exists")
		}
		return apperr.New(apperr.ConstraintViolation, "a category with this name already exists under this parent")
	}
	return nil
}

// loadActive fetches a non-deleted category or reports NotFound
func loadActive(tx *gorm.DB, id uint) (*model.Category, error) {
	var cat model.Category
	err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "category not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load category", err)
	}
	return &cat, nil
}

// translateDBError maps duplicate-key errors to ConstraintViolation and wraps
// everything else as Internal
func translateDBError(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.ConstraintViolation, message)
	}
	return apperr.Wrap(apperr.Internal, "database error", err)
}
