package repository

import (
	"context"
	"errors"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/utils"
	"gorm.io/gorm"
)

// AutoAssignRuleRepositoryImpl implements AutoAssignRuleRepository interface
type AutoAssignRuleRepositoryImpl struct {
	*BaseRepository[models.AutoAssignRule, models.AutoAssignRuleFilter]
}

// NewAutoAssignRuleRepository creates a new auto-assign rule repository
func NewAutoAssignRuleRepository(db *gorm.DB) AutoAssignRuleRepository {
	return &AutoAssignRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AutoAssignRule, models.AutoAssignRuleFilter](db),
	}
}

// ByID retrieves a rule by its ID
func (r *AutoAssignRuleRepositoryImpl) ByID(ctx context.Context, id uint) (*models.AutoAssignRule, error) {
	db := r.getDB(ctx)
	var row models.AutoAssignRule
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AutoAssignRuleRepositoryImpl) applyFilter(query *gorm.DB, filter models.AutoAssignRuleFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Strategy != nil {
		query = query.Where("strategy = ?", *filter.Strategy)
	}
	return query
}

// ByFilter retrieves rules based on filter criteria
func (r *AutoAssignRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.AutoAssignRuleFilter, orderBy string, limit, offset int) ([]*models.AutoAssignRule, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AutoAssignRule{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.AutoAssignRule
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of rules matching filter
func (r *AutoAssignRuleRepositoryImpl) Count(ctx context.Context, filter models.AutoAssignRuleFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AutoAssignRule{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether any rule matches the filter
func (r *AutoAssignRuleRepositoryImpl) Exists(ctx context.Context, filter models.AutoAssignRuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByTenant returns a tenant's rules ordered by (priority ASC, id ASC),
// the evaluation order of the routing engine.
func (r *AutoAssignRuleRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, activeOnly bool) ([]*models.AutoAssignRule, error) {
	filter := models.AutoAssignRuleFilter{TenantID: &tenantID}
	if activeOnly {
		filter.IsActive = utils.ToPtr(true)
	}
	return r.ByFilter(ctx, filter, "priority ASC, id ASC", 0, 0)
}

// UpdateRotation writes the rotation cursor of a rule. The new value comes
// from the rule the caller loaded earlier; concurrent evaluators can
// overwrite each other's cursor, which keeps distribution approximate
// rather than strict.
func (r *AutoAssignRuleRepositoryImpl) UpdateRotation(ctx context.Context, ruleID uint, rrState int) error {
	db := r.getDB(ctx)
	return db.Model(&models.AutoAssignRule{}).
		Where("id = ?", ruleID).
		Updates(map[string]any{
			"rr_state":   rrState,
			"updated_at": utils.UTCNow(),
		}).Error
}

// Update persists changes to an existing rule
func (r *AutoAssignRuleRepositoryImpl) Update(ctx context.Context, rule *models.AutoAssignRule) error {
	db := r.getDB(ctx)
	rule.UpdatedAt = utils.UTCNow()
	return db.Save(rule).Error
}

// Delete removes a rule by ID
func (r *AutoAssignRuleRepositoryImpl) Delete(ctx context.Context, ruleID uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.AutoAssignRule{}, ruleID).Error
}
