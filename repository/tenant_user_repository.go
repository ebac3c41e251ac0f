package repository

import (
	"context"
	"errors"

	"github.com/adilet-dev/leadflow/models"
	"gorm.io/gorm"
)

// TenantUserRepositoryImpl implements TenantUserRepository interface
type TenantUserRepositoryImpl struct {
	*BaseRepository[models.TenantUser, models.TenantUserFilter]
}

// NewTenantUserRepository creates a new tenant-user repository
func NewTenantUserRepository(db *gorm.DB) TenantUserRepository {
	return &TenantUserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TenantUser, models.TenantUserFilter](db),
	}
}

// ByID retrieves a tenant-user link by its ID
func (r *TenantUserRepositoryImpl) ByID(ctx context.Context, id uint) (*models.TenantUser, error) {
	db := r.getDB(ctx)
	var row models.TenantUser
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *TenantUserRepositoryImpl) applyFilter(query *gorm.DB, filter models.TenantUserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves tenant-user links based on filter criteria
func (r *TenantUserRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantUserFilter, orderBy string, limit, offset int) ([]*models.TenantUser, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.TenantUser{})

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

	var rows []*models.TenantUser
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of tenant-user links matching filter
func (r *TenantUserRepositoryImpl) Count(ctx context.Context, filter models.TenantUserFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.TenantUser{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether any tenant-user link matches the filter
func (r *TenantUserRepositoryImpl) Exists(ctx context.Context, filter models.TenantUserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ManagerIDs returns the active manager roster of a tenant ordered by link
// id ascending. Link id order is the roster's insertion order, which the
// round-robin and least-loaded strategies both depend on.
func (r *TenantUserRepositoryImpl) ManagerIDs(ctx context.Context, tenantID uint) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	err := db.Model(&models.TenantUser{}).
		Where("tenant_id = ?", tenantID).
		Where("role IN ?", []string{models.TenantRoleManager, models.TenantRoleMember}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RoleOf returns the active role of a user within a tenant, or "" when the
// user is not an active member.
func (r *TenantUserRepositoryImpl) RoleOf(ctx context.Context, tenantID, userID uint) (string, error) {
	db := r.getDB(ctx)

	var row models.TenantUser
	err := db.Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		Where("is_active = ?", true).
		Last(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.Role, nil
}
