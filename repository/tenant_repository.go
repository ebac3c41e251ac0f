package repository

import (
	"context"
	"errors"

	"github.com/adilet-dev/leadflow/models"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByID retrieves a tenant by its ID
func (r *TenantRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Tenant, error) {
	db := r.getDB(ctx)
	var row models.Tenant
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// BySlug retrieves a tenant by its slug
func (r *TenantRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	rows, err := r.ByFilter(ctx, models.TenantFilter{Slug: &slug}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *TenantRepositoryImpl) applyFilter(query *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Slug != nil {
		query = query.Where("slug = ?", *filter.Slug)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Tenant{})

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

	var rows []*models.Tenant
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of tenants matching filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Tenant{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether any tenant matches the filter
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
