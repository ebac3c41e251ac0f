package repository

import (
	"context"
	"errors"

	"github.com/adilet-dev/leadflow/models"
	"gorm.io/gorm"
)

// LeadEventRepositoryImpl implements LeadEventRepository interface
type LeadEventRepositoryImpl struct {
	*BaseRepository[models.LeadEvent, models.LeadEventFilter]
}

// NewLeadEventRepository creates a new lead event repository
func NewLeadEventRepository(db *gorm.DB) LeadEventRepository {
	return &LeadEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadEvent, models.LeadEventFilter](db),
	}
}

// ByID retrieves a lead event by its ID
func (r *LeadEventRepositoryImpl) ByID(ctx context.Context, id uint) (*models.LeadEvent, error) {
	db := r.getDB(ctx)
	var row models.LeadEvent
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	return query
}

// ByFilter retrieves lead events based on filter criteria
func (r *LeadEventRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadEventFilter, orderBy string, limit, offset int) ([]*models.LeadEvent, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LeadEvent{})

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

	var rows []*models.LeadEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of lead events matching filter
func (r *LeadEventRepositoryImpl) Count(ctx context.Context, filter models.LeadEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LeadEvent{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether any lead event matches the filter
func (r *LeadEventRepositoryImpl) Exists(ctx context.Context, filter models.LeadEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByLead returns the event history of a lead, newest first
func (r *LeadEventRepositoryImpl) ListByLead(ctx context.Context, leadID uint, limit, offset int) ([]*models.LeadEvent, error) {
	return r.ByFilter(ctx, models.LeadEventFilter{LeadID: &leadID}, "id DESC", limit, offset)
}
