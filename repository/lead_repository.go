package repository

import (
	"context"
	"errors"
	"time"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/utils"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByID retrieves a lead by its ID
func (r *LeadRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Lead, error) {
	db := r.getDB(ctx)
	var row models.Lead
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByUUID retrieves a lead by UUID
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Lead, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, models.LeadFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedUserID != nil {
		query = query.Where("assigned_user_id = ?", *filter.AssignedUserID)
	}
	if filter.Unassigned != nil && *filter.Unassigned {
		query = query.Where("assigned_user_id IS NULL")
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{})

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

	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of leads matching filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks whether any lead matches the filter
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateAssignment persists the assignment fields of a lead. A nil
// AssignedUserID clears assigned_user_id and assigned_at together.
// FirstAssignedAt and Status are written only when set.
func (r *LeadRepositoryImpl) UpdateAssignment(ctx context.Context, leadID uint, upd LeadAssignmentUpdate) error {
	db := r.getDB(ctx)

	fields := map[string]any{
		"assigned_user_id": upd.AssignedUserID,
		"assigned_at":      upd.AssignedAt,
		"updated_at":       utils.UTCNow(),
	}
	if upd.FirstAssignedAt != nil {
		fields["first_assigned_at"] = *upd.FirstAssignedAt
	}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}

	return db.Model(&models.Lead{}).Where("id = ?", leadID).Updates(fields).Error
}

// assigneeLoad is the scan target for the per-manager load aggregate
type assigneeLoad struct {
	AssignedUserID uint
	Cnt            int64
}

// CountActiveByAssignee returns, per assignee, the number of leads in the
// tenant with status NEW or IN_PROGRESS created at or after since.
func (r *LeadRepositoryImpl) CountActiveByAssignee(ctx context.Context, tenantID uint, since time.Time) (map[uint]int64, error) {
	db := r.getDB(ctx)

	var rows []assigneeLoad
	err := db.Model(&models.Lead{}).
		Select("assigned_user_id, COUNT(*) AS cnt").
		Where("tenant_id = ?", tenantID).
		Where("assigned_user_id IS NOT NULL").
		Where("status IN ?", []models.LeadStatus{models.LeadStatusNew, models.LeadStatusInProgress}).
		Where("created_at >= ?", since).
		Group("assigned_user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	loads := make(map[uint]int64, len(rows))
	for _, row := range rows {
		loads[row.AssignedUserID] = row.Cnt
	}
	return loads, nil
}
