package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adilet-dev/leadflow/config"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/redis/go-redis/v9"
)

// RuleInput carries the writable fields of an auto-assign rule
type RuleInput struct {
	Name            string
	IsActive        *bool
	Priority        int
	MatchCity       *string
	MatchLanguage   *string
	MatchObjectType *string
	MatchContains   *string
	TimeFrom        *int
	TimeTo          *int
	DaysOfWeek      *string
	Strategy        string
	FixedUserID     *uint
}

// RuleUpdateInput carries a partial rule update; nil fields stay untouched
type RuleUpdateInput struct {
	Name            *string
	IsActive        *bool
	Priority        *int
	MatchCity       *string
	MatchLanguage   *string
	MatchObjectType *string
	MatchContains   *string
	TimeFrom        *int
	TimeTo          *int
	DaysOfWeek      *string
	Strategy        *string
	FixedUserID     *uint
}

// RuleFlow covers CRUD over a tenant's auto-assign rules
type RuleFlow interface {
	ListRules(ctx context.Context, actorID uint, tenantID uint, activeOnly bool) ([]*models.AutoAssignRule, error)
	CreateRule(ctx context.Context, actorID uint, tenantID uint, input *RuleInput, metadata *ClientMetadata) (*models.AutoAssignRule, error)
	UpdateRule(ctx context.Context, actorID uint, ruleID uint, input *RuleUpdateInput, metadata *ClientMetadata) (*models.AutoAssignRule, error)
	DeleteRule(ctx context.Context, actorID uint, ruleID uint, metadata *ClientMetadata) error
}

// RuleFlowImpl implements RuleFlow
type RuleFlowImpl struct {
	ruleRepo       repository.AutoAssignRuleRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	tenantUserRepo repository.TenantUserRepository
	rc             *redis.Client
	cacheConfig    *config.CacheConfig
}

// NewRuleFlow creates a new rule flow
func NewRuleFlow(
	ruleRepo repository.AutoAssignRuleRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	tenantUserRepo repository.TenantUserRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) RuleFlow {
	return &RuleFlowImpl{
		ruleRepo:       ruleRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		tenantUserRepo: tenantUserRepo,
		rc:             rc,
		cacheConfig:    cacheConfig,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	if cfg.RedisPrefix == "" {
		return key
	}
	return cfg.RedisPrefix + ":" + key
}

func (f *RuleFlowImpl) listCacheKey(tenantID uint, activeOnly bool) string {
	return redisKey(*f.cacheConfig, fmt.Sprintf("auto_assign_rules:%d:%t", tenantID, activeOnly))
}

// invalidateListCache drops both cached list variants of a tenant. The
// routing engine never reads this cache; the rotation cursor must always
// come from the database.
func (f *RuleFlowImpl) invalidateListCache(ctx context.Context, tenantID uint) {
	if f.rc == nil {
		return
	}
	_ = f.rc.Del(ctx,
		f.listCacheKey(tenantID, true),
		f.listCacheKey(tenantID, false),
	).Err()
}

// ListRules returns a tenant's rules in evaluation order, serving cached
// responses when available.
func (f *RuleFlowImpl) ListRules(ctx context.Context, actorID uint, tenantID uint, activeOnly bool) ([]*models.AutoAssignRule, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, err
	}

	cacheKey := f.listCacheKey(tenantID, activeOnly)
	if f.rc != nil {
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached []*models.AutoAssignRule
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	rules, err := f.ruleRepo.ListByTenant(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, NewBusinessError("RULE_LIST_FAILED", "Failed to list auto-assign rules", err)
	}

	if f.rc != nil {
		if bs, err := json.Marshal(rules); err == nil {
			ttl := f.cacheConfig.DefaultTTL
			if ttl <= 0 {
				ttl = time.Minute
			}
			_ = f.rc.Set(ctx, cacheKey, bs, ttl).Err()
		}
	}

	return rules, nil
}

// validateRule checks strategy and gate fields shared by create and update
func validateRule(strategy models.AssignStrategy, fixedUserID *uint, timeFrom, timeTo *int, daysOfWeek *string) error {
	if !strategy.Valid() {
		return ErrInvalidStrategy
	}
	if strategy == models.StrategyFixedUser && fixedUserID == nil {
		return ErrFixedUserIDRequired
	}
	for _, h := range []*int{timeFrom, timeTo} {
		if h != nil && (*h < 0 || *h > 23) {
			return ErrInvalidTimeWindow
		}
	}
	if daysOfWeek != nil && *daysOfWeek != "" {
		parsed := models.AutoAssignRule{DaysOfWeek: daysOfWeek}
		for d := range parsed.WeekdaySet() {
			if d < 1 || d > 7 {
				return ErrInvalidDaysOfWeek
			}
		}
	}
	return nil
}

// CreateRule creates a new auto-assign rule for a tenant
func (f *RuleFlowImpl) CreateRule(ctx context.Context, actorID uint, tenantID uint, input *RuleInput, metadata *ClientMetadata) (*models.AutoAssignRule, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, err
	}

	strategy := models.AssignStrategy(input.Strategy)
	if err := validateRule(strategy, input.FixedUserID, input.TimeFrom, input.TimeTo, input.DaysOfWeek); err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	rule := &models.AutoAssignRule{
		TenantID:        tenantID,
		Name:            input.Name,
		IsActive:        input.IsActive,
		Priority:        input.Priority,
		MatchCity:       input.MatchCity,
		MatchLanguage:   input.MatchLanguage,
		MatchObjectType: input.MatchObjectType,
		MatchContains:   input.MatchContains,
		TimeFrom:        input.TimeFrom,
		TimeTo:          input.TimeTo,
		DaysOfWeek:      input.DaysOfWeek,
		Strategy:        strategy,
		FixedUserID:     input.FixedUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rule.IsActive == nil {
		rule.IsActive = utils.ToPtr(true)
	}

	if err := f.ruleRepo.Save(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_CREATE_FAILED", "Failed to create auto-assign rule", err)
	}

	f.invalidateListCache(ctx, tenantID)
	logAudit("auto_assign_rule_created", actor.ID, metadata)
	return rule, nil
}

// UpdateRule applies a partial update to an existing rule
func (f *RuleFlowImpl) UpdateRule(ctx context.Context, actorID uint, ruleID uint, input *RuleUpdateInput, metadata *ClientMetadata) (*models.AutoAssignRule, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}

	rule, err := f.ruleRepo.ByID(ctx, ruleID)
	if err != nil {
		return nil, NewBusinessError("RULE_LOOKUP_FAILED", "Failed to load auto-assign rule", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, rule.TenantID); err != nil {
		return nil, err
	}

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.IsActive != nil {
		rule.IsActive = input.IsActive
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.MatchCity != nil {
		rule.MatchCity = input.MatchCity
	}
	if input.MatchLanguage != nil {
		rule.MatchLanguage = input.MatchLanguage
	}
	if input.MatchObjectType != nil {
		rule.MatchObjectType = input.MatchObjectType
	}
	if input.MatchContains != nil {
		rule.MatchContains = input.MatchContains
	}
	if input.TimeFrom != nil {
		rule.TimeFrom = input.TimeFrom
	}
	if input.TimeTo != nil {
		rule.TimeTo = input.TimeTo
	}
	if input.DaysOfWeek != nil {
		rule.DaysOfWeek = input.DaysOfWeek
	}
	if input.Strategy != nil {
		rule.Strategy = models.AssignStrategy(*input.Strategy)
	}
	if input.FixedUserID != nil {
		rule.FixedUserID = input.FixedUserID
	}

	if err := validateRule(rule.Strategy, rule.FixedUserID, rule.TimeFrom, rule.TimeTo, rule.DaysOfWeek); err != nil {
		return nil, err
	}

	if err := f.ruleRepo.Update(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_UPDATE_FAILED", "Failed to update auto-assign rule", err)
	}

	f.invalidateListCache(ctx, rule.TenantID)
	logAudit("auto_assign_rule_updated", actor.ID, metadata)
	return rule, nil
}

// DeleteRule removes a rule
func (f *RuleFlowImpl) DeleteRule(ctx context.Context, actorID uint, ruleID uint, metadata *ClientMetadata) error {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return err
	}

	rule, err := f.ruleRepo.ByID(ctx, ruleID)
	if err != nil {
		return NewBusinessError("RULE_LOOKUP_FAILED", "Failed to load auto-assign rule", err)
	}
	if rule == nil {
		return ErrRuleNotFound
	}

	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, rule.TenantID); err != nil {
		return err
	}

	if err := f.ruleRepo.Delete(ctx, ruleID); err != nil {
		return NewBusinessError("RULE_DELETE_FAILED", "Failed to delete auto-assign rule", err)
	}

	f.invalidateListCache(ctx, rule.TenantID)
	logAudit("auto_assign_rule_deleted", actor.ID, metadata)
	return nil
}
