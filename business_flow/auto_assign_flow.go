package businessflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/adilet-dev/leadflow/config"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	autoAssignEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_auto_assign_evaluations_total",
		Help: "Auto-assign evaluations by outcome",
	}, []string{"outcome"})

	autoAssignAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_auto_assign_assignments_total",
		Help: "Successful auto-assignments by strategy",
	}, []string{"strategy"})
)

// Outcomes reported by TryAutoAssign when no assignment happens
const (
	OutcomeAssigned        = "assigned"
	OutcomeAlreadyAssigned = "already_assigned"
	OutcomeNoTenant        = "no_tenant"
	OutcomeNoManagers      = "no_managers"
	OutcomeNoRuleMatched   = "no_rule_matched"
)

// AutoAssignResult describes the outcome of one auto-assign evaluation
type AutoAssignResult struct {
	Assigned       bool                  `json:"assigned"`
	Outcome        string                `json:"outcome"`
	RuleID         *uint                 `json:"rule_id,omitempty"`
	Strategy       models.AssignStrategy `json:"strategy,omitempty"`
	AssignedUserID *uint                 `json:"assigned_user_id,omitempty"`
}

// AutoAssignFlow routes unassigned leads to managers by evaluating the
// tenant's rules in priority order.
type AutoAssignFlow interface {
	TryAutoAssign(ctx context.Context, leadID uint, firstMessageText *string) (*AutoAssignResult, error)
}

// AutoAssignFlowImpl implements AutoAssignFlow
type AutoAssignFlowImpl struct {
	leadRepo       repository.LeadRepository
	ruleRepo       repository.AutoAssignRuleRepository
	tenantUserRepo repository.TenantUserRepository
	leadEventRepo  repository.LeadEventRepository
	db             *gorm.DB
	loc            *time.Location
	windowDays     int
	now            func() time.Time
}

// NewAutoAssignFlow creates a new auto-assign flow. The business timezone
// for the time gates and the least-loaded window come from cfg; an unset or
// unknown timezone falls back to the default business location.
func NewAutoAssignFlow(
	leadRepo repository.LeadRepository,
	ruleRepo repository.AutoAssignRuleRepository,
	tenantUserRepo repository.TenantUserRepository,
	leadEventRepo repository.LeadEventRepository,
	db *gorm.DB,
	cfg *config.AssignmentConfig,
) AutoAssignFlow {
	loc := utils.BusinessLocation()
	windowDays := utils.LeastLoadedWindowDays
	if cfg != nil {
		if cfg.Timezone != "" {
			if l, err := time.LoadLocation(cfg.Timezone); err == nil {
				loc = l
			}
		}
		if cfg.LeastLoadedWindowDays > 0 {
			windowDays = cfg.LeastLoadedWindowDays
		}
	}
	return &AutoAssignFlowImpl{
		leadRepo:       leadRepo,
		ruleRepo:       ruleRepo,
		tenantUserRepo: tenantUserRepo,
		leadEventRepo:  leadEventRepo,
		db:             db,
		loc:            loc,
		windowDays:     windowDays,
		now:            utils.UTCNow,
	}
}

// ruleMatchesTime checks the hour window and weekday gate of a rule against
// the business timezone. The hour bounds are inclusive on both ends; an
// empty weekday list disables the weekday gate.
func ruleMatchesTime(rule *models.AutoAssignRule, now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	hour := local.Hour()

	if rule.TimeFrom != nil && hour < *rule.TimeFrom {
		return false
	}
	if rule.TimeTo != nil && hour > *rule.TimeTo {
		return false
	}

	days := rule.WeekdaySet()
	if len(days) > 0 && !days[utils.ISOWeekday(local)] {
		return false
	}
	return true
}

// ruleMatchesLead checks the content predicates of a rule against a lead.
// Equality predicates compare trimmed lowercase values; match_contains is a
// substring search over the lead summary and the first inbound message.
func ruleMatchesLead(rule *models.AutoAssignRule, lead *models.Lead, firstMessageText *string) bool {
	if rule.MatchCity != nil && *rule.MatchCity != "" {
		if utils.NormalizeMatchValue(deref(lead.City)) != utils.NormalizeMatchValue(*rule.MatchCity) {
			return false
		}
	}
	if rule.MatchLanguage != nil && *rule.MatchLanguage != "" {
		if utils.NormalizeMatchValue(deref(lead.Language)) != utils.NormalizeMatchValue(*rule.MatchLanguage) {
			return false
		}
	}
	if rule.MatchObjectType != nil && *rule.MatchObjectType != "" {
		if utils.NormalizeMatchValue(deref(lead.ObjectType)) != utils.NormalizeMatchValue(*rule.MatchObjectType) {
			return false
		}
	}
	if rule.MatchContains != nil && *rule.MatchContains != "" {
		sub := utils.NormalizeMatchValue(*rule.MatchContains)
		summary := strings.ToLower(deref(lead.Summary))
		first := strings.ToLower(deref(firstMessageText))
		if !strings.Contains(summary, sub) && !strings.Contains(first, sub) {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TryAutoAssign evaluates the tenant's active rules against the lead and
// assigns the first candidate a matching rule produces. An already assigned
// lead is left untouched. The idempotency guard is a plain read of the lead
// row, so two concurrent evaluations of the same lead can both pass it and
// the later write wins.
func (f *AutoAssignFlowImpl) TryAutoAssign(ctx context.Context, leadID uint, firstMessageText *string) (*AutoAssignResult, error) {
	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to load lead", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	if lead.IsAssigned() {
		autoAssignEvaluations.WithLabelValues(OutcomeAlreadyAssigned).Inc()
		return &AutoAssignResult{Outcome: OutcomeAlreadyAssigned}, nil
	}
	if lead.TenantID == nil {
		autoAssignEvaluations.WithLabelValues(OutcomeNoTenant).Inc()
		return &AutoAssignResult{Outcome: OutcomeNoTenant}, nil
	}
	tenantID := *lead.TenantID

	rules, err := f.ruleRepo.ListByTenant(ctx, tenantID, true)
	if err != nil {
		return nil, NewBusinessError("RULE_LIST_FAILED", "Failed to list auto-assign rules", err)
	}

	managers, err := f.tenantUserRepo.ManagerIDs(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("ROSTER_LOOKUP_FAILED", "Failed to load manager roster", err)
	}
	if len(managers) == 0 {
		autoAssignEvaluations.WithLabelValues(OutcomeNoManagers).Inc()
		return &AutoAssignResult{Outcome: OutcomeNoManagers}, nil
	}

	now := f.now()

	for _, rule := range rules {
		if !ruleMatchesTime(rule, now, f.loc) {
			continue
		}
		if !ruleMatchesLead(rule, lead, firstMessageText) {
			continue
		}

		candidate, err := f.resolveCandidate(ctx, rule, tenantID, managers, now)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			// Strategy produced nobody; fall through to the next rule.
			continue
		}

		if err := f.assign(ctx, lead, rule, *candidate, now); err != nil {
			return nil, err
		}

		autoAssignEvaluations.WithLabelValues(OutcomeAssigned).Inc()
		autoAssignAssignments.WithLabelValues(rule.Strategy.String()).Inc()
		return &AutoAssignResult{
			Assigned:       true,
			Outcome:        OutcomeAssigned,
			RuleID:         &rule.ID,
			Strategy:       rule.Strategy,
			AssignedUserID: candidate,
		}, nil
	}

	autoAssignEvaluations.WithLabelValues(OutcomeNoRuleMatched).Inc()
	return &AutoAssignResult{Outcome: OutcomeNoRuleMatched}, nil
}

// resolveCandidate picks a manager per the rule's strategy, or nil when the
// strategy yields nobody.
func (f *AutoAssignFlowImpl) resolveCandidate(
	ctx context.Context,
	rule *models.AutoAssignRule,
	tenantID uint,
	managers []uint,
	now time.Time,
) (*uint, error) {
	switch rule.Strategy {
	case models.StrategyFixedUser:
		if rule.FixedUserID == nil {
			return nil, nil
		}
		for _, id := range managers {
			if id == *rule.FixedUserID {
				return rule.FixedUserID, nil
			}
		}
		return nil, nil

	case models.StrategyLeastLoaded:
		since := now.AddDate(0, 0, -f.windowDays)
		loads, err := f.leadRepo.CountActiveByAssignee(ctx, tenantID, since)
		if err != nil {
			return nil, NewBusinessError("LOAD_COUNT_FAILED", "Failed to count manager load", err)
		}
		var best *uint
		var bestCount int64
		for _, id := range managers {
			c := loads[id]
			if best == nil || c < bestCount {
				id := id
				best = &id
				bestCount = c
			}
		}
		return best, nil

	case models.StrategyRoundRobin:
		// The cursor read and the advance below are deliberately not
		// atomic: concurrent evaluations may pick the same index and the
		// rotation stays approximate under load.
		idx := rule.RRState % len(managers)
		candidate := managers[idx]
		if err := f.ruleRepo.UpdateRotation(ctx, rule.ID, rule.RRState+1); err != nil {
			return nil, NewBusinessError("ROTATION_UPDATE_FAILED", "Failed to advance rotation cursor", err)
		}
		return &candidate, nil

	default:
		return nil, nil
	}
}

// assign writes the assignment fields and the audit event together
func (f *AutoAssignFlowImpl) assign(ctx context.Context, lead *models.Lead, rule *models.AutoAssignRule, userID uint, now time.Time) error {
	return repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		upd := repository.LeadAssignmentUpdate{
			AssignedUserID: &userID,
			AssignedAt:     &now,
		}
		if lead.FirstAssignedAt == nil {
			upd.FirstAssignedAt = &now
		}
		if err := f.leadRepo.UpdateAssignment(txCtx, lead.ID, upd); err != nil {
			return NewBusinessError("ASSIGNMENT_WRITE_FAILED", "Failed to write lead assignment", err)
		}

		payload, _ := json.Marshal(map[string]any{
			"auto_assign_rule_id": rule.ID,
			"assigned_to_user_id": userID,
			"strategy":            rule.Strategy.String(),
		})
		event := &models.LeadEvent{
			TenantID:  *lead.TenantID,
			LeadID:    lead.ID,
			Type:      models.LeadEventAssigned,
			Payload:   payload,
			CreatedAt: now,
		}
		if err := f.leadEventRepo.Save(txCtx, event); err != nil {
			return NewBusinessError("EVENT_WRITE_FAILED", "Failed to write lead event", err)
		}
		return nil
	})
}
