package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AssignStrategy represents how a matched rule picks a manager
type AssignStrategy string

const (
	StrategyRoundRobin  AssignStrategy = "round_robin"
	StrategyLeastLoaded AssignStrategy = "least_loaded"
	StrategyFixedUser   AssignStrategy = "fixed_user"
)

// String returns the string representation of the strategy
func (s AssignStrategy) String() string {
	return string(s)
}

// Valid checks if the strategy is valid
func (s AssignStrategy) Valid() bool {
	switch s {
	case StrategyRoundRobin, StrategyLeastLoaded, StrategyFixedUser:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AssignStrategy
func (s *AssignStrategy) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = AssignStrategy(v)
	case []byte:
		*s = AssignStrategy(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AssignStrategy", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AssignStrategy
func (s AssignStrategy) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AssignStrategy: %s", s)
	}
	return string(s), nil
}

// AutoAssignRule is a per-tenant routing rule. Rules are evaluated in
// (priority ASC, id ASC) order; all set predicates must hold (AND). RRState
// is the persisted round-robin rotation cursor, advanced by one on every
// round_robin evaluation of the rule and used modulo the roster size.
type AutoAssignRule struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	TenantID        uint           `gorm:"not null;index:idx_auto_assign_rules_tenant_active,priority:1" json:"tenant_id"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	IsActive        *bool          `gorm:"default:true;index:idx_auto_assign_rules_tenant_active,priority:2" json:"is_active"`
	Priority        int            `gorm:"not null;default:0" json:"priority"`
	MatchCity       *string        `gorm:"size:255" json:"match_city,omitempty"`
	MatchLanguage   *string        `gorm:"size:32" json:"match_language,omitempty"`
	MatchObjectType *string        `gorm:"size:255" json:"match_object_type,omitempty"`
	MatchContains   *string        `gorm:"size:512" json:"match_contains,omitempty"`
	TimeFrom        *int           `json:"time_from,omitempty"`
	TimeTo          *int           `json:"time_to,omitempty"`
	DaysOfWeek      *string        `gorm:"size:32" json:"days_of_week,omitempty"`
	Strategy        AssignStrategy `gorm:"size:32;not null" json:"strategy"`
	FixedUserID     *uint          `json:"fixed_user_id,omitempty"`
	RRState         int            `gorm:"column:rr_state;not null;default:0" json:"rr_state"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
}

func (AutoAssignRule) TableName() string {
	return "auto_assign_rules"
}

// WeekdaySet parses the CSV DaysOfWeek column into a set of ISO weekdays
// (1 = Monday .. 7 = Sunday). Blank entries are skipped; an unset or empty
// column yields an empty set, which disables the weekday gate.
func (r *AutoAssignRule) WeekdaySet() map[int]bool {
	set := make(map[int]bool)
	if r.DaysOfWeek == nil {
		return set
	}
	for _, part := range strings.Split(*r.DaysOfWeek, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if d, err := strconv.Atoi(part); err == nil {
			set[d] = true
		}
	}
	return set
}

// AutoAssignRuleFilter represents filter criteria for rule queries
type AutoAssignRuleFilter struct {
	ID       *uint
	TenantID *uint
	IsActive *bool
	Strategy *AssignStrategy
}
