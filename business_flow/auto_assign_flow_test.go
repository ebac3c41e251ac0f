package businessflow

import (
	"testing"
	"time"

	"github.com/adilet-dev/leadflow/config"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	testingutil "github.com/adilet-dev/leadflow/testing"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFlowTest provisions a throwaway Postgres database for a flow test.
// Tests that need a database are skipped when no server is reachable.
func setupFlowTest(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			t.Logf("failed to cleanup test database: %v", cleanupErr)
		}
	})

	return testDB, testingutil.NewTestFixtures(testDB)
}

func newAutoAssignFlowForTest(testDB *testingutil.TestDB, now time.Time) *AutoAssignFlowImpl {
	return &AutoAssignFlowImpl{
		leadRepo:       repository.NewLeadRepository(testDB.DB),
		ruleRepo:       repository.NewAutoAssignRuleRepository(testDB.DB),
		tenantUserRepo: repository.NewTenantUserRepository(testDB.DB),
		leadEventRepo:  repository.NewLeadEventRepository(testDB.DB),
		db:             testDB.DB,
		loc:            utils.BusinessLocation(),
		windowDays:     utils.LeastLoadedWindowDays,
		now:            func() time.Time { return now },
	}
}

func TestNewAutoAssignFlowConfig(t *testing.T) {
	t.Run("timezone and window come from the config section", func(t *testing.T) {
		flow := NewAutoAssignFlow(nil, nil, nil, nil, nil, &config.AssignmentConfig{
			Timezone:              "UTC",
			LeastLoadedWindowDays: 3,
		}).(*AutoAssignFlowImpl)
		assert.Equal(t, time.UTC, flow.loc)
		assert.Equal(t, 3, flow.windowDays)
	})

	t.Run("unset or unknown values fall back to defaults", func(t *testing.T) {
		flow := NewAutoAssignFlow(nil, nil, nil, nil, nil, &config.AssignmentConfig{
			Timezone: "Not/AZone",
		}).(*AutoAssignFlowImpl)
		assert.Equal(t, utils.BusinessLocation().String(), flow.loc.String())
		assert.Equal(t, utils.LeastLoadedWindowDays, flow.windowDays)

		flow = NewAutoAssignFlow(nil, nil, nil, nil, nil, nil).(*AutoAssignFlowImpl)
		assert.Equal(t, utils.BusinessLocation().String(), flow.loc.String())
		assert.Equal(t, utils.LeastLoadedWindowDays, flow.windowDays)
	})
}

func TestRuleMatchesTime(t *testing.T) {
	loc := utils.BusinessLocation()
	gateMatches := func(rule *models.AutoAssignRule, ts time.Time) bool {
		return ruleMatchesTime(rule, ts, loc)
	}
	// 2025-01-06 is a Monday.
	monday := func(hour int) time.Time {
		return time.Date(2025, 1, 6, hour, 0, 0, 0, loc)
	}

	t.Run("no gates always matches", func(t *testing.T) {
		rule := &models.AutoAssignRule{}
		assert.True(t, gateMatches(rule, monday(0)))
		assert.True(t, gateMatches(rule, monday(23)))
	})

	t.Run("hour window is inclusive on both ends", func(t *testing.T) {
		rule := &models.AutoAssignRule{
			TimeFrom: utils.ToPtr(9),
			TimeTo:   utils.ToPtr(18),
		}
		assert.False(t, gateMatches(rule, monday(8)))
		assert.True(t, gateMatches(rule, monday(9)))
		assert.True(t, gateMatches(rule, monday(18)))
		assert.False(t, gateMatches(rule, monday(19)))
	})

	t.Run("open-ended windows", func(t *testing.T) {
		fromOnly := &models.AutoAssignRule{TimeFrom: utils.ToPtr(12)}
		assert.False(t, gateMatches(fromOnly, monday(11)))
		assert.True(t, gateMatches(fromOnly, monday(23)))

		toOnly := &models.AutoAssignRule{TimeTo: utils.ToPtr(12)}
		assert.True(t, gateMatches(toOnly, monday(0)))
		assert.False(t, gateMatches(toOnly, monday(13)))
	})

	t.Run("weekday gate", func(t *testing.T) {
		weekend := &models.AutoAssignRule{DaysOfWeek: utils.ToPtr("6,7")}
		assert.False(t, gateMatches(weekend, monday(12)))

		weekdays := &models.AutoAssignRule{DaysOfWeek: utils.ToPtr("1,2,3,4,5")}
		assert.True(t, gateMatches(weekdays, monday(12)))

		// Sunday 2025-01-12 maps to ISO weekday 7.
		sunday := time.Date(2025, 1, 12, 12, 0, 0, 0, loc)
		assert.True(t, gateMatches(weekend, sunday))
		assert.False(t, gateMatches(weekdays, sunday))
	})

	t.Run("empty weekday list disables the gate", func(t *testing.T) {
		rule := &models.AutoAssignRule{DaysOfWeek: utils.ToPtr("")}
		assert.True(t, gateMatches(rule, monday(12)))
	})
}

func TestRuleMatchesLead(t *testing.T) {
	t.Run("city equality trims and lowercases", func(t *testing.T) {
		rule := &models.AutoAssignRule{MatchCity: utils.ToPtr("  Almaty ")}
		lead := &models.Lead{City: utils.ToPtr("almaty")}
		assert.True(t, ruleMatchesLead(rule, lead, nil))

		other := &models.Lead{City: utils.ToPtr("Astana")}
		assert.False(t, ruleMatchesLead(rule, other, nil))
	})

	t.Run("set predicate fails against empty lead field", func(t *testing.T) {
		rule := &models.AutoAssignRule{MatchLanguage: utils.ToPtr("ru")}
		assert.False(t, ruleMatchesLead(rule, &models.Lead{}, nil))
	})

	t.Run("empty predicate is skipped", func(t *testing.T) {
		rule := &models.AutoAssignRule{MatchCity: utils.ToPtr("")}
		assert.True(t, ruleMatchesLead(rule, &models.Lead{}, nil))
	})

	t.Run("all set predicates must hold", func(t *testing.T) {
		rule := &models.AutoAssignRule{
			MatchCity:     utils.ToPtr("Almaty"),
			MatchLanguage: utils.ToPtr("ru"),
		}
		lead := &models.Lead{
			City:     utils.ToPtr("Almaty"),
			Language: utils.ToPtr("kz"),
		}
		assert.False(t, ruleMatchesLead(rule, lead, nil))

		lead.Language = utils.ToPtr("RU")
		assert.True(t, ruleMatchesLead(rule, lead, nil))
	})

	t.Run("match_contains searches summary and first message", func(t *testing.T) {
		rule := &models.AutoAssignRule{MatchContains: utils.ToPtr("Mortgage")}

		bySummary := &models.Lead{Summary: utils.ToPtr("asking about mortgage rates")}
		assert.True(t, ruleMatchesLead(rule, bySummary, nil))

		first := "Is a MORTGAGE possible here?"
		assert.True(t, ruleMatchesLead(rule, &models.Lead{}, &first))

		unrelated := "just looking"
		assert.False(t, ruleMatchesLead(rule, &models.Lead{}, &unrelated))
	})
}

func TestTryAutoAssign(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)
	ctx := testingutil.CreateTestContext()

	// Monday 2025-01-06 09:00 UTC is mid-morning in any plausible offset.
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

	flow := newAutoAssignFlowForTest(testDB, now)

	setup := func(t *testing.T) (*models.Tenant, *models.User, *models.User) {
		require.NoError(t, testDB.ClearAllTables())

		tenant, err := fixtures.CreateTestTenant("acme", nil)
		require.NoError(t, err)

		m1, err := fixtures.CreateTestUser("Manager One", false)
		require.NoError(t, err)
		m2, err := fixtures.CreateTestUser("Manager Two", false)
		require.NoError(t, err)

		_, err = fixtures.CreateTestTenantUser(tenant.ID, m1.ID, models.TenantRoleManager)
		require.NoError(t, err)
		_, err = fixtures.CreateTestTenantUser(tenant.ID, m2.ID, models.TenantRoleMember)
		require.NoError(t, err)

		return tenant, m1, m2
	}

	t.Run("already assigned lead is left untouched", func(t *testing.T) {
		tenant, m1, _ := setup(t)
		_, err := fixtures.CreateTestRule(tenant.ID, "catch-all", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).
			Update("assigned_user_id", m1.ID).Error)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		assert.False(t, result.Assigned)
		assert.Equal(t, OutcomeAlreadyAssigned, result.Outcome)

		reloaded, err := flow.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.AssignedUserID)
		assert.Equal(t, m1.ID, *reloaded.AssignedUserID)
	})

	t.Run("lead without tenant is not routed", func(t *testing.T) {
		setup(t)

		orphan := &models.Lead{UUID: uuid.New(), Status: models.LeadStatusNew}
		require.NoError(t, testDB.DB.Create(orphan).Error)

		result, err := flow.TryAutoAssign(ctx, orphan.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoTenant, result.Outcome)
	})

	t.Run("empty roster short-circuits", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())
		tenant, err := fixtures.CreateTestTenant("lonely", nil)
		require.NoError(t, err)
		_, err = fixtures.CreateTestRule(tenant.ID, "catch-all", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		assert.False(t, result.Assigned)
		assert.Equal(t, OutcomeNoManagers, result.Outcome)
	})

	t.Run("round robin rotates through the roster and persists the cursor", func(t *testing.T) {
		tenant, m1, m2 := setup(t)
		rule, err := fixtures.CreateTestRule(tenant.ID, "rotate", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		var assignees []uint
		for i := 0; i < 3; i++ {
			lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
			require.NoError(t, err)

			result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
			require.NoError(t, err)
			require.True(t, result.Assigned)
			require.NotNil(t, result.AssignedUserID)
			assert.Equal(t, models.StrategyRoundRobin, result.Strategy)
			assignees = append(assignees, *result.AssignedUserID)
		}

		assert.Equal(t, []uint{m1.ID, m2.ID, m1.ID}, assignees)

		reloaded, err := flow.ruleRepo.ByID(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, reloaded.RRState)
	})

	t.Run("assignment writes lead fields and an audit event", func(t *testing.T) {
		tenant, m1, _ := setup(t)
		rule, err := fixtures.CreateTestRule(tenant.ID, "catch-all", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		require.NotNil(t, result.RuleID)
		assert.Equal(t, rule.ID, *result.RuleID)

		reloaded, err := flow.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.AssignedUserID)
		assert.Equal(t, m1.ID, *reloaded.AssignedUserID)
		assert.NotNil(t, reloaded.AssignedAt)
		assert.NotNil(t, reloaded.FirstAssignedAt)

		events, err := flow.leadEventRepo.ListByLead(ctx, lead.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, models.LeadEventAssigned, events[0].Type)
		assert.Nil(t, events[0].ActorUserID)
	})

	t.Run("fixed user outside the roster falls through to the next rule", func(t *testing.T) {
		tenant, m1, _ := setup(t)

		outsider, err := fixtures.CreateTestUser("Outsider", false)
		require.NoError(t, err)

		fixedRule, err := fixtures.CreateTestRule(tenant.ID, "fixed", 0, models.StrategyFixedUser)
		require.NoError(t, err)
		fixedRule.FixedUserID = &outsider.ID
		require.NoError(t, testDB.DB.Save(fixedRule).Error)

		fallback, err := fixtures.CreateTestRule(tenant.ID, "fallback", 10, models.StrategyRoundRobin)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		require.NotNil(t, result.RuleID)
		assert.Equal(t, fallback.ID, *result.RuleID)
		assert.Equal(t, m1.ID, *result.AssignedUserID)
	})

	t.Run("fixed user on the roster wins", func(t *testing.T) {
		tenant, _, m2 := setup(t)

		rule, err := fixtures.CreateTestRule(tenant.ID, "fixed", 0, models.StrategyFixedUser)
		require.NoError(t, err)
		rule.FixedUserID = &m2.ID
		require.NoError(t, testDB.DB.Save(rule).Error)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, m2.ID, *result.AssignedUserID)
	})

	t.Run("least loaded picks the quietest manager", func(t *testing.T) {
		tenant, m1, m2 := setup(t)
		_, err := fixtures.CreateTestRule(tenant.ID, "balance", 0, models.StrategyLeastLoaded)
		require.NoError(t, err)

		// M1 already carries one active lead inside the window.
		busy, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", busy.ID).
			Update("assigned_user_id", m1.ID).Error)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, m2.ID, *result.AssignedUserID)
	})

	t.Run("least loaded tie goes to the first roster member", func(t *testing.T) {
		tenant, m1, _ := setup(t)
		_, err := fixtures.CreateTestRule(tenant.ID, "balance", 0, models.StrategyLeastLoaded)
		require.NoError(t, err)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, m1.ID, *result.AssignedUserID)
	})

	t.Run("least loaded ignores leads outside the window and inactive statuses", func(t *testing.T) {
		tenant, m1, m2 := setup(t)
		_, err := fixtures.CreateTestRule(tenant.ID, "balance", 0, models.StrategyLeastLoaded)
		require.NoError(t, err)

		// M1's history: one active lead created before the window opened and
		// one recent but closed lead. Neither counts toward load.
		stale, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", stale.ID).
			Updates(map[string]any{
				"assigned_user_id": m1.ID,
				"created_at":       now.AddDate(0, 0, -8),
			}).Error)

		closed, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", closed.ID).
			Updates(map[string]any{
				"assigned_user_id": m1.ID,
				"status":           models.LeadStatusDone,
			}).Error)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		// Both managers count as load zero, so the tie goes to M1. If the
		// stale or closed lead were counted, M2 would win instead.
		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, m1.ID, *result.AssignedUserID)

		// With a wider window the stale lead counts again and M2 becomes the
		// quieter manager.
		wide := *flow
		wide.windowDays = 30
		require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).
			Updates(map[string]any{"assigned_user_id": nil, "assigned_at": nil}).Error)

		result, err = wide.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, m2.ID, *result.AssignedUserID)
	})

	t.Run("rules evaluate in priority order with content gates", func(t *testing.T) {
		tenant, _, m2 := setup(t)

		cityRule, err := fixtures.CreateTestRule(tenant.ID, "almaty", 0, models.StrategyFixedUser)
		require.NoError(t, err)
		cityRule.MatchCity = utils.ToPtr("Almaty")
		cityRule.FixedUserID = &m2.ID
		require.NoError(t, testDB.DB.Save(cityRule).Error)

		_, err = fixtures.CreateTestRule(tenant.ID, "catch-all", 10, models.StrategyRoundRobin)
		require.NoError(t, err)

		matching, err := fixtures.CreateTestLead(tenant.ID, "Almaty", "")
		require.NoError(t, err)
		result, err := flow.TryAutoAssign(ctx, matching.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.Equal(t, cityRule.ID, *result.RuleID)
		assert.Equal(t, m2.ID, *result.AssignedUserID)

		other, err := fixtures.CreateTestLead(tenant.ID, "Astana", "")
		require.NoError(t, err)
		result, err = flow.TryAutoAssign(ctx, other.ID, nil)
		require.NoError(t, err)
		require.True(t, result.Assigned)
		assert.NotEqual(t, cityRule.ID, *result.RuleID)
	})

	t.Run("no matching rule leaves the lead unassigned", func(t *testing.T) {
		tenant, _, _ := setup(t)

		offHours, err := fixtures.CreateTestRule(tenant.ID, "night-shift", 0, models.StrategyRoundRobin)
		require.NoError(t, err)
		offHours.TimeFrom = utils.ToPtr(0)
		offHours.TimeTo = utils.ToPtr(1)
		require.NoError(t, testDB.DB.Save(offHours).Error)

		lead, err := fixtures.CreateTestLead(tenant.ID, "", "")
		require.NoError(t, err)

		result, err := flow.TryAutoAssign(ctx, lead.ID, nil)
		require.NoError(t, err)
		assert.False(t, result.Assigned)
		assert.Equal(t, OutcomeNoRuleMatched, result.Outcome)

		reloaded, err := flow.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.AssignedUserID)
	})

	t.Run("missing lead returns lead not found", func(t *testing.T) {
		setup(t)
		_, err := flow.TryAutoAssign(ctx, 999999, nil)
		assert.ErrorIs(t, err, ErrLeadNotFound)
	})
}
