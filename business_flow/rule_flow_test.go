package businessflow

import (
	"testing"

	"github.com/adilet-dev/leadflow/config"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	testingutil "github.com/adilet-dev/leadflow/testing"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRule(t *testing.T) {
	t.Run("unknown strategy", func(t *testing.T) {
		err := validateRule("banana", nil, nil, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidStrategy)
	})

	t.Run("fixed_user requires a target", func(t *testing.T) {
		err := validateRule(models.StrategyFixedUser, nil, nil, nil, nil)
		assert.ErrorIs(t, err, ErrFixedUserIDRequired)

		err = validateRule(models.StrategyFixedUser, utils.ToPtr(uint(7)), nil, nil, nil)
		assert.NoError(t, err)
	})

	t.Run("hour bounds", func(t *testing.T) {
		err := validateRule(models.StrategyRoundRobin, nil, utils.ToPtr(-1), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTimeWindow)

		err = validateRule(models.StrategyRoundRobin, nil, nil, utils.ToPtr(24), nil)
		assert.ErrorIs(t, err, ErrInvalidTimeWindow)

		err = validateRule(models.StrategyRoundRobin, nil, utils.ToPtr(0), utils.ToPtr(23), nil)
		assert.NoError(t, err)
	})

	t.Run("weekday bounds", func(t *testing.T) {
		err := validateRule(models.StrategyRoundRobin, nil, nil, nil, utils.ToPtr("1,8"))
		assert.ErrorIs(t, err, ErrInvalidDaysOfWeek)

		err = validateRule(models.StrategyRoundRobin, nil, nil, nil, utils.ToPtr("0"))
		assert.ErrorIs(t, err, ErrInvalidDaysOfWeek)

		err = validateRule(models.StrategyRoundRobin, nil, nil, nil, utils.ToPtr("1, 2, 7"))
		assert.NoError(t, err)

		err = validateRule(models.StrategyRoundRobin, nil, nil, nil, utils.ToPtr(""))
		assert.NoError(t, err)
	})
}

func TestRuleFlowCRUD(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)
	ctx := testingutil.CreateTestContext()

	// The rule cache is optional; CRUD must behave the same without Redis.
	flow := &RuleFlowImpl{
		ruleRepo:       repository.NewAutoAssignRuleRepository(testDB.DB),
		userRepo:       repository.NewUserRepository(testDB.DB),
		tenantRepo:     repository.NewTenantRepository(testDB.DB),
		tenantUserRepo: repository.NewTenantUserRepository(testDB.DB),
		rc:             nil,
		cacheConfig:    &config.CacheConfig{},
	}

	setup := func(t *testing.T) (*models.Tenant, *models.User) {
		require.NoError(t, testDB.ClearAllTables())
		admin, err := fixtures.CreateTestUser("Platform Admin", true)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant("acme", nil)
		require.NoError(t, err)
		return tenant, admin
	}

	t.Run("create and list in evaluation order", func(t *testing.T) {
		tenant, admin := setup(t)

		_, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "low priority",
			Priority: 20,
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		first, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "high priority",
			Priority: 5,
			Strategy: "least_loaded",
		}, nil)
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(first.IsActive))

		rules, err := flow.ListRules(ctx, admin.ID, tenant.ID, false)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "high priority", rules[0].Name)
		assert.Equal(t, "low priority", rules[1].Name)
	})

	t.Run("active-only listing", func(t *testing.T) {
		tenant, admin := setup(t)

		active, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "active",
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		_, err = flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "disabled",
			IsActive: utils.ToPtr(false),
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		rules, err := flow.ListRules(ctx, admin.ID, tenant.ID, true)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, active.ID, rules[0].ID)
	})

	t.Run("create rejects invalid input", func(t *testing.T) {
		tenant, admin := setup(t)

		_, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "bad",
			Strategy: "banana",
		}, nil)
		assert.ErrorIs(t, err, ErrInvalidStrategy)

		_, err = flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "bad",
			Strategy: "fixed_user",
		}, nil)
		assert.ErrorIs(t, err, ErrFixedUserIDRequired)
	})

	t.Run("partial update", func(t *testing.T) {
		tenant, admin := setup(t)

		rule, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "original",
			Priority: 10,
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		updated, err := flow.UpdateRule(ctx, admin.ID, rule.ID, &RuleUpdateInput{
			Name:      utils.ToPtr("renamed"),
			MatchCity: utils.ToPtr("Almaty"),
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, "renamed", updated.Name)
		require.NotNil(t, updated.MatchCity)
		assert.Equal(t, "Almaty", *updated.MatchCity)
		// Untouched fields survive.
		assert.Equal(t, 10, updated.Priority)
		assert.Equal(t, models.StrategyRoundRobin, updated.Strategy)
	})

	t.Run("update validates the merged rule", func(t *testing.T) {
		tenant, admin := setup(t)

		rule, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "rotate",
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		_, err = flow.UpdateRule(ctx, admin.ID, rule.ID, &RuleUpdateInput{
			Strategy: utils.ToPtr("fixed_user"),
		}, nil)
		assert.ErrorIs(t, err, ErrFixedUserIDRequired)
	})

	t.Run("delete removes the rule", func(t *testing.T) {
		tenant, admin := setup(t)

		rule, err := flow.CreateRule(ctx, admin.ID, tenant.ID, &RuleInput{
			Name:     "doomed",
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)

		require.NoError(t, flow.DeleteRule(ctx, admin.ID, rule.ID, nil))

		err = flow.DeleteRule(ctx, admin.ID, rule.ID, nil)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, admin := setup(t)

		_, err := flow.UpdateRule(ctx, admin.ID, 999999, &RuleUpdateInput{Name: utils.ToPtr("x")}, nil)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("non-privileged actor is denied", func(t *testing.T) {
		tenant, _ := setup(t)
		stranger, err := fixtures.CreateTestUser("Stranger", false)
		require.NoError(t, err)

		_, err = flow.ListRules(ctx, stranger.ID, tenant.ID, false)
		assert.ErrorIs(t, err, ErrTenantAccessDenied)

		_, err = flow.CreateRule(ctx, stranger.ID, tenant.ID, &RuleInput{
			Name:     "nope",
			Strategy: "round_robin",
		}, nil)
		assert.ErrorIs(t, err, ErrTenantAccessDenied)
	})

	t.Run("default owner manages rules", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())
		owner, err := fixtures.CreateTestUser("Owner", false)
		require.NoError(t, err)
		tenant, err := fixtures.CreateTestTenant("owned", &owner.ID)
		require.NoError(t, err)

		rule, err := flow.CreateRule(ctx, owner.ID, tenant.ID, &RuleInput{
			Name:     "owner rule",
			Strategy: "round_robin",
		}, nil)
		require.NoError(t, err)
		assert.NotZero(t, rule.ID)
	})
}
