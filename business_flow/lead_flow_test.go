package businessflow

import (
	"encoding/json"
	"testing"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	testingutil "github.com/adilet-dev/leadflow/testing"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestLead(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)
	ctx := testingutil.CreateTestContext()

	newLeadFlow := func() *LeadFlowImpl {
		return &LeadFlowImpl{
			leadRepo:       repository.NewLeadRepository(testDB.DB),
			userRepo:       repository.NewUserRepository(testDB.DB),
			tenantRepo:     repository.NewTenantRepository(testDB.DB),
			tenantUserRepo: repository.NewTenantUserRepository(testDB.DB),
			leadEventRepo:  repository.NewLeadEventRepository(testDB.DB),
			autoAssignFlow: newAutoAssignFlowForTest(testDB, utils.UTCNow()),
		}
	}

	t.Run("creates the lead and reports the routing outcome", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		_, err := fixtures.CreateTestRule(scene.tenant.ID, "catch-all", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		flow := newLeadFlow()
		lead, result, err := flow.CreateTestLead(ctx, scene.admin.ID, scene.tenant.ID, &TestLeadInput{
			Phone:   utils.ToPtr("+77071234567"),
			City:    utils.ToPtr("Almaty"),
			Summary: utils.ToPtr("checking the rules"),
		}, nil)
		require.NoError(t, err)

		require.NotNil(t, lead)
		assert.Equal(t, models.LeadStatusNew, lead.Status)
		require.NotNil(t, lead.Source)
		assert.Equal(t, "test", *lead.Source)

		require.NotNil(t, result)
		assert.True(t, result.Assigned)
		assert.Equal(t, OutcomeAssigned, result.Outcome)
		// The returned lead reflects the assignment that just happened.
		require.NotNil(t, lead.AssignedUserID)
		assert.Equal(t, *result.AssignedUserID, *lead.AssignedUserID)
	})

	t.Run("summary feeds match_contains", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)

		rule, err := fixtures.CreateTestRule(scene.tenant.ID, "mortgage", 0, models.StrategyFixedUser)
		require.NoError(t, err)
		rule.MatchContains = utils.ToPtr("mortgage")
		rule.FixedUserID = &scene.m2.ID
		require.NoError(t, testDB.DB.Save(rule).Error)

		flow := newLeadFlow()
		_, result, err := flow.CreateTestLead(ctx, scene.admin.ID, scene.tenant.ID, &TestLeadInput{
			Phone:   utils.ToPtr("+77071234567"),
			Summary: utils.ToPtr("asking about Mortgage options"),
		}, nil)
		require.NoError(t, err)

		require.True(t, result.Assigned)
		assert.Equal(t, scene.m2.ID, *result.AssignedUserID)
	})

	t.Run("no rules leaves the lead unrouted", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)

		flow := newLeadFlow()
		lead, result, err := flow.CreateTestLead(ctx, scene.admin.ID, scene.tenant.ID, &TestLeadInput{
			Source: utils.ToPtr("smoke"),
		}, nil)
		require.NoError(t, err)

		assert.False(t, result.Assigned)
		assert.Equal(t, OutcomeNoRuleMatched, result.Outcome)
		assert.Nil(t, lead.AssignedUserID)
		require.NotNil(t, lead.Source)
		assert.Equal(t, "smoke", *lead.Source)
	})

	t.Run("manager actor is denied", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)

		flow := newLeadFlow()
		_, _, err := flow.CreateTestLead(ctx, scene.m1.ID, scene.tenant.ID, &TestLeadInput{}, nil)
		assert.ErrorIs(t, err, ErrTenantAccessDenied)
	})
}

func TestListLeadEvents(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)
	ctx := testingutil.CreateTestContext()

	manualFlow := newManualAssignFlowForTest(testDB, utils.UTCNow())
	flow := &LeadFlowImpl{
		leadRepo:       repository.NewLeadRepository(testDB.DB),
		userRepo:       repository.NewUserRepository(testDB.DB),
		tenantRepo:     repository.NewTenantRepository(testDB.DB),
		tenantUserRepo: repository.NewTenantUserRepository(testDB.DB),
		leadEventRepo:  repository.NewLeadEventRepository(testDB.DB),
		autoAssignFlow: newAutoAssignFlowForTest(testDB, utils.UTCNow()),
	}

	t.Run("returns the audit trail newest first", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		lead, err := fixtures.CreateTestLead(scene.tenant.ID, "", "")
		require.NoError(t, err)

		_, err = manualFlow.UpdateLeadAssignment(ctx, scene.admin.ID, lead.ID, &scene.m1.ID, nil, nil)
		require.NoError(t, err)
		_, err = manualFlow.UpdateLeadAssignment(ctx, scene.admin.ID, lead.ID, nil, nil, nil)
		require.NoError(t, err)

		events, err := flow.ListLeadEvents(ctx, scene.admin.ID, lead.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.LeadEventUnassigned, events[0].Type)
		assert.Equal(t, models.LeadEventAssigned, events[1].Type)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
		assert.EqualValues(t, scene.m1.ID, payload["assigned_to_user_id"])
		assert.Equal(t, "manual", payload["source"])
	})

	t.Run("missing lead", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		_, err := flow.ListLeadEvents(ctx, scene.admin.ID, 999999)
		assert.ErrorIs(t, err, ErrLeadNotFound)
	})

	t.Run("actor without tenant access is denied", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		lead, err := fixtures.CreateTestLead(scene.tenant.ID, "", "")
		require.NoError(t, err)

		_, err = flow.ListLeadEvents(ctx, scene.m1.ID, lead.ID)
		assert.ErrorIs(t, err, ErrTenantAccessDenied)
	})
}
