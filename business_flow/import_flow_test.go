package businessflow

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	testingutil "github.com/adilet-dev/leadflow/testing"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Phone":        "phone",
		"  phone  ":    "phone",
		"Object Type":  "object_type",
		"OBJECT TYPE":  "object_type",
		"object_type":  "object_type",
		"Summary Text": "summary_text",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHeader(in))
	}
}

func TestParseCSV(t *testing.T) {
	t.Run("parses header and rows", func(t *testing.T) {
		content := []byte(strings.Join([]string{
			"Phone,City,Language,Object Type,Summary",
			"+77071234567,Almaty,ru,apartment,needs 2 rooms",
			",Astana,kz,,",
		}, "\n"))

		rows, err := parseCSV(content)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, 2, rows[0].Number)
		assert.Equal(t, "+77071234567", rows[0].Phone)
		assert.Equal(t, "Almaty", rows[0].City)
		assert.Equal(t, "ru", rows[0].Language)
		assert.Equal(t, "apartment", rows[0].ObjectType)
		assert.Equal(t, "needs 2 rooms", rows[0].Summary)

		assert.Equal(t, 3, rows[1].Number)
		assert.Empty(t, rows[1].Phone)
		assert.Equal(t, "Astana", rows[1].City)
	})

	t.Run("missing phone column", func(t *testing.T) {
		content := []byte("City,Language\nAlmaty,ru\n")
		_, err := parseCSV(content)
		assert.ErrorIs(t, err, ErrImportColumnMissing)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := parseCSV(nil)
		assert.ErrorIs(t, err, ErrImportFileEmpty)
	})

	t.Run("short records are tolerated", func(t *testing.T) {
		content := []byte("phone,city\n+77070000001\n")
		rows, err := parseCSV(content)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "+77070000001", rows[0].Phone)
		assert.Empty(t, rows[0].City)
	})
}

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()

	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	t.Run("parses first sheet", func(t *testing.T) {
		content := buildXLSX(t, [][]any{
			{"Phone", "City", "Summary"},
			{"+77071234567", "Almaty", "wants a viewing"},
			{"", "Astana", ""},
		})

		rows, err := parseXLSX(content)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "+77071234567", rows[0].Phone)
		assert.Equal(t, "wants a viewing", rows[0].Summary)
		assert.Empty(t, rows[1].Phone)
		assert.Equal(t, "Astana", rows[1].City)
	})

	t.Run("missing phone column", func(t *testing.T) {
		content := buildXLSX(t, [][]any{
			{"City", "Language"},
			{"Almaty", "ru"},
		})
		_, err := parseXLSX(content)
		assert.ErrorIs(t, err, ErrImportColumnMissing)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := parseXLSX([]byte("not an xlsx"))
		assert.Error(t, err)
	})
}

func TestImportLeads(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)
	ctx := testingutil.CreateTestContext()

	leadRepo := repository.NewLeadRepository(testDB.DB)
	newImportFlow := func(autoAssign AutoAssignFlow) *LeadImportFlowImpl {
		return &LeadImportFlowImpl{
			leadRepo:       leadRepo,
			userRepo:       repository.NewUserRepository(testDB.DB),
			tenantRepo:     repository.NewTenantRepository(testDB.DB),
			tenantUserRepo: repository.NewTenantUserRepository(testDB.DB),
			autoAssignFlow: autoAssign,
		}
	}

	csvContent := func(rows int, withBlankPhone bool) []byte {
		var b strings.Builder
		b.WriteString("phone,city,language\n")
		for i := 0; i < rows; i++ {
			fmt.Fprintf(&b, "+7707%07d,Almaty,ru\n", i)
		}
		if withBlankPhone {
			b.WriteString(",Astana,kz\n")
		}
		return []byte(b.String())
	}

	t.Run("dry run previews without writing", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		resp, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.csv", csvContent(3, true), "", true, nil)
		require.NoError(t, err)

		assert.True(t, resp.DryRun)
		assert.Equal(t, 4, resp.TotalRows)
		assert.Equal(t, 0, resp.Created)
		assert.Equal(t, 1, resp.Failed)
		require.Len(t, resp.Preview, 4)
		assert.Equal(t, "missing phone", resp.Preview[3].Error)

		count, err := leadRepo.Count(ctx, models.LeadFilter{TenantID: &scene.tenant.ID})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("preview is capped", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		resp, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.csv",
			csvContent(utils.ImportPreviewLimit+10, false), "", true, nil)
		require.NoError(t, err)
		assert.Equal(t, utils.ImportPreviewLimit+10, resp.TotalRows)
		assert.Len(t, resp.Preview, utils.ImportPreviewLimit)
	})

	t.Run("commit creates leads and routes them", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		_, err := fixtures.CreateTestRule(scene.tenant.ID, "catch-all", 0, models.StrategyRoundRobin)
		require.NoError(t, err)

		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		resp, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.csv", csvContent(3, true), "", false, nil)
		require.NoError(t, err)

		assert.False(t, resp.DryRun)
		assert.Equal(t, 4, resp.TotalRows)
		assert.Equal(t, 3, resp.Created)
		assert.Equal(t, 1, resp.Failed)
		assert.Equal(t, 3, resp.AutoAssigned)

		created, err := leadRepo.ByFilter(ctx, models.LeadFilter{TenantID: &scene.tenant.ID}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, created, 3)
		for _, lead := range created {
			require.NotNil(t, lead.Source)
			assert.Equal(t, "import", *lead.Source)
			assert.NotNil(t, lead.AssignedUserID)
		}
	})

	t.Run("custom source is stamped on created leads", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		resp, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.csv", csvContent(1, false), "landing", false, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Created)
		assert.Zero(t, resp.AutoAssigned)

		created, err := leadRepo.ByFilter(ctx, models.LeadFilter{TenantID: &scene.tenant.ID}, "", 1, 0)
		require.NoError(t, err)
		require.Len(t, created, 1)
		require.NotNil(t, created[0].Source)
		assert.Equal(t, "landing", *created[0].Source)
	})

	t.Run("xlsx upload", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		content := buildXLSX(t, [][]any{
			{"Phone", "City"},
			{"+77079999999", "Almaty"},
		})

		resp, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "Leads.XLSX", content, "", false, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Created)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		_, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.pdf", []byte("x"), "", false, nil)
		assert.ErrorIs(t, err, ErrImportFileUnsupported)
	})

	t.Run("empty upload", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		_, err := flow.ImportLeads(ctx, scene.admin.ID, scene.tenant.ID, "leads.csv", nil, "", false, nil)
		assert.ErrorIs(t, err, ErrImportFileEmpty)
	})

	t.Run("actor without tenant access is denied", func(t *testing.T) {
		scene := setupManualAssignScene(t, testDB, fixtures)
		flow := newImportFlow(newAutoAssignFlowForTest(testDB, utils.UTCNow()))

		_, err := flow.ImportLeads(ctx, scene.m1.ID, scene.tenant.ID, "leads.csv", csvContent(1, false), "", false, nil)
		assert.ErrorIs(t, err, ErrTenantAccessDenied)
	})
}
