package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/adilet-dev/leadflow/app/dto"
	"github.com/adilet-dev/leadflow/models"
	"github.com/adilet-dev/leadflow/repository"
	"github.com/adilet-dev/leadflow/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// importRow is one parsed and normalized row of an import file
type importRow struct {
	Number     int
	Phone      string
	City       string
	Language   string
	ObjectType string
	Summary    string
}

// LeadImportFlow ingests leads from uploaded XLSX/CSV files and runs each
// created lead through the auto-assign engine.
type LeadImportFlow interface {
	ImportLeads(ctx context.Context, actorID uint, tenantID uint, filename string, content []byte, source string, dryRun bool, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error)
}

// LeadImportFlowImpl implements LeadImportFlow
type LeadImportFlowImpl struct {
	leadRepo       repository.LeadRepository
	userRepo       repository.UserRepository
	tenantRepo     repository.TenantRepository
	tenantUserRepo repository.TenantUserRepository
	autoAssignFlow AutoAssignFlow
}

// NewLeadImportFlow creates a new lead import flow
func NewLeadImportFlow(
	leadRepo repository.LeadRepository,
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	tenantUserRepo repository.TenantUserRepository,
	autoAssignFlow AutoAssignFlow,
) LeadImportFlow {
	return &LeadImportFlowImpl{
		leadRepo:       leadRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		tenantUserRepo: tenantUserRepo,
		autoAssignFlow: autoAssignFlow,
	}
}

// ImportLeads parses the uploaded file and either previews it (dry run) or
// creates the leads. Rows without a phone are reported and skipped; a failed
// auto-assign never fails the import.
func (f *LeadImportFlowImpl) ImportLeads(ctx context.Context, actorID uint, tenantID uint, filename string, content []byte, source string, dryRun bool, metadata *ClientMetadata) (*dto.ImportLeadsResponse, error) {
	actor, err := loadActor(ctx, f.userRepo, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := ensureTenantAccess(ctx, f.tenantRepo, f.tenantUserRepo, actor, tenantID); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrImportFileEmpty
	}

	var rows []importRow
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		rows, err = parseXLSX(content)
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		rows, err = parseCSV(content)
	default:
		return nil, ErrImportFileUnsupported
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportLeadsResponse{DryRun: dryRun, TotalRows: len(rows)}

	if dryRun {
		for _, row := range rows {
			if len(resp.Preview) >= utils.ImportPreviewLimit {
				break
			}
			resp.Preview = append(resp.Preview, toPreviewRow(row))
		}
		for _, row := range rows {
			if row.Phone == "" {
				resp.Failed++
			}
		}
		return resp, nil
	}

	if source == "" {
		source = "import"
	}

	for _, row := range rows {
		if row.Phone == "" {
			resp.Failed++
			continue
		}

		lead := &models.Lead{
			UUID:       uuid.New(),
			TenantID:   &tenantID,
			Status:     models.LeadStatusNew,
			Source:     &source,
			Phone:      optional(row.Phone),
			City:       optional(row.City),
			Language:   optional(row.Language),
			ObjectType: optional(row.ObjectType),
			Summary:    optional(row.Summary),
			CreatedAt:  utils.UTCNow(),
			UpdatedAt:  utils.UTCNow(),
		}
		if err := f.leadRepo.Save(ctx, lead); err != nil {
			resp.Failed++
			continue
		}
		resp.Created++

		if result, err := f.autoAssignFlow.TryAutoAssign(ctx, lead.ID, nil); err == nil && result.Assigned {
			resp.AutoAssigned++
		}
	}

	logAudit("leads_imported", actor.ID, metadata)
	return resp, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toPreviewRow(row importRow) dto.ImportLeadRow {
	out := dto.ImportLeadRow{
		RowNumber:  row.Number,
		Phone:      optional(row.Phone),
		City:       optional(row.City),
		Language:   optional(row.Language),
		ObjectType: optional(row.ObjectType),
		Summary:    optional(row.Summary),
	}
	if row.Phone == "" {
		out.Error = "missing phone"
	}
	return out
}

// normalizeHeader maps a column header to a lead field name
func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func rowFromRecord(headers []string, record []string, number int) importRow {
	row := importRow{Number: number}
	for i, h := range headers {
		if i >= len(record) {
			break
		}
		val := strings.TrimSpace(record[i])
		if val == "" {
			continue
		}
		switch h {
		case "phone":
			row.Phone = val
		case "city":
			row.City = val
		case "language":
			row.Language = val
		case "object_type":
			row.ObjectType = val
		case "summary":
			row.Summary = val
		}
	}
	return row
}

// parseCSV reads a header row plus data rows
func parseCSV(content []byte) ([]importRow, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, ErrImportFileEmpty
	}
	headers := make([]string, len(headerRecord))
	for i, h := range headerRecord {
		headers[i] = normalizeHeader(h)
	}
	if !containsHeader(headers, "phone") {
		return nil, ErrImportColumnMissing
	}

	var rows []importRow
	for number := 2; ; number++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV row %d: %w", number, err)
		}
		rows = append(rows, rowFromRecord(headers, record, number))
	}
	return rows, nil
}

// parseXLSX reads the first sheet, treating the first row as headers
func parseXLSX(content []byte) ([]importRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportFileEmpty
	}
	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrImportFileEmpty
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
	}
	if !containsHeader(headers, "phone") {
		return nil, ErrImportColumnMissing
	}

	var rows []importRow
	for i, record := range records[1:] {
		rows = append(rows, rowFromRecord(headers, record, i+2))
	}
	return rows, nil
}

func containsHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}
