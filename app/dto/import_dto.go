package dto

// ImportLeadRow is one parsed row of an import file
type ImportLeadRow struct {
	RowNumber  int     `json:"row_number" example:"2"`
	Phone      *string `json:"phone,omitempty" example:"+77071234567"`
	City       *string `json:"city,omitempty" example:"Almaty"`
	Language   *string `json:"language,omitempty" example:"ru"`
	ObjectType *string `json:"object_type,omitempty" example:"apartment"`
	Summary    *string `json:"summary,omitempty"`
	Source     *string `json:"source,omitempty" example:"import"`
	Error      string  `json:"error,omitempty"`
}

// ImportLeadsResponse reports the outcome of an import run. In dry-run mode
// Preview carries the first parsed rows and nothing is written.
type ImportLeadsResponse struct {
	DryRun       bool            `json:"dry_run" example:"true"`
	TotalRows    int             `json:"total_rows" example:"120"`
	Created      int             `json:"created" example:"118"`
	AutoAssigned int             `json:"auto_assigned" example:"95"`
	Failed       int             `json:"failed" example:"2"`
	Preview      []ImportLeadRow `json:"preview,omitempty"`
}
