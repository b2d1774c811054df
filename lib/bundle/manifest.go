package bundle

import (
	"timeledger-backend/models"
	evidencemodels "timeledger-backend/models/evidence"
)

const (
	FormatVersion = 1

	ManifestPath = "manifest.json"
	SummaryPath  = "summary.txt"
	TimelinePath = "timeline.jsonl"
)

type Scope struct {
	OrganizationID    string   `json:"organization_id"`
	EmployeeIDs       []string `json:"employee_ids"`
	PrimaryEmployeeID string   `json:"primary_employee_id,omitempty"`
	From              string   `json:"from"`
	To                string   `json:"to"`
}

type VerdictItem struct {
	EmployeeID string               `json:"employee_id"`
	Status     models.VerdictStatus `json:"status"`
	EntryID    string               `json:"entry_id,omitempty"`
	Checked    int                  `json:"checked"`
}

type ConflictItem struct {
	EmployeeID  string                 `json:"employee_id"`
	RootEntryID string                 `json:"root_entry_id"`
	Reason      models.LineageConflict `json:"reason"`
	EntryIDs    []string               `json:"entry_ids"`
}

type FileItem struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

type Manifest struct {
	FormatVersion    int                  `json:"format_version"`
	GeneratedAt      string               `json:"generated_at"`
	Scope            Scope                `json:"scope"`
	Verdicts         []VerdictItem        `json:"verdicts"`
	LineageConflicts []ConflictItem       `json:"lineage_conflicts"`
	Gaps             []evidencemodels.Gap `json:"gaps"`
	Files            []FileItem           `json:"files"`
}
