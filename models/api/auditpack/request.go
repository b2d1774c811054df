package auditpackapimodels

import (
	"time"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

type SubmitData struct {
	OrganizationID    string    `json:"-"`
	EmployeeIDs       []string  `json:"employee_ids"`
	PrimaryEmployeeID string    `json:"primary_employee_id,omitempty"`
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	RequestedBy       string    `json:"requested_by"`
}

type RequestView struct {
	ID                string                 `json:"id"`
	OrganizationID    string                 `json:"organization_id"`
	EmployeeIDs       []string               `json:"employee_ids"`
	PrimaryEmployeeID string                 `json:"primary_employee_id,omitempty"`
	From              time.Time              `json:"from"`
	To                time.Time              `json:"to"`
	RequestedBy       string                 `json:"requested_by"`
	Status            models.AuditPackStatus `json:"status"`
	StatusName        string                 `json:"status_name"`
	Attempt           int                    `json:"attempt"`
	FailureStep       models.AuditPackStep   `json:"failure_step,omitempty"`
	FailureCode       string                 `json:"failure_code,omitempty"`
	FailureReason     string                 `json:"failure_reason,omitempty"`
	Retryable         bool                   `json:"retryable"`
	ArtifactRef       string                 `json:"artifact_ref,omitempty"`
	ArtifactDigest    string                 `json:"artifact_digest,omitempty"`
	Attached          bool                   `json:"attached"`
	CreatedAt         time.Time              `json:"created_at"`
}

func RequestConvert(rec dbmodels.AuditPackRequest, attached bool) RequestView {
	return RequestView{
		ID:                rec.ID,
		OrganizationID:    rec.OrganizationID,
		EmployeeIDs:       rec.EmployeeIDs,
		PrimaryEmployeeID: rec.PrimaryEmployeeID,
		From:              rec.From,
		To:                rec.To,
		RequestedBy:       rec.RequestedBy,
		Status:            rec.Status,
		StatusName:        rec.Status.ToHuman(),
		Attempt:           rec.Attempt,
		FailureStep:       rec.FailureStep,
		FailureCode:       rec.FailureCode,
		FailureReason:     rec.FailureReason,
		Retryable:         rec.Retryable,
		ArtifactRef:       rec.ArtifactRef,
		ArtifactDigest:    rec.ArtifactDigest,
		Attached:          attached,
		CreatedAt:         rec.CreatedAt,
	}
}
