package models

type AuditPackStatus string

const (
	AuditPackStatusPending    AuditPackStatus = "pending"
	AuditPackStatusProcessing AuditPackStatus = "processing"
	AuditPackStatusAssembled  AuditPackStatus = "assembled"
	AuditPackStatusUploaded   AuditPackStatus = "uploaded"
	AuditPackStatusFailed     AuditPackStatus = "failed"
)

var auditPackStatusHumanName = map[AuditPackStatus]string{
	AuditPackStatusPending:    "Ожидает обработки",
	AuditPackStatusProcessing: "Формируется",
	AuditPackStatusAssembled:  "Собран",
	AuditPackStatusUploaded:   "Выгружен",
	AuditPackStatusFailed:     "Ошибка",
}

func (s AuditPackStatus) ToHuman() string {
	if human, exist := auditPackStatusHumanName[s]; exist {
		return human
	}
	return string(s)
}

// IsActive - запрос ещё не начал или не закончил обработку
func (s AuditPackStatus) IsActive() bool {
	return s == AuditPackStatusPending || s == AuditPackStatusProcessing
}

type AuditPackStep string

const (
	AuditPackStepFetch             AuditPackStep = "fetch"
	AuditPackStepVerifyChain       AuditPackStep = "verify_chain"
	AuditPackStepCorrectionLineage AuditPackStep = "correction_lineage"
	AuditPackStepApprovalEvidence  AuditPackStep = "approval_evidence"
	AuditPackStepTimeline          AuditPackStep = "timeline"
	AuditPackStepAssemble          AuditPackStep = "assemble"
	AuditPackStepUpload            AuditPackStep = "upload"
)
