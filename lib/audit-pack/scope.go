package auditpackhandler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"timeledger-backend/lib/apperrors"
	auditpackapimodels "timeledger-backend/models/api/auditpack"
	evidencemodels "timeledger-backend/models/evidence"
)

type scope struct {
	OrganizationID    string
	EmployeeIDs       []string
	PrimaryEmployeeID string
	From              time.Time
	To                time.Time
}

func (i impl) validateScope(data auditpackapimodels.SubmitData) (scope, error) {
	verr := &apperrors.ValidationError{}
	if data.OrganizationID == "" {
		verr.Items = append(verr.Items, apperrors.ValidationItem{Field: "organization_id", Message: "не указана организация"})
	}
	seen := map[string]bool{}
	ids := []string{}
	for _, id := range data.EmployeeIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		verr.Items = append(verr.Items, apperrors.ValidationItem{Field: "employee_ids", Message: "не указаны сотрудники"})
	}
	if data.From.IsZero() || data.To.IsZero() {
		verr.Items = append(verr.Items, apperrors.ValidationItem{Field: "period", Message: "не указан период"})
	} else if data.To.Before(data.From) {
		verr.Items = append(verr.Items, apperrors.ValidationItem{Field: "period", Message: "дата окончания раньше даты начала"})
	} else if i.cfg.MaxWindow > 0 && data.To.Sub(data.From) > i.cfg.MaxWindow {
		verr.Items = append(verr.Items, apperrors.ValidationItem{
			Field:   "period",
			Message: fmt.Sprintf("период превышает допустимые %d дн.", int(i.cfg.MaxWindow.Hours()/24)),
		})
	}
	if data.PrimaryEmployeeID != "" && !seen[data.PrimaryEmployeeID] {
		verr.Items = append(verr.Items, apperrors.ValidationItem{Field: "primary_employee_id", Message: "основной сотрудник не входит в область выгрузки"})
	}
	if len(verr.Items) > 0 {
		return scope{}, verr
	}
	return scope{
		OrganizationID:    data.OrganizationID,
		EmployeeIDs:       ids,
		PrimaryEmployeeID: data.PrimaryEmployeeID,
		From:              data.From.UTC(),
		To:                data.To.UTC(),
	}, nil
}

// ScopeHash - идентичность области выгрузки для поиска дублирующих запросов
func ScopeHash(organizationID string, employeeIDs []string, primaryEmployeeID string, from, to time.Time) string {
	ids := append([]string{}, employeeIDs...)
	sort.Strings(ids)
	payload := strings.Join([]string{
		organizationID,
		strings.Join(ids, ","),
		primaryEmployeeID,
		evidencemodels.FormatTime(from),
		evidencemodels.FormatTime(to),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
