// Package approval восстанавливает историю согласований: заявителя, последовательность решений и итоговое состояние.
package approval

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/lib/apperrors"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// IdentityLookup возвращает nil, nil для отсутствующей или удалённой учётной записи
type IdentityLookup interface {
	GetByID(ctx context.Context, id string) (*dbmodels.Employee, error)
}

func Build(ctx context.Context, records []dbmodels.ApprovalRecord, lookup IdentityLookup) (evidencemodels.ApprovalEvidence, error) {
	result := evidencemodels.ApprovalEvidence{
		Entities: []evidencemodels.ApprovalEntityEvidence{},
		Gaps:     []evidencemodels.Gap{},
	}
	for _, rec := range records {
		entity, err := buildEntity(ctx, rec, lookup)
		if err != nil {
			var gapErr *apperrors.DataUnavailableError
			if errors.As(err, &gapErr) {
				log.WithField("entity_type", rec.EntityType).
					WithField("entity_id", rec.EntityID).
					Warn(gapErr.Error())
				result.Gaps = append(result.Gaps, evidencemodels.Gap{
					EntityType: gapErr.EntityType,
					EntityID:   gapErr.EntityID,
					Code:       gapErr.Code(),
					Reason:     gapErr.Reason,
				})
				continue
			}
			return evidencemodels.ApprovalEvidence{}, err
		}
		result.Entities = append(result.Entities, entity)
	}
	sort.Slice(result.Entities, func(a, b int) bool {
		if result.Entities[a].EntityType != result.Entities[b].EntityType {
			return result.Entities[a].EntityType < result.Entities[b].EntityType
		}
		return result.Entities[a].EntityID < result.Entities[b].EntityID
	})
	sort.Slice(result.Gaps, func(a, b int) bool {
		if result.Gaps[a].EntityType != result.Gaps[b].EntityType {
			return result.Gaps[a].EntityType < result.Gaps[b].EntityType
		}
		return result.Gaps[a].EntityID < result.Gaps[b].EntityID
	})
	return result, nil
}

func buildEntity(ctx context.Context, rec dbmodels.ApprovalRecord, lookup IdentityLookup) (evidencemodels.ApprovalEntityEvidence, error) {
	requester, err := lookup.GetByID(ctx, rec.RequesterID)
	if err != nil {
		return evidencemodels.ApprovalEntityEvidence{}, errors.Wrapf(err, "ошибка получения заявителя %s", rec.RequesterID)
	}
	if requester == nil {
		return evidencemodels.ApprovalEntityEvidence{}, &apperrors.DataUnavailableError{
			EntityType: string(rec.EntityType),
			EntityID:   rec.EntityID,
			Reason:     "учётная запись заявителя отсутствует",
		}
	}

	decisions := append([]dbmodels.ApprovalDecision{}, rec.Decisions...)
	sort.SliceStable(decisions, func(a, b int) bool {
		if !decisions[a].DecidedAt.Equal(decisions[b].DecidedAt) {
			return decisions[a].DecidedAt.Before(decisions[b].DecidedAt)
		}
		return decisions[a].Seq < decisions[b].Seq
	})

	entity := evidencemodels.ApprovalEntityEvidence{
		EntityType:        rec.EntityType,
		EntityID:          rec.EntityID,
		SubjectEmployeeID: rec.SubjectEmployeeID,
		RequesterID:       rec.RequesterID,
		RequesterName:     requester.GetFullName(),
		RequestedAt:       evidencemodels.FormatTime(rec.RequestedAt),
		Decisions:         make([]evidencemodels.ApprovalDecision, 0, len(decisions)),
	}
	for _, decision := range decisions {
		item := evidencemodels.ApprovalDecision{
			Seq:       decision.Seq,
			ActorID:   decision.ActorID,
			Action:    decision.Action,
			DecidedAt: evidencemodels.FormatTime(decision.DecidedAt),
			Note:      decision.Note,
		}
		actor, err := lookup.GetByID(ctx, decision.ActorID)
		if err != nil {
			return evidencemodels.ApprovalEntityEvidence{}, errors.Wrapf(err, "ошибка получения согласующего %s", decision.ActorID)
		}
		switch {
		case actor != nil:
			item.ActorName = actor.GetFullName()
		case decision.ActorNameSnapshot != "":
			item.ActorName = decision.ActorNameSnapshot
			item.ActorRemoved = true
		default:
			return evidencemodels.ApprovalEntityEvidence{}, &apperrors.DataUnavailableError{
				EntityType: string(rec.EntityType),
				EntityID:   rec.EntityID,
				Reason:     "согласующий удалён, снимок имени не сохранён: " + decision.ActorID,
			}
		}
		entity.Decisions = append(entity.Decisions, item)
	}
	entity.FinalState = DeriveState(decisions)
	if rec.FinalState != "" && rec.FinalState != entity.FinalState {
		entity.StoredFinalState = rec.FinalState
		entity.FinalStateMismatch = true
	}
	return entity, nil
}

// DeriveState - итог определяется последним окончательным решением; эскалация после него оставляет заявку на эскалации
func DeriveState(ordered []dbmodels.ApprovalDecision) models.ApprovalState {
	if len(ordered) == 0 {
		return models.ApprovalStatePending
	}
	switch ordered[len(ordered)-1].Action {
	case models.ApprovalActionApprove:
		return models.ApprovalStateApproved
	case models.ApprovalActionReject:
		return models.ApprovalStateRejected
	case models.ApprovalActionEscalate:
		return models.ApprovalStateEscalated
	}
	return models.ApprovalStatePending
}
