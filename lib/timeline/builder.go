// Package timeline сводит записи журнала, корректировки и решения по согласованиям в одну хронологию.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

// FromEntries: отметка попадает в хронологию по своему времени, корректировка - по времени создания
func FromEntries(entries []dbmodels.LedgerEntry) []Event {
	result := make([]Event, 0, len(entries))
	for _, rec := range entries {
		if rec.IsCorrection() {
			result = append(result, Event{
				Timestamp:   rec.PlacedAt(),
				SourceType:  SourceCorrection,
				SourceID:    rec.ID,
				ActorID:     rec.CreatedBy,
				Description: fmt.Sprintf("Корректировка записи %s: время %s", rec.CorrectsID(), evidencemodels.FormatTime(rec.Timestamp)),
				Payload: Payload{
					Kind: SourceCorrection,
					Correction: &CorrectionRef{
						EntryID:            rec.ID,
						EmployeeID:         rec.EmployeeID,
						CorrectsEntryID:    rec.CorrectsID(),
						CorrectedTimestamp: evidencemodels.FormatTime(rec.Timestamp),
						IntegrityHash:      rec.IntegrityHash,
					},
				},
			})
			continue
		}
		result = append(result, Event{
			Timestamp:   rec.PlacedAt(),
			SourceType:  SourceLedgerEntry,
			SourceID:    rec.ID,
			ActorID:     rec.CreatedBy,
			Description: rec.Kind.ToHuman(),
			Payload: Payload{
				Kind: SourceLedgerEntry,
				Entry: &EntryRef{
					EntryID:       rec.ID,
					EmployeeID:    rec.EmployeeID,
					Kind:          rec.Kind,
					Origin:        rec.Origin,
					IntegrityHash: rec.IntegrityHash,
				},
			},
		})
	}
	return result
}

func FromApprovals(evidence evidencemodels.ApprovalEvidence) ([]Event, error) {
	result := []Event{}
	for _, entity := range evidence.Entities {
		for _, decision := range entity.Decisions {
			decidedAt, err := time.Parse(time.RFC3339Nano, decision.DecidedAt)
			if err != nil {
				return nil, errors.Wrapf(err, "некорректное время решения по %s %s", entity.EntityType, entity.EntityID)
			}
			result = append(result, Event{
				Timestamp:   decidedAt.UTC(),
				SourceType:  SourceApprovalDecision,
				SourceID:    DecisionSourceID(entity.EntityType, entity.EntityID, decision.Seq),
				ActorID:     decision.ActorID,
				Description: fmt.Sprintf("%s: %s (%s)", entity.EntityType.ToHuman(), decision.Action.ToHuman(), decision.ActorName),
				Payload: Payload{
					Kind: SourceApprovalDecision,
					Decision: &DecisionRef{
						EntityType:   entity.EntityType,
						EntityID:     entity.EntityID,
						Seq:          decision.Seq,
						Action:       decision.Action,
						ActorName:    decision.ActorName,
						ActorRemoved: decision.ActorRemoved,
					},
				},
			})
		}
	}
	return result, nil
}

func DecisionSourceID(entityType models.ApprovalEntityType, entityID string, seq int) string {
	return fmt.Sprintf("%s:%s:%04d", entityType, entityID, seq)
}

// Build строит хронологию за полуоткрытый период [From, To)
func Build(entries []dbmodels.LedgerEntry, approvals evidencemodels.ApprovalEvidence, rng models.Range) ([]Event, error) {
	decisions, err := FromApprovals(approvals)
	if err != nil {
		return nil, err
	}
	return Merge(Filter(FromEntries(entries), rng), Filter(decisions, rng)), nil
}

func Filter(events []Event, rng models.Range) []Event {
	result := make([]Event, 0, len(events))
	for _, event := range events {
		if rng.Contains(event.Timestamp) {
			result = append(result, event)
		}
	}
	return result
}

// Merge объединяет хронологии с удалением повторов по (тип источника, идентификатор).
// Результат не зависит от порядка и группировки аргументов.
func Merge(timelines ...[]Event) []Event {
	seen := map[string]bool{}
	result := []Event{}
	for _, list := range timelines {
		for _, event := range list {
			if seen[event.key()] {
				continue
			}
			seen[event.key()] = true
			result = append(result, event)
		}
	}
	Sort(result)
	return result
}

func Sort(events []Event) {
	sort.SliceStable(events, func(a, b int) bool {
		return less(events[a], events[b])
	})
}
