package approval

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

var requestedAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type lookupMock struct {
	employees map[string]dbmodels.Employee
	err       error
}

func (l lookupMock) GetByID(_ context.Context, id string) (*dbmodels.Employee, error) {
	if l.err != nil {
		return nil, l.err
	}
	rec, ok := l.employees[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func person(id, first, last string) dbmodels.Employee {
	rec := dbmodels.Employee{FirstName: first, LastName: last}
	rec.ID = id
	return rec
}

func newLookup() lookupMock {
	return lookupMock{employees: map[string]dbmodels.Employee{
		"req":  person("req", "Анна", "Смирнова"),
		"mgr":  person("mgr", "Олег", "Петров"),
		"head": person("head", "Ирина", "Козлова"),
	}}
}

func decision(seq int, actor, snapshot string, action models.ApprovalAction, minutes int) dbmodels.ApprovalDecision {
	return dbmodels.ApprovalDecision{
		Seq:               seq,
		ActorID:           actor,
		ActorNameSnapshot: snapshot,
		Action:            action,
		DecidedAt:         requestedAt.Add(time.Duration(minutes) * time.Minute),
	}
}

func record(entityID string, decisions ...dbmodels.ApprovalDecision) dbmodels.ApprovalRecord {
	return dbmodels.ApprovalRecord{
		EntityType:        models.ApprovalEntityAbsenceRequest,
		EntityID:          entityID,
		SubjectEmployeeID: "req",
		RequesterID:       "req",
		RequestedAt:       requestedAt,
		FinalState:        models.ApprovalStateApproved,
		Decisions:         decisions,
	}
}

func TestBuild(t *testing.T) {
	t.Run(`escalated once before approval`, func(t *testing.T) {
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{
			record("abs-1",
				decision(2, "head", "Ирина Козлова", models.ApprovalActionApprove, 120),
				decision(1, "mgr", "Олег Петров", models.ApprovalActionEscalate, 30),
			),
		}, newLookup())
		require.Nil(t, err)
		require.Len(t, evidence.Entities, 1)
		entity := evidence.Entities[0]
		require.Len(t, entity.Decisions, 2)
		require.Equal(t, models.ApprovalActionEscalate, entity.Decisions[0].Action)
		require.Equal(t, models.ApprovalActionApprove, entity.Decisions[1].Action)
		require.Equal(t, models.ApprovalStateApproved, entity.FinalState)
		require.False(t, entity.FinalStateMismatch)
		require.Equal(t, "Анна Смирнова", entity.RequesterName)
		require.Equal(t, "2026-03-02T10:00:00Z", entity.RequestedAt)
		require.Empty(t, evidence.Gaps)
	})

	t.Run(`removed decision actor falls back to the name snapshot`, func(t *testing.T) {
		lookup := newLookup()
		delete(lookup.employees, "mgr")
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{
			record("abs-2", decision(1, "mgr", "Олег Петров", models.ApprovalActionApprove, 10)),
		}, lookup)
		require.Nil(t, err)
		require.Len(t, evidence.Entities, 1)
		require.Equal(t, "Олег Петров", evidence.Entities[0].Decisions[0].ActorName)
		require.True(t, evidence.Entities[0].Decisions[0].ActorRemoved)
	})

	t.Run(`missing requester excludes the entity with a gap`, func(t *testing.T) {
		missing := record("abs-3", decision(1, "mgr", "", models.ApprovalActionApprove, 10))
		missing.RequesterID = "gone"
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{
			missing,
			record("abs-4", decision(1, "mgr", "", models.ApprovalActionApprove, 10)),
		}, newLookup())
		require.Nil(t, err)
		require.Len(t, evidence.Entities, 1)
		require.Equal(t, "abs-4", evidence.Entities[0].EntityID)
		require.Len(t, evidence.Gaps, 1)
		require.Equal(t, "abs-3", evidence.Gaps[0].EntityID)
		require.Equal(t, "DATA_UNAVAILABLE", evidence.Gaps[0].Code)
	})

	t.Run(`removed actor without snapshot is a gap`, func(t *testing.T) {
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{
			record("abs-5", decision(1, "ghost", "", models.ApprovalActionApprove, 10)),
		}, newLookup())
		require.Nil(t, err)
		require.Empty(t, evidence.Entities)
		require.Len(t, evidence.Gaps, 1)
	})

	t.Run(`stored state disagreeing with decisions is flagged`, func(t *testing.T) {
		rec := record("abs-6", decision(1, "mgr", "", models.ApprovalActionReject, 10))
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{rec}, newLookup())
		require.Nil(t, err)
		entity := evidence.Entities[0]
		require.Equal(t, models.ApprovalStateRejected, entity.FinalState)
		require.Equal(t, models.ApprovalStateApproved, entity.StoredFinalState)
		require.True(t, entity.FinalStateMismatch)
	})

	t.Run(`lookup failure aborts the build`, func(t *testing.T) {
		_, err := Build(context.TODO(), []dbmodels.ApprovalRecord{record("abs-7")}, lookupMock{err: errors.New("connection refused")})
		require.NotNil(t, err)
	})

	t.Run(`entities are ordered by type and id`, func(t *testing.T) {
		disputed := record("a-1")
		disputed.EntityType = models.ApprovalEntityDisputedCorrection
		disputed.FinalState = models.ApprovalStatePending
		evidence, err := Build(context.TODO(), []dbmodels.ApprovalRecord{
			disputed,
			record("b-2", decision(1, "mgr", "", models.ApprovalActionApprove, 1)),
			record("a-2", decision(1, "mgr", "", models.ApprovalActionApprove, 1)),
		}, newLookup())
		require.Nil(t, err)
		require.Len(t, evidence.Entities, 3)
		require.Equal(t, "a-2", evidence.Entities[0].EntityID)
		require.Equal(t, "b-2", evidence.Entities[1].EntityID)
		require.Equal(t, models.ApprovalEntityDisputedCorrection, evidence.Entities[2].EntityType)
		require.Equal(t, models.ApprovalStatePending, evidence.Entities[2].FinalState)
	})
}
