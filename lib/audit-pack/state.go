package auditpackhandler

import (
	"context"

	"github.com/pkg/errors"
	"timeledger-backend/lib/metrics"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// ErrNotInState - запрос уже не в ожидаемом статусе (забран другим обработчиком или изменён)
var ErrNotInState = errors.New("запрос находится в другом статусе")

var transitions = map[models.AuditPackStatus][]models.AuditPackStatus{
	models.AuditPackStatusPending:    {models.AuditPackStatusProcessing},
	models.AuditPackStatusProcessing: {models.AuditPackStatusAssembled, models.AuditPackStatusFailed},
	models.AuditPackStatusAssembled:  {models.AuditPackStatusUploaded, models.AuditPackStatusFailed},
	models.AuditPackStatusFailed:     {models.AuditPackStatusPending},
}

func isAllowedTransition(from, to models.AuditPackStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal - из статуса нет автоматических переходов
func IsTerminal(status models.AuditPackStatus) bool {
	return status == models.AuditPackStatusUploaded || status == models.AuditPackStatusFailed
}

func (i impl) transition(ctx context.Context, id string, from, to models.AuditPackStatus, mutate func(rec *dbmodels.AuditPackRequest)) error {
	if !isAllowedTransition(from, to) {
		return errors.Errorf("недопустимый переход %s -> %s", from, to)
	}
	ok, err := i.store.Transition(ctx, id, from, func(rec *dbmodels.AuditPackRequest) {
		rec.Status = to
		if mutate != nil {
			mutate(rec)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "ошибка смены статуса %s -> %s", from, to)
	}
	if !ok {
		return ErrNotInState
	}
	metrics.AuditPackTransitionsTotal.WithLabelValues(string(to)).Inc()
	i.GetLogger(id).
		WithField("from", from).
		WithField("to", to).
		Info("статус запроса изменён")
	return nil
}
