package offlinequeueworker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"timeledger-backend/lib/apperrors"
	"timeledger-backend/lib/ledger"
	"timeledger-backend/lib/metrics"
	offlinequeue "timeledger-backend/lib/offline-queue"
	baseworker "timeledger-backend/lib/utils/base-worker"
	"timeledger-backend/lib/utils/helpers"
	"timeledger-backend/models"
	ledgerapimodels "timeledger-backend/models/api/ledger"
)

type Config struct {
	MaxRetries int
	Batch      int
	Interval   time.Duration
}

// Задача воспроизведения отложенных отметок в журнал
func StartWorker(ctx context.Context, queue offlinequeue.Provider, ledgerHandler ledger.Provider, cfg Config) {
	i := newInstance(queue, ledgerHandler, cfg)
	go i.Run(ctx, i.handle)
}

func newInstance(queue offlinequeue.Provider, ledgerHandler ledger.Provider, cfg Config) *impl {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &impl{
		BaseImpl: *baseworker.NewInstance("OfflineReplayWorker", 10*time.Second, cfg.Interval),
		queue:    queue,
		ledger:   ledgerHandler,
		cfg:      cfg,
	}
}

type impl struct {
	baseworker.BaseImpl
	queue  offlinequeue.Provider
	ledger ledger.Provider
	cfg    Config
}

func (i impl) handle(ctx context.Context) {
	logger := i.GetLogger()
	defer i.updateDepth(ctx)
	list, err := i.queue.Pending(ctx, i.cfg.MaxRetries, i.cfg.Batch)
	if err != nil {
		logger.WithError(err).Error("ошибка чтения офлайн-очереди")
		return
	}
	for _, action := range list {
		if helpers.IsContextDone(ctx) {
			return
		}
		actionLogger := logger.
			WithField("queue_id", action.ID).
			WithField("employee_id", action.Payload.EmployeeID).
			WithField("action_type", action.ActionType)
		rest, err := i.replay(ctx, action.Payload)
		if rest != nil {
			// перерыв записан наполовину, остаток ставится отдельной отметкой
			if _, qErr := i.queue.Enqueue(ctx, *rest); qErr != nil {
				actionLogger.WithError(qErr).Error("ошибка постановки остатка перерыва в очередь")
				continue
			}
			err = nil
		}
		if err != nil {
			if errors.Is(err, ledger.ErrStoreUnavailable) {
				// хранилище всё ещё недоступно, остальные отметки ждут следующего запуска
				actionLogger.WithError(err).Warn("журнал недоступен, воспроизведение отложено")
				return
			}
			actionLogger.WithError(err).Error("ошибка воспроизведения отметки")
			if err = i.queue.IncrementRetry(ctx, action.ID); err != nil {
				actionLogger.WithError(err).Error("ошибка обновления счётчика попыток")
			}
			continue
		}
		if err = i.queue.MarkCompleted(ctx, action.ID); err != nil {
			actionLogger.WithError(err).Error("ошибка удаления воспроизведённой отметки")
			continue
		}
		actionLogger.Info("отметка воспроизведена в журнал")
	}
}

// replay добавляет отметку в журнал. Для частично записанного перерыва возвращает
// оставшееся начало работы.
func (i impl) replay(ctx context.Context, payload offlinequeue.Payload) (*offlinequeue.Payload, error) {
	switch {
	case payload.Entry != nil:
		data := *payload.Entry
		data.OrganizationID = payload.OrganizationID
		data.EmployeeID = payload.EmployeeID
		data.Origin = models.EntryOriginOfflineReplayed
		_, err := i.ledger.AppendEntry(ctx, data)
		return nil, err
	case payload.Break != nil:
		data := *payload.Break
		data.OrganizationID = payload.OrganizationID
		data.EmployeeID = payload.EmployeeID
		data.Origin = models.EntryOriginOfflineReplayed
		list, err := i.ledger.AppendBreak(ctx, data)
		if err != nil && len(list) == 1 {
			return &offlinequeue.Payload{
				OrganizationID: payload.OrganizationID,
				EmployeeID:     payload.EmployeeID,
				Entry: &ledgerapimodels.AppendEntryData{
					Kind:      models.EntryKindClockIn,
					Timestamp: data.ResumeAt,
					CreatedBy: data.CreatedBy,
					DeviceID:  data.DeviceID,
				},
			}, err
		}
		return nil, err
	}
	return nil, apperrors.NewValidationError("payload", "пустая отметка")
}

func (i impl) updateDepth(ctx context.Context) {
	count, err := i.queue.Count(context.WithoutCancel(ctx))
	if err != nil {
		i.GetLogger().WithError(err).Warn("ошибка подсчёта офлайн-очереди")
		return
	}
	metrics.OfflineQueueDepth.Set(float64(count))
}
