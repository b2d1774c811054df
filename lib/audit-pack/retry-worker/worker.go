package auditpackretryworker

import (
	"context"
	"time"

	auditpackhandler "timeledger-backend/lib/audit-pack"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	baseworker "timeledger-backend/lib/utils/base-worker"
	"timeledger-backend/lib/utils/helpers"
)

type Config struct {
	MaxAttempts int
	Batch       int
	Interval    time.Duration
	// StaleAfter - через сколько незавершённая попытка считается потерянной
	StaleAfter time.Duration
}

// Задача повторной постановки неудавшихся запросов, пока не исчерпаны попытки
func StartWorker(ctx context.Context, store auditpackstore.Provider, handler auditpackhandler.Provider, cfg Config) {
	i := newInstance(store, handler, cfg)
	go i.Run(ctx, i.handle)
}

func newInstance(store auditpackstore.Provider, handler auditpackhandler.Provider, cfg Config) *impl {
	if cfg.Batch <= 0 {
		cfg.Batch = 20
	}
	return &impl{
		BaseImpl: *baseworker.NewInstance("AuditPackRetryWorker", 30*time.Second, cfg.Interval),
		store:    store,
		handler:  handler,
		cfg:      cfg,
		now:      time.Now,
	}
}

type impl struct {
	baseworker.BaseImpl
	store   auditpackstore.Provider
	handler auditpackhandler.Provider
	cfg     Config
	now     func() time.Time
}

func (i impl) handle(ctx context.Context) {
	if i.cfg.StaleAfter > 0 {
		i.failStale(ctx)
	}
	i.requeue(ctx)
}

func (i impl) failStale(ctx context.Context) {
	logger := i.GetLogger()
	list, err := i.store.ListStale(ctx, i.now().Add(-i.cfg.StaleAfter), i.cfg.Batch)
	if err != nil {
		logger.WithError(err).Error("ошибка получения зависших запросов")
		return
	}
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			return
		}
		err = i.handler.FailStale(ctx, rec.ID)
		if err != nil {
			logger.WithError(err).WithField("audit_pack_id", rec.ID).Debug("зависший запрос не закрыт")
			continue
		}
		logger.WithField("audit_pack_id", rec.ID).Warn("зависшая попытка закрыта по таймауту")
	}
}

func (i impl) requeue(ctx context.Context) {
	logger := i.GetLogger()
	list, err := i.store.ListRetryable(ctx, i.cfg.MaxAttempts, i.cfg.Batch)
	if err != nil {
		logger.WithError(err).Error("ошибка получения запросов для повтора")
		return
	}
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			return
		}
		_, err = i.handler.Retry(ctx, rec.ID)
		if err != nil {
			logger.
				WithError(err).
				WithField("audit_pack_id", rec.ID).
				Warn("запрос не возвращён в очередь")
			continue
		}
		logger.
			WithField("audit_pack_id", rec.ID).
			WithField("attempt", rec.Attempt).
			Info("запрос возвращён в очередь")
	}
}
