package auditpackworker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	auditpackhandler "timeledger-backend/lib/audit-pack"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	baseworker "timeledger-backend/lib/utils/base-worker"
	"timeledger-backend/lib/utils/helpers"
	"timeledger-backend/models"
)

type Config struct {
	Workers  int
	Batch    int
	Interval time.Duration
}

// Задача раздачи ожидающих запросов пулу обработчиков.
// Доставка не реже одного раза: повторный захват отсекается переходом pending -> processing.
func StartWorker(ctx context.Context, store auditpackstore.Provider, handler auditpackhandler.Provider, cfg Config) {
	i := newInstance(store, handler, cfg)
	go i.Run(ctx, i.handle)
}

func newInstance(store auditpackstore.Provider, handler auditpackhandler.Provider, cfg Config) *impl {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 20
	}
	return &impl{
		BaseImpl: *baseworker.NewInstance("AuditPackWorker", 5*time.Second, cfg.Interval),
		store:    store,
		handler:  handler,
		cfg:      cfg,
	}
}

type impl struct {
	baseworker.BaseImpl
	store   auditpackstore.Provider
	handler auditpackhandler.Provider
	cfg     Config
}

func (i impl) handle(ctx context.Context) {
	logger := i.GetLogger()
	list, err := i.store.ListByStatus(ctx, models.AuditPackStatusPending, i.cfg.Batch)
	if err != nil {
		logger.WithError(err).Error("ошибка получения ожидающих запросов на аудиторский пакет")
		return
	}
	g := errgroup.Group{}
	g.SetLimit(i.cfg.Workers)
	for _, rec := range list {
		if helpers.IsContextDone(ctx) {
			break
		}
		id := rec.ID
		g.Go(func() error {
			err := i.handler.Process(ctx, id)
			if err == nil || errors.Is(err, auditpackhandler.ErrNotInState) {
				return nil
			}
			logger.
				WithError(err).
				WithField("audit_pack_id", id).
				Warn("попытка формирования аудиторского пакета завершилась ошибкой")
			return nil
		})
	}
	_ = g.Wait()
}
