package initializers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"timeledger-backend/config"
	"timeledger-backend/db"
	"timeledger-backend/fiberlog"
	approvalstore "timeledger-backend/lib/approval/store"
	auditpackhandler "timeledger-backend/lib/audit-pack"
	auditpackretryworker "timeledger-backend/lib/audit-pack/retry-worker"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	auditpackworker "timeledger-backend/lib/audit-pack/worker"
	employeestore "timeledger-backend/lib/employee/store"
	xlsexport "timeledger-backend/lib/export/xls"
	filestorage "timeledger-backend/lib/file-storage"
	"timeledger-backend/lib/ledger"
	ledgerstore "timeledger-backend/lib/ledger/store"
	offlinequeue "timeledger-backend/lib/offline-queue"
	offlinequeueworker "timeledger-backend/lib/offline-queue/replay-worker"
)

var LoggerConfig *fiberlog.Config

func InitAllServices(ctx context.Context) {
	config.InitConfig()
	LoggerConfig = InitLogger(config.Conf.App.LogLevel)
	InitDBConnection()
	InitS3(ctx)
	InitOfflineQueue(ctx)

	ledgerStore := ledgerstore.NewInstance(db.DB)
	auditPackStore := auditpackstore.NewInstance(db.DB)
	ledger.NewHandler(ledgerStore, config.Conf.Ledger.MaxAppendRetries)
	xlsexport.NewHandler()
	auditpackhandler.NewHandler(
		auditPackStore,
		auditpackhandler.NewDataSource(ledgerStore, approvalstore.NewInstance(db.DB), employeestore.NewInstance(db.DB)),
		filestorage.Instance,
		auditpackhandler.Config{
			MaxWindow:      time.Duration(config.Conf.AuditPack.MaxWindowDays) * 24 * time.Hour,
			MaxAttempts:    config.Conf.AuditPack.MaxAttempts,
			JobMaxDuration: config.Conf.AuditPack.JobMaxDuration,
			SubmitLockWait: config.Conf.AuditPack.SubmitLockWait,
		})
	go initWorkers(ctx, auditPackStore)
}

// запускаем с промежутком в 10 сек чтоб размыть нагрузку
func initWorkers(ctx context.Context, auditPackStore auditpackstore.Provider) {
	if *config.Conf.AuditPack.WorkersEnabled {
		// Задача формирования аудиторских пакетов
		auditpackworker.StartWorker(ctx, auditPackStore, auditpackhandler.Instance, auditpackworker.Config{
			Workers:  config.Conf.AuditPack.Workers,
			Batch:    config.Conf.AuditPack.DispatchBatch,
			Interval: config.Conf.AuditPack.DispatchInterval,
		})
		if makeTimeGap(ctx) {
			// Задача повтора неудавшихся и закрытия зависших запросов
			auditpackretryworker.StartWorker(ctx, auditPackStore, auditpackhandler.Instance, auditpackretryworker.Config{
				MaxAttempts: config.Conf.AuditPack.MaxAttempts,
				Batch:       config.Conf.AuditPack.DispatchBatch,
				Interval:    config.Conf.AuditPack.RetryInterval,
				StaleAfter:  config.Conf.AuditPack.StaleAfter,
			})
		}
	}
	if offlinequeue.Instance != nil && makeTimeGap(ctx) {
		// Задача воспроизведения отметок из офлайн-очереди
		offlinequeueworker.StartWorker(ctx, offlinequeue.Instance, ledger.Instance, offlinequeueworker.Config{
			MaxRetries: config.Conf.OfflineQueue.MaxRetries,
			Batch:      config.Conf.OfflineQueue.ReplayBatch,
			Interval:   config.Conf.OfflineQueue.ReplayInterval,
		})
	}
}

func makeTimeGap(ctx context.Context) (canRun bool) {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(10 * time.Second):
		return true
	}
}

func InitOfflineQueue(ctx context.Context) {
	if !*config.Conf.OfflineQueue.Enabled {
		return
	}
	if err := offlinequeue.NewHandler(config.Conf.OfflineQueue.Path); err != nil {
		log.WithError(err).Error("офлайн-очередь отключена")
		return
	}
	go func() {
		<-ctx.Done()
		if err := offlinequeue.Instance.Close(); err != nil {
			log.WithError(err).Warn("ошибка закрытия офлайн-очереди")
		}
	}()
}
