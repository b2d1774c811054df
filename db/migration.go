package db

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	dbmodels "timeledger-backend/models/db"
)

// не более одного активного запроса на область в организации
const activeScopeIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_pack_active_scope
	ON audit_pack_requests (organization_id, scope_hash)
	WHERE status IN ('pending', 'processing')`

func AutoMigrateDB() error {
	DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	log.Info("Запуск миграций")
	list := []struct {
		name  string
		model interface{}
	}{
		{"Employee", &dbmodels.Employee{}},
		{"LedgerEntry", &dbmodels.LedgerEntry{}},
		{"ChainTail", &dbmodels.ChainTail{}},
		{"ApprovalRecord", &dbmodels.ApprovalRecord{}},
		{"ApprovalDecision", &dbmodels.ApprovalDecision{}},
		{"AuditPackRequest", &dbmodels.AuditPackRequest{}},
	}
	for _, item := range list {
		if err := DB.AutoMigrate(item.model); err != nil {
			return errors.Wrapf(err, "ошибка создания структуры %s", item.name)
		}
	}
	if err := DB.Exec(activeScopeIndex).Error; err != nil {
		return errors.Wrap(err, "ошибка создания индекса активных запросов")
	}
	log.Info("Миграция прошла успешно")
	return nil
}
