package initializers

import (
	log "github.com/sirupsen/logrus"
	"timeledger-backend/config"
	"timeledger-backend/db"
)

func InitDBConnection() {
	dbConf := config.Conf.Database
	err := db.Connect(dbConf.Host, dbConf.Port, dbConf.Name, dbConf.User, dbConf.Password, *dbConf.DebugMode, *dbConf.MigrateOnStart)
	if err != nil {
		panic(err.Error())
	}
	if err = db.ConfigurePool(dbConf.MaxOpenConns, dbConf.MaxIdleConns, dbConf.ConnMaxLifetime); err != nil {
		log.WithError(err).Warn("не удалось настроить пул соединений с БД")
	}
}
