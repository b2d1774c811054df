package initializers

import (
	"time"

	log "github.com/sirupsen/logrus"
	"timeledger-backend/fiberlog"
)

func newJSONFormatter() *log.JSONFormatter {
	return &log.JSONFormatter{
		FieldMap: log.FieldMap{
			log.FieldKeyTime: "@timestamp",
			log.FieldKeyMsg:  "message",
		},
	}
}

func InitLogger(level string) *fiberlog.Config {
	log.SetFormatter(newJSONFormatter())
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	logger := log.New()
	logger.SetFormatter(newJSONFormatter())
	logger.SetLevel(lvl)
	return &fiberlog.Config{
		Logger: logger,
		Tags: []string{
			fiberlog.TagBody,
			fiberlog.TagResBody,
			fiberlog.TagMethod,
			fiberlog.TagPath,
			fiberlog.TagStatus,
			fiberlog.TagLatency,
			fiberlog.TagOrganizationID,
			fiberlog.RequestID,
		},
		SlowThreshold: 3 * time.Second,
	}
}
