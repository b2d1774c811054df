package config

import (
	"time"

	"github.com/gotify/configor"
)

var Conf *Configuration

type Configuration struct {
	App struct {
		ListenAddr      string        `default:"" env:"APP_HOST"`
		Port            int           `default:"8080"  env:"APP_PORT"`
		LogLevel        string        `default:"info" env:"LOG_LEVEL"`
		ShutdownTimeout time.Duration `default:"10s" env:"APP_SHUTDOWN_TIMEOUT"`
	}
	Database struct {
		Host            string        `default:"127.0.0.1" env:"DB_HOST"`
		Port            string        `default:"5432" env:"DB_PORT"`
		Name            string        `default:"time-ledger" env:"DB_NAME"`
		User            string        `default:"postgres" env:"DB_USER"`
		Password        string        `default:"postgres" env:"DB_PASSWORD"`
		MigrateOnStart  *bool         `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode       *bool         `default:"false" env:"DB_DEBUG_MODE"`
		MaxOpenConns    int           `default:"20" env:"DB_MAX_OPEN_CONNS"`
		MaxIdleConns    int           `default:"5" env:"DB_MAX_IDLE_CONNS"`
		ConnMaxLifetime time.Duration `default:"30m" env:"DB_CONN_MAX_LIFETIME"`
	}
	S3 struct {
		Endpoint        string `default:"127.0.0.1:9000" env:"S3_ENDPOINT"`
		AccessKeyID     string `default:"minioadmin" env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey string `default:"minioadmin" env:"S3_SECRET_ACCESS_KEY"`
		UseSSL          *bool  `default:"false" env:"S3_USE_SSL"`
		BucketName      string `default:"audit-packs" env:"S3_BUCKET_NAME"`
		Region          string `default:"us-east-1" env:"S3_REGION"`
	}
	Ledger struct {
		MaxAppendRetries int `default:"5" env:"LEDGER_MAX_APPEND_RETRIES"`
	}
	AuditPack struct {
		MaxWindowDays    int           `default:"93" env:"AUDIT_PACK_MAX_WINDOW_DAYS"`
		MaxAttempts      int           `default:"3" env:"AUDIT_PACK_MAX_ATTEMPTS"`
		JobMaxDuration   time.Duration `default:"5m" env:"AUDIT_PACK_JOB_MAX_DURATION"`
		SubmitLockWait   time.Duration `default:"10s" env:"AUDIT_PACK_SUBMIT_LOCK_WAIT"`
		Workers          int           `default:"4" env:"AUDIT_PACK_WORKERS"`
		DispatchInterval time.Duration `default:"5s" env:"AUDIT_PACK_DISPATCH_INTERVAL"`
		DispatchBatch    int           `default:"20" env:"AUDIT_PACK_DISPATCH_BATCH"`
		RetryInterval    time.Duration `default:"1m" env:"AUDIT_PACK_RETRY_INTERVAL"`
		StaleAfter       time.Duration `default:"15m" env:"AUDIT_PACK_STALE_AFTER"`
		WorkersEnabled   *bool         `default:"true" env:"AUDIT_PACK_WORKERS_ENABLED"`
	}
	OfflineQueue struct {
		Enabled        *bool         `default:"true" env:"OFFLINE_QUEUE_ENABLED"`
		Path           string        `default:"offline_queue.db" env:"OFFLINE_QUEUE_PATH"`
		MaxRetries     int           `default:"5" env:"OFFLINE_QUEUE_MAX_RETRIES"`
		ReplayInterval time.Duration `default:"30s" env:"OFFLINE_QUEUE_REPLAY_INTERVAL"`
		ReplayBatch    int           `default:"50" env:"OFFLINE_QUEUE_REPLAY_BATCH"`
	}
	Metrics struct {
		Enabled *bool  `default:"true" env:"METRICS_ENABLED"`
		Path    string `default:"/metrics" env:"METRICS_PATH"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

func InitConfig() {
	if Conf != nil {
		return
	}
	conf := new(Configuration)
	err := configor.New(&configor.Config{}).Load(conf, configFiles()...)
	if err != nil {
		panic(err)
	}
	Conf = conf
}
