package initializers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"timeledger-backend/config"
	filestorage "timeledger-backend/lib/file-storage"
	s3client "timeledger-backend/s3"
)

func InitS3(ctx context.Context) {
	s3Conf := config.Conf.S3
	minioClient, err := s3client.NewClient(s3client.Options{
		Endpoint:        s3Conf.Endpoint,
		AccessKeyID:     s3Conf.AccessKeyID,
		SecretAccessKey: s3Conf.SecretAccessKey,
		UseSSL:          *s3Conf.UseSSL,
		Region:          s3Conf.Region,
	})
	if err != nil {
		panic("Ошибка инициализации клиента S3: " + err.Error())
	}
	filestorage.NewHandler(minioClient, s3Conf.BucketName, s3Conf.Region)

	// недоступность хранилища при старте не фатальна: выгрузка повторится по политике повторов
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = filestorage.Instance.MakeBucket(checkCtx); err != nil {
		log.WithError(err).Error("S3 недоступно, бакет для пакетов не проверен")
		return
	}
	log.Info("S3 клиент успешно инициализирован")
}
