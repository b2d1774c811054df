package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"timeledger-backend/lib/apperrors"
)

const bundleContentType = "application/zip"

type Provider interface {
	// UploadAuditPack возвращает стабильную ссылку на объект вида s3://bucket/key
	UploadAuditPack(ctx context.Context, organizationID, requestID string, data []byte) (ref string, err error)
	GetAuditPack(ctx context.Context, ref string) ([]byte, error)
	MakeBucket(ctx context.Context) error
}

var Instance Provider

type impl struct {
	s3client *minio.Client
	bucket   string
	region   string
}

func NewHandler(s3client *minio.Client, bucket, region string) {
	Instance = NewInstance(s3client, bucket, region)
}

func NewInstance(s3client *minio.Client, bucket, region string) Provider {
	return &impl{
		s3client: s3client,
		bucket:   bucket,
		region:   region,
	}
}

func AuditPackKey(organizationID, requestID string) string {
	return fmt.Sprintf("audit-packs/%s/%s/bundle.zip", organizationID, requestID)
}

func (i impl) UploadAuditPack(ctx context.Context, organizationID, requestID string, data []byte) (string, error) {
	key := AuditPackKey(organizationID, requestID)
	_, err := i.s3client.PutObject(ctx, i.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: bundleContentType})
	if err != nil {
		return "", &apperrors.StorageError{Op: "put " + key, Cause: err}
	}
	return fmt.Sprintf("s3://%s/%s", i.bucket, key), nil
}

func (i impl) GetAuditPack(ctx context.Context, ref string) ([]byte, error) {
	key := strings.TrimPrefix(ref, fmt.Sprintf("s3://%s/", i.bucket))
	if key == ref {
		return nil, errors.Errorf("ссылка %s не относится к бакету %s", ref, i.bucket)
	}
	obj, err := i.s3client.GetObject(ctx, i.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &apperrors.StorageError{Op: "get " + key, Cause: err}
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "read " + key, Cause: err}
	}
	return data, nil
}

func (i impl) MakeBucket(ctx context.Context) error {
	exists, err := i.s3client.BucketExists(ctx, i.bucket)
	if err != nil {
		return &apperrors.StorageError{Op: "bucket exists", Cause: err}
	}
	if exists {
		return nil
	}
	err = i.s3client.MakeBucket(ctx, i.bucket, minio.MakeBucketOptions{Region: i.region})
	if err != nil {
		return &apperrors.StorageError{Op: "make bucket", Cause: err}
	}
	return nil
}
