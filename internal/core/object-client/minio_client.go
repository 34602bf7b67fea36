package objectclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
)

// MinioClient talks to a self-hosted S3 compatible store.
type MinioClient struct {
	client   *minio.Client
	endpoint string
	secure   bool
}

func NewMinioClient(ctx context.Context, cfg *config.Config) (*MinioClient, error) {
	c, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		Secure: cfg.MinioSecure,
		Region: cfg.AwsRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.ListBuckets(pingCtx); err != nil {
		return nil, fmt.Errorf("minio health check: %w", err)
	}

	for _, bucket := range []string{cfg.DocumentsBucket, cfg.LogosBucket} {
		if err := ensureBucket(ctx, c, bucket, cfg.AwsRegion); err != nil {
			return nil, err
		}
	}

	logger.L().WithField("endpoint", cfg.MinioEndpoint).Info("minio client ready")
	return &MinioClient{client: c, endpoint: cfg.MinioEndpoint, secure: cfg.MinioSecure}, nil
}

func ensureBucket(ctx context.Context, c *minio.Client, bucket, region string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (c *MinioClient) UploadFile(ctx context.Context, bucket, key string, data io.Reader, size int64, contentType string) (string, error) {
	if size <= 0 {
		size = -1
	}
	_, err := c.client.PutObject(ctx, bucket, key, data, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio upload %s/%s: %w: %v", bucket, key, core.ErrStorage, err)
	}

	scheme := "http"
	if c.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, bucket, key), nil
}

func (c *MinioClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s/%s: %w: %v", bucket, key, core.ErrStorage, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("minio read %s/%s: %w: %v", bucket, key, core.ErrStorage, err)
	}
	return body, nil
}

func (c *MinioClient) DeleteFile(ctx context.Context, bucket, key string) error {
	if err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete %s/%s: %w: %v", bucket, key, core.ErrStorage, err)
	}
	return nil
}
