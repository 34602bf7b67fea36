package objectclient

import (
	"context"
	"fmt"
	"io"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
)

// NewObjectClient picks the blob backend from BLOB_BACKEND. Missing
// credentials yield a disabled client instead of an error so the rest of the
// service still starts.
func NewObjectClient(ctx context.Context, cfg *config.Config) (core.ObjectClient, error) {
	switch cfg.BlobBackend {
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
			logger.L().Warn("minio credentials not set, blob storage disabled")
			return DisabledClient{}, nil
		}
		return NewMinioClient(ctx, cfg)
	default:
		if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
			logger.L().Warn("AWS credentials not set, blob storage disabled")
			return DisabledClient{}, nil
		}
		return NewS3Client(ctx, cfg)
	}
}

// DisabledClient fails every call with core.ErrConfiguration.
type DisabledClient struct{}

func (DisabledClient) UploadFile(context.Context, string, string, io.Reader, int64, string) (string, error) {
	return "", fmt.Errorf("blob storage: %w", core.ErrConfiguration)
}

func (DisabledClient) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, fmt.Errorf("blob storage: %w", core.ErrConfiguration)
}

func (DisabledClient) DeleteFile(context.Context, string, string) error {
	return fmt.Errorf("blob storage: %w", core.ErrConfiguration)
}
