package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/config"
)

// Storage persists uploaded cover images and returns their public URL.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type objectStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewObjectStorage connects to the configured S3-compatible store.
func NewObjectStorage(cfg config.StorageConfig) (Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &objectStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *objectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.WithStack(err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
}
