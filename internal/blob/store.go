package blob

import (
	"context"
	"fmt"
	"io"

	"document-vault/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Store holds file content behind opaque refs. The rest of the system only
// ever round-trips bytes through a ref; nothing above this package reads them.
type Store interface {
	Put(ctx context.Context, ref string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, ref string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, ref string) error
}

type MinioStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func Connect(endpoint, accessKey, secretKey, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false, // Use true if using HTTPS
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing minio client: %w", err)
	}

	ctx := context.Background()

	// Check if the bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking if bucket exists: %w", err)
	}

	// Create the bucket if it doesn't exist
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("error creating bucket: %w", err)
		}
	}

	logger.L().Info("MinIO client initialized",
		zap.String("endpoint", endpoint),
		zap.String("bucket", bucket),
	)

	return &MinioStore{client: client, bucket: bucket, logger: logger.L()}, nil
}

func (s *MinioStore) Put(ctx context.Context, ref string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, ref, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("failed to upload object", zap.String("ref", ref), zap.Error(err))
		return err
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	object, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// Retrieve metadata for content type
	statInfo, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{})
	if err != nil {
		object.Close()
		return nil, "", err
	}

	return object, statInfo.ContentType, nil
}

func (s *MinioStore) Delete(ctx context.Context, ref string) error {
	return s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{})
}
