package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

// MinioStore keeps images in an S3-compatible bucket.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	publicBase string
}

var _ domain.ImageStore = (*MinioStore)(nil)

// NewMinio buat koneksi MinIO dan pastikan bucket ada.
// publicBaseURL overrides the URL prefix when the bucket sits behind a CDN.
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool, publicBaseURL string) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", bucket, err)
		}
	}

	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(cli.EndpointURL().String(), "/"), bucket)
	}
	return &MinioStore{client: cli, bucketName: bucket, publicBase: base}, nil
}

func (s *MinioStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newObjectKey(contentType)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// Delete treats a missing object as already deleted.
func (s *MinioStore) Delete(ctx context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	err := s.client.RemoveObject(ctx, s.bucketName, relPath, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("remove object %s: %w", relPath, err)
	}
	return nil
}

func (s *MinioStore) URL(relPath string) string {
	return joinURL(s.publicBase, relPath)
}
