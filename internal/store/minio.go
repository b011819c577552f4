package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// MediaPathPrefix is where objects are served by the backend itself when no
// public MinIO URL is configured.
const MediaPathPrefix = "/media/"

// MinioStore wraps a MinIO client for profile images.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to MinIO and makes sure bucket exists. Uploaded
// objects are addressed as publicURL/bucket/key, or MediaPathPrefix+key when
// publicURL is empty.
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, publicURL string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Upload stores data under key and returns the URL it can be fetched from.
func (s *MinioStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apierrors.StoreUnavailable("upload object", err)
	}
	return s.URL(key), nil
}

// URL returns the address of key.
func (s *MinioStore) URL(key string) string {
	if s.publicURL == "" {
		return MediaPathPrefix + key
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
}

// KeyFromURL reverses URL. ok is false for URLs this store did not issue,
// such as the default avatar.
func (s *MinioStore) KeyFromURL(url string) (key string, ok bool) {
	prefix := MediaPathPrefix
	if s.publicURL != "" {
		prefix = fmt.Sprintf("%s/%s/", s.publicURL, s.bucket)
	}
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// Download retrieves the object bytes and content type.
func (s *MinioStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", apierrors.StoreUnavailable("get object", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", apierrors.NewNotFoundError("Object")
		}
		return nil, "", apierrors.StoreUnavailable("stat object", err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", apierrors.StoreUnavailable("read object", err)
	}
	return data, info.ContentType, nil
}

// Remove deletes an object.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apierrors.StoreUnavailable("remove object", err)
	}
	return nil
}
