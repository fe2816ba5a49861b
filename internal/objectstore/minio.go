// Package objectstore uploads generated artifacts to S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/easeaico/memorify/internal/apperr"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// Store writes objects to one bucket and hands out presigned URLs.
type Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	const op = "new_object_store"
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, classify(op, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, classify(op, err)
		}
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &Store{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

// Put uploads data under key and returns a presigned download URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	const op = "put_object"
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", classify(op, err)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", classify(op, err)
	}
	return u.String(), nil
}

func classify(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.E(apperr.KindNetwork, op, err)
	}
	switch status := minio.ToErrorResponse(err).StatusCode; {
	case status == http.StatusForbidden:
		return apperr.E(apperr.KindForbidden, op, err)
	case status == http.StatusUnauthorized:
		return apperr.E(apperr.KindAuth, op, err)
	case status == http.StatusNotFound:
		return apperr.E(apperr.KindNotFound, op, err)
	case status >= 500:
		return apperr.E(apperr.KindServer, op, err)
	default:
		return apperr.E(apperr.KindInternal, op, err)
	}
}
