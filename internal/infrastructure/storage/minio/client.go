// Package minio stores quote documents (PDF and Excel uploads) in object
// storage.  The BoQ pipeline fetches documents back by key, and the HTTP
// layer hands out presigned download URLs.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bangunhq/estimator/internal/config"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const defaultPresignExpiry = 15 * time.Minute

// objectAPI abstracts the minio client for tests.  GetObject returns a
// plain ReadCloser rather than *minio.Object so fakes can serve content.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// minioAPI adapts *minio.Client to objectAPI.
type minioAPI struct {
	*minio.Client
}

func (a minioAPI) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucket, key, opts)
}

// DocumentStore keeps uploaded quote documents in a single bucket.
type DocumentStore struct {
	api    objectAPI
	bucket string
	expiry time.Duration
	logger logging.Logger
}

// NewDocumentStore connects to the object store and ensures the bucket
// exists.
func NewDocumentStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*DocumentStore, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create object storage client")
	}

	store := &DocumentStore{
		api:    minioAPI{client},
		bucket: cfg.Bucket,
		expiry: cfg.PresignExpiry,
		logger: log.Named("minio"),
	}
	if store.expiry <= 0 {
		store.expiry = defaultPresignExpiry
	}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *DocumentStore) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket")
	}
	s.logger.Info("bucket created", logging.String("bucket", s.bucket))
	return nil
}

// Upload stores a document and returns its storage key unchanged so callers
// can hand it to the BoQ pipeline.
func (s *DocumentStore) Upload(ctx context.Context, key, contentType string, content []byte) error {
	_, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to store document").
			WithDetail(key)
	}
	s.logger.Debug("document stored",
		logging.String("key", key), logging.Int("bytes", len(content)))
	return nil
}

// Fetch reads a stored document back in full.  Quote documents are small
// (a few MB at most) so buffering in memory is fine.
func (s *DocumentStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open document").
			WithDetail(key)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, errors.New(errors.ErrCodeNotFound, "document not found").
				WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read document").
			WithDetail(key)
	}
	return content, nil
}

// PresignedGetURL returns a time-limited download link for a stored
// document.
func (s *DocumentStore) PresignedGetURL(ctx context.Context, key string) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign document url").
			WithDetail(key)
	}
	return u.String(), nil
}

// Delete removes a stored document.  Used when a job is purged.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to remove document").
			WithDetail(key)
	}
	return nil
}
