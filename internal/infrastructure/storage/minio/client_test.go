package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

type fakeObjectAPI struct {
	objects      map[string][]byte
	bucketExists bool
	madeBucket   string
	putErr       error
	getErr       error
	removed      []string
}

func (f *fakeObjectAPI) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeObjectAPI) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.madeBucket = bucket
	return nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _, key string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = content
	return minio.UploadInfo{Key: key}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, _, key string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	content, ok := f.objects[key]
	if !ok {
		// The real client defers the error to the first read.
		return io.NopCloser(&errReader{err: minio.ErrorResponse{Code: "NoSuchKey"}}), nil
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeObjectAPI) PresignedGetObject(_ context.Context, bucket, key string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("https://storage.local/" + bucket + "/" + key + "?ttl=" + expiry.String())
}

func (f *fakeObjectAPI) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, key)
	return nil
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

func testStore(api *fakeObjectAPI) *DocumentStore {
	return &DocumentStore{
		api:    api,
		bucket: "quotes",
		expiry: defaultPresignExpiry,
		logger: logging.NewNopLogger(),
	}
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	api := &fakeObjectAPI{}
	store := testStore(api)
	ctx := context.Background()

	content := []byte("%PDF-1.7 penawaran renovasi")
	require.NoError(t, store.Upload(ctx, "quotes/2026/q-17.pdf", "application/pdf", content))

	got, err := store.Fetch(ctx, "quotes/2026/q-17.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDocumentStoreFetchMissingKey(t *testing.T) {
	store := testStore(&fakeObjectAPI{})
	_, err := store.Fetch(context.Background(), "quotes/nope.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDocumentStoreFetchTransportError(t *testing.T) {
	store := testStore(&fakeObjectAPI{getErr: assert.AnError})
	_, err := store.Fetch(context.Background(), "quotes/q.pdf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}

func TestDocumentStoreUploadError(t *testing.T) {
	store := testStore(&fakeObjectAPI{putErr: assert.AnError})
	err := store.Upload(context.Background(), "quotes/q.xlsx", "application/vnd.ms-excel", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	api := &fakeObjectAPI{bucketExists: false}
	store := testStore(api)

	require.NoError(t, store.ensureBucket(context.Background()))
	assert.Equal(t, "quotes", api.madeBucket)

	// Existing bucket is left alone.
	api = &fakeObjectAPI{bucketExists: true}
	store = testStore(api)
	require.NoError(t, store.ensureBucket(context.Background()))
	assert.Empty(t, api.madeBucket)
}

func TestPresignedGetURL(t *testing.T) {
	store := testStore(&fakeObjectAPI{})
	u, err := store.PresignedGetURL(context.Background(), "quotes/q-17.pdf")
	require.NoError(t, err)
	assert.Contains(t, u, "quotes/q-17.pdf")
}

func TestDelete(t *testing.T) {
	api := &fakeObjectAPI{}
	store := testStore(api)
	require.NoError(t, store.Delete(context.Background(), "quotes/q-17.pdf"))
	assert.Equal(t, []string{"quotes/q-17.pdf"}, api.removed)
}
