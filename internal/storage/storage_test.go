package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/storage"
)

func TestLocalService_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdf")
	svc, err := storage.NewLocalService(dir)
	require.NoError(t, err)

	loc, err := svc.Save(context.Background(), "1700000000000-abc.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-abc.pdf", filepath.Base(loc))

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestLocalService_SaveStaysInRoot(t *testing.T) {
	dir := t.TempDir()
	svc, err := storage.NewLocalService(dir)
	require.NoError(t, err)

	loc, err := svc.Save(context.Background(), "../../escape.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.pdf"), loc)
}

type fakeUploader struct {
	bucket, key string
	body        []byte
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &manager.UploadOutput{}, nil
}

func TestS3Service_Save(t *testing.T) {
	up := &fakeUploader{}
	svc := storage.NewS3ServiceWithUploader(up, "gate-reports", "/reports/")

	loc, err := svc.Save(context.Background(), "a.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "s3://gate-reports/reports/a.pdf", loc)
	assert.Equal(t, "gate-reports", up.bucket)
	assert.Equal(t, "reports/a.pdf", up.key)
	assert.Equal(t, []byte("pdf"), up.body)
}

func TestS3Service_RequiresBucket(t *testing.T) {
	svc := storage.NewS3ServiceWithUploader(&fakeUploader{}, "", "")
	_, err := svc.Save(context.Background(), "a.pdf", []byte("pdf"))
	assert.Error(t, err)
}
