package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/librarease/images/internal/usecase"
)

func NewMinIOStorage(bucket, prefix, endpoint, accessKeyID, secretAccessKey string, secure bool) (*MinIOStorage, error) {
	m, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("filestorage: minio client: %w", err)
	}
	return &MinIOStorage{
		client: m,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// MinIOStorage stores assets as objects under <prefix>/<partition>/<key>.
// Partitions are key prefixes and need no explicit creation.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

func (f *MinIOStorage) MakePartition(_ context.Context, _ string) error {
	return nil
}

// RemovePartition has nothing to remove; a prefix disappears with its last
// object. It reports whether objects are still present.
func (f *MinIOStorage) RemovePartition(ctx context.Context, partition string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:  f.key(partition, ""),
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return obj.Err
		}
		return usecase.ErrPartitionNotEmpty
	}
	return nil
}

func (f *MinIOStorage) Put(ctx context.Context, partition, key string, data []byte) error {
	_, err := f.client.PutObject(ctx, f.bucket, f.key(partition, key), bytes.NewReader(data), int64(len(data)), putOptions())
	return err
}

// putOptions makes the write conditional on the key being absent.
func putOptions() minio.PutObjectOptions {
	opts := minio.PutObjectOptions{
		ContentType:  usecase.CanonicalMediaType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	opts.SetMatchETagExcept("*")
	return opts
}

func (f *MinIOStorage) Get(ctx context.Context, partition, key string) ([]byte, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, f.key(partition, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, f.mapErr(err)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, f.mapErr(err)
	}
	return b, nil
}

func (f *MinIOStorage) Exists(ctx context.Context, partition, key string) (bool, error) {
	_, err := f.client.StatObject(ctx, f.bucket, f.key(partition, key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if err = f.mapErr(err); errors.Is(err, usecase.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Delete stats first because RemoveObject succeeds on missing keys.
func (f *MinIOStorage) Delete(ctx context.Context, partition, key string) error {
	ok, err := f.Exists(ctx, partition, key)
	if err != nil {
		return err
	}
	if !ok {
		return usecase.ErrNotFound
	}
	return f.client.RemoveObject(ctx, f.bucket, f.key(partition, key), minio.RemoveObjectOptions{})
}

func (f *MinIOStorage) Ping(ctx context.Context) error {
	ok, err := f.client.BucketExists(ctx, f.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", f.bucket)
	}
	return nil
}

func (f *MinIOStorage) key(partition, key string) string {
	return path.Join(f.prefix, partition) + "/" + key
}

func (f *MinIOStorage) mapErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return usecase.ErrNotFound
	}
	return err
}
