package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/librarease/images/internal/usecase"
)

// S3Storage stores assets in an S3 bucket under <prefix>/<partition>/<key>.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Storage loads credentials and region from the default AWS chain.
func NewS3Storage(ctx context.Context, bucket, prefix string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("filestorage: aws config: %w", err)
	}
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (f *S3Storage) MakePartition(_ context.Context, _ string) error {
	return nil
}

func (f *S3Storage) RemovePartition(ctx context.Context, partition string) error {
	out, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &f.bucket,
		Prefix:  aws.String(f.key(partition, "")),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return err
	}
	if len(out.Contents) > 0 {
		return usecase.ErrPartitionNotEmpty
	}
	return nil
}

// Put uses a conditional write so an existing key is never replaced.
func (f *S3Storage) Put(ctx context.Context, partition, key string, data []byte) error {
	_, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &f.bucket,
		Key:           aws.String(f.key(partition, key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(usecase.CanonicalMediaType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		IfNoneMatch:   aws.String("*"),
	})
	return err
}

func (f *S3Storage) Get(ctx context.Context, partition, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &f.bucket,
		Key:    aws.String(f.key(partition, key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, usecase.ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (f *S3Storage) Exists(ctx context.Context, partition, key string) (bool, error) {
	_, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &f.bucket,
		Key:    aws.String(f.key(partition, key)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *S3Storage) Delete(ctx context.Context, partition, key string) error {
	ok, err := f.Exists(ctx, partition, key)
	if err != nil {
		return err
	}
	if !ok {
		return usecase.ErrNotFound
	}
	_, err = f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &f.bucket,
		Key:    aws.String(f.key(partition, key)),
	})
	return err
}

func (f *S3Storage) Ping(ctx context.Context) error {
	_, err := f.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &f.bucket})
	return err
}

func (f *S3Storage) key(partition, key string) string {
	return path.Join(f.prefix, partition) + "/" + key
}
