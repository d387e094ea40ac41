package images

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Backend stores variants in an S3-compatible bucket.
type S3Backend struct {
	client *minio.Client
	bucket string
}

func NewS3Backend(ctx context.Context, opts S3Options) (*S3Backend, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", opts.Bucket, err)
		}
		slog.Info("created image bucket", "component", "images", "bucket", opts.Bucket)
	}

	return &S3Backend{client: client, bucket: opts.Bucket}, nil
}

func (b *S3Backend) Put(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "image/webp",
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return fmt.Errorf("uploading variant %s: %w", name, err)
	}
	return nil
}

func (b *S3Backend) Remove(ctx context.Context, name string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("deleting variant %s: %w", name, err)
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("listing variants: %w", object.Err)
		}
		if _, _, ok := ParseVariantName(object.Key); !ok {
			continue
		}
		objects = append(objects, ObjectInfo{Name: object.Key, ModTime: object.LastModified})
	}
	return objects, nil
}

func (b *S3Backend) Ping(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", b.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", b.bucket)
	}
	return nil
}
