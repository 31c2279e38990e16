package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client BlobStore backed by AWS S3
type S3Client struct {
	client *s3.Client
}

var _ BlobStore = (*S3Client)(nil)

// LoadAWSConfig load aws config from environment / shared profile
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return cfg, nil
}

// NewS3Client create s3 blob store
func NewS3Client(cfg aws.Config) *S3Client {
	return &S3Client{client: s3.NewFromConfig(cfg)}
}

// Download streams the object into localPath
func (s *S3Client) Download(ctx context.Context, bucket, key, localPath string) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 get object %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("s3 copy %s/%s: %w", bucket, key, err)
	}
	return out.Close()
}

// Upload puts localPath as one object; a single PutObject is atomic for readers
func (s *S3Client) Upload(ctx context.Context, bucket, key, localPath, contentType string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("open local file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat local file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return 0, fmt.Errorf("s3 put object %s/%s: %w", bucket, key, err)
	}
	return stat.Size(), nil
}

// Stat head object
func (s *S3Client) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ObjectInfo{}, fmt.Errorf("s3 head object %s/%s: %w: %w", bucket, key, ErrObjectNotFound, err)
		}
		return ObjectInfo{}, fmt.Errorf("s3 head object %s/%s: %w", bucket, key, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// HeadObject 沒有 body，不存在時回 NotFound 而不是 NoSuchKey
func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket)
}
