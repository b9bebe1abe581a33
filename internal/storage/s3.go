package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// S3Config configures the S3 backend. Endpoint allows S3-compatible
// services (MinIO, R2); path-style addressing is used when it is set.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// s3API is the subset of the S3 client used here.
type s3API interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// S3Store implements Store on an S3 bucket; each key is one object.
type S3Store struct {
	s3     s3API
	bucket *string
}

// OpenS3 creates an S3 client session.
func OpenS3(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	region := cfg.Region
	config := aws.NewConfig()
	if cfg.AccessKeyID != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	if cfg.Endpoint != "" {
		config = config.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
		if region == "" {
			region = "default-region"
		}
	}
	if region != "" {
		config = config.WithRegion(region)
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("s3: new aws session: %w", err)
	}

	return &S3Store{
		s3:     s3.New(sess),
		bucket: aws.String(cfg.Bucket),
	}, nil
}

// Put uploads value as the object for key.
func (s *S3Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return domain.ErrStoreWriteFailed.WithDetails(key).Wrap(err)
	}
	return nil
}

// Get downloads the object for key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, domain.ErrStoreNotFound.WithDetails(key).Wrap(err)
		}
		return nil, domain.ErrStoreUnreachable.WithDetails(key).Wrap(err)
	}
	defer out.Body.Close()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.ErrStoreUnreachable.WithDetails(key).Wrap(err)
	}
	return value, nil
}

// Close is a no-op.
func (s *S3Store) Close() error {
	return nil
}
