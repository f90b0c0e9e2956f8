package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client abstracts the S3 operations used by S3Store. *s3.Client satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an *s3.Client with static credentials. A non-empty
// Endpoint switches to path-style addressing for MinIO/R2 style stores.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region: opts.Region,
	}
	if opts.AccessKey != "" {
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     opts.AccessKey,
				SecretAccessKey: opts.SecretKey,
				Source:          "zai-studio-env",
			}, nil
		}))
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

// S3Store implements BlobStore on an S3 bucket. Objects are keyed by locator
// under an optional prefix.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 creates an S3-backed store. Prefix may be empty.
func NewS3(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(loc Locator) string {
	if s.prefix == "" {
		return string(loc)
	}
	return s.prefix + "/" + string(loc)
}

func (s *S3Store) Put(ctx context.Context, blob Blob) (Locator, error) {
	loc := NewLocator()
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(loc)),
		Body:          bytes.NewReader(blob.Data),
		ContentLength: aws.Int64(int64(len(blob.Data))),
	}
	if blob.ContentType != "" {
		input.ContentType = aws.String(blob.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", loc, err)
	}
	return loc, nil
}

func (s *S3Store) Get(ctx context.Context, loc Locator) (Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(loc)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("storage: get %s: %w", loc, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("storage: read %s: %w", loc, err)
	}
	return Blob{ContentType: aws.ToString(out.ContentType), Data: data}, nil
}

// Delete removes the object. DeleteObject already succeeds for missing keys.
func (s *S3Store) Delete(ctx context.Context, loc Locator) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(loc)),
	})
	return err
}

func (s *S3Store) Close() error { return nil }

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ BlobStore = (*S3Store)(nil)
