package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of *s3.Client and *s3.PresignClient this package
// calls, narrowed for testability.
type S3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Presigner is the subset of *s3.PresignClient this package calls.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*s3.PresignedHTTPRequest, error)
}

// S3Store is the production Store, backed by an S3-compatible object
// store (AWS S3, MinIO, etc. — anything aws-sdk-go-v2 can address via a
// custom endpoint).
type S3Store struct {
	client    S3Client
	presigner Presigner
	bucket    string
}

// NewS3Store wraps an existing s3.Client/PresignClient pair. Callers
// construct the client themselves (endpoint/region/credentials).
func NewS3Store(client S3Client, presigner Presigner, bucket string) *S3Store {
	return &S3Store{client: client, presigner: presigner, bucket: bucket}
}

var _ Store = (*S3Store)(nil)

func (s *S3Store) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// Put uploads data under a content-addressed key, mirroring s3.py's
// put_bytes: the first 8 hex characters of the sha256 digest, then the
// filename.
func (s *S3Store) Put(ctx context.Context, data []byte, mime, filename string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("storage: ensure bucket: %w", err)
	}

	key := fmt.Sprintf("%s/%s", HashBytes(data)[:8], filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", key, err)
	}
	return key, nil
}

// Get fetches an object's bytes and content type.
func (s *S3Store) Get(ctx context.Context, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return Object{}, fmt.Errorf("storage: get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, fmt.Errorf("storage: read object %s: %w", key, err)
	}

	mime := ""
	if out.ContentType != nil {
		mime = *out.ContentType
	}
	return Object{Data: data, MIME: mime}, nil
}

// Presign returns a 600-second (10-minute) GET URL, matching s3.py's
// presign default ttl_seconds.
func (s *S3Store) Presign(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = 600 * time.Second
	})
	if err != nil {
		return "", fmt.Errorf("storage: presign object %s: %w", key, err)
	}
	return req.URL, nil
}
