package kyc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Storage persists submitted identity documents.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// S3Storage stores documents in an S3 bucket. A custom endpoint supports
// MinIO and LocalStack in development.
type S3Storage struct {
	Client *s3.Client
	Bucket string
}

// NewS3Storage builds an S3-backed storage from the default AWS config chain.
func NewS3Storage(ctx context.Context, bucket, region, endpoint string) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	)
	if err != nil {
		return nil, fmt.Errorf("kyc: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Storage{Client: client, Bucket: bucket}, nil
}

// Put uploads one document under the given object key.
func (s *S3Storage) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("kyc: put object %s: %w", key, err)
	}
	return nil
}
