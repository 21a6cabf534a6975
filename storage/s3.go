package storage

import (
	"bytes"
	"context"
	"fmt"

	"research-hub/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader pushes export artifacts and backups to an S3-compatible
// bucket. It works against any endpoint that speaks the S3 API.
type Uploader struct {
	client *s3.Client
	cfg    *config.Config
}

// NewUploader builds an S3 client from the static credentials in the
// configuration. Returns an error when the endpoint cannot be resolved.
func NewUploader(cfg *config.Config) (*Uploader, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// Upload stores data under the given key and returns the object link.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &u.cfg.S3Bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", u.cfg.S3URL, u.cfg.S3Bucket, key), nil
}
