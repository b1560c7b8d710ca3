package images

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader persists images in an S3 bucket and returns public object URLs.
type S3Uploader struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Uploader(client *s3.Client, bucket, region string) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: bucket,
		region: region,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}
