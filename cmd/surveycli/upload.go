package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ruslano69/surveydash/pkg/loader"
)

// uploadS3 puts an export at c.URL using the dataset's S3 settings
func uploadS3(ctx context.Context, c loader.S3Config, body io.Reader) error {
	bucket, key, err := c.Location()
	if err != nil {
		return err
	}
	client, err := loader.NewS3Client(ctx, c)
	if err != nil {
		return err
	}
	return putObject(ctx, client, bucket, key, body)
}

func putObject(ctx context.Context, client manager.UploadAPIClient, bucket, key string, body io.Reader) error {
	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
