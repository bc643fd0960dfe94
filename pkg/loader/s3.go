package loader

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ruslano69/surveydash/pkg/xlsx"
)

// s3Source скачивает объект и разбирает его как CSV или XLSX по расширению ключа
type s3Source struct {
	bucket string
	key    string
	sheet  string
	csv    CSVOptions
	client manager.DownloadAPIClient
}

// NewS3Client создает клиента S3 из цепочки учетных данных по умолчанию.
// Ключи из конфигурации имеют приоритет; Endpoint позволяет указать MinIO.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.PathStyle
	}), nil
}

func (s *s3Source) Describe() string {
	return "s3://" + s.bucket + "/" + s.key
}

func (s *s3Source) Read(ctx context.Context) (*Raw, error) {
	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})

	if _, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	body := bytes.NewReader(buf.Bytes())
	key := strings.ToLower(s.key)
	if strings.HasSuffix(key, ".xlsx") || strings.HasSuffix(key, ".xlsm") {
		sheet, err := xlsx.ReadSheet(body, s.sheet)
		if err != nil {
			return nil, err
		}
		return &Raw{Header: sheet.Header, Records: sheet.Records}, nil
	}
	return ReadCSV(body, s.csv)
}
