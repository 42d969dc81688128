package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/weaveget/weaveget/internal/utils"
)

func parseS3URL(rawURL string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(rawURL, "s3://"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q, expected s3://bucket/key", rawURL)
	}
	return parts[0], parts[1], nil
}

func getS3Client() (*s3.Client, error) {
	profile := os.Getenv("AWS_PROFILE")
	if profile == "" {
		profile = "default"
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithSharedConfigProfile(profile), config.WithRetryMode("adaptive"))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Sink streams the payload into an S3 multipart upload through a pipe, so
// the downloader never buffers the whole object.
type S3Sink struct {
	pw   *io.PipeWriter
	done chan error
}

func NewS3Sink(rawURL string) (*S3Sink, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := getS3Client()
	if err != nil {
		return nil, err
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 2 * utils.DefaultBufferSize
		u.Concurrency = 4
	})
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := uploader.Upload(context.Background(), &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		if err != nil {
			err = fmt.Errorf("error uploading to s3://%s/%s: %v", bucket, key, err)
			pr.CloseWithError(err)
		}
		done <- err
	}()
	return &S3Sink{pw: pw, done: done}, nil
}

func (s *S3Sink) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *S3Sink) Close() error {
	if err := s.pw.Close(); err != nil {
		return err
	}
	return <-s.done
}
