package imagehost

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"foodshare/internal/metrics"
	"foodshare/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores images in a bucket that is served publicly at baseURL.
type S3 struct {
	client  PutObjectAPI
	bucket  string
	baseURL string
	metrics *metrics.Metrics
}

func NewS3(client PutObjectAPI, bucket, baseURL string, m *metrics.Metrics) *S3 {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
		metrics: m,
	}
}

func (s *S3) Upload(ctx context.Context, img Image) (string, error) {
	contentType, ext, err := sniff(img)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("foods/%s%s", utils.ShortID(), ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	s.metrics.CountUpload("s3", err)
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}
