package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store puts attachments in an S3 bucket under uploads/ and returns the
// public object URL. The bucket is expected to allow public reads on that
// prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Store creates an S3-backed upload store using the default AWS
// credential chain (IAM role in production).
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: bucket, region: region}, nil
}

// Save uploads the attachment and returns its public URL.
func (s *S3Store) Save(ctx context.Context, r io.Reader, originalName string) (string, string, error) {
	clean, err := SanitizeFilename(originalName)
	if err != nil {
		return "", "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", "", err
	}

	key := "uploads/" + storageKey(clean)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(filepath.Ext(clean)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", "", fmt.Errorf("uploading %s: %w", key, err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return url, clean, nil
}
