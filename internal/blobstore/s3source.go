package blobstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Source reads market files out of an S3 bucket, paginating
// ListObjectsV2 and decompressing each GetObject body (grounded on the
// historical-data processor's processS3Path/processS3File pattern).
type S3Source struct {
	client  *s3.Client
	bucket  string
	limiter *TokenBucket
}

// NewS3Source builds an S3Source from the default AWS credential chain.
// limiter may be nil to disable request throttling.
func NewS3Source(ctx context.Context, bucket string, limiter *TokenBucket) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}
	return &S3Source{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		limiter: limiter,
	}, nil
}

// ListMarketFiles paginates every key under prefix and keeps those whose
// final path segment begins with "1.".
func (s *S3Source) ListMarketFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		if err := s.throttle(ctx); err != nil {
			return nil, err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("blobstore: list objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if IsMarketFile(*obj.Key) {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// OpenFile fetches key's object body and decompresses it into lines.
func (s *S3Source) OpenFile(ctx context.Context, key string) ([][]byte, error) {
	if err := s.throttle(ctx); err != nil {
		return nil, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get object %s: %w", key, err)
	}
	defer result.Body.Close()

	return decompressLines(key, result.Body)
}

func (s *S3Source) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
