package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3SnapshotStore keeps snapshots as objects under a key prefix.
type S3SnapshotStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3SnapshotStore(ctx context.Context, bucket, region, prefix string) (*S3SnapshotStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3SnapshotStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3SnapshotStore) key(name string) string {
	return s.prefix + name
}

// Save buffers the dump and uploads it in one PutObject, which only becomes
// visible once the upload completes.
func (s *S3SnapshotStore) Save(ctx context.Context, name string, write func(io.Writer) error) (SnapshotInfo, error) {
	if err := checkSnapshotName(name); err != nil {
		return SnapshotInfo{}, err
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return SnapshotInfo{}, err
	}

	final := name
	for n := 1; ; n++ {
		exists, err := s.exists(ctx, s.key(final))
		if err != nil {
			return SnapshotInfo{}, err
		}
		if !exists {
			break
		}
		final = suffixed(name, n)
	}

	now := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(final)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/sql"),
		Metadata: map[string]string{
			"upload-id":   uuid.NewString(),
			"upload-time": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}

	return SnapshotInfo{
		Name:      final,
		Size:      int64(buf.Len()),
		CreatedAt: now,
		Location:  "s3://" + s.bucket + "/" + s.key(final),
	}, nil
}

func (s *S3SnapshotStore) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return true, nil
}

func (s *S3SnapshotStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkSnapshotName(name); err != nil {
		return nil, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to retrieve snapshot from S3: %w", err)
	}
	return result.Body, nil
}

func (s *S3SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(strings.TrimPrefix(key, s.prefix))
			if !snapshotNamePattern.MatchString(name) || s.key(name) != key {
				continue
			}
			out = append(out, SnapshotInfo{
				Name:      name,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
				Location:  "s3://" + s.bucket + "/" + key,
			})
		}
	}
	sortSnapshots(out)
	return out, nil
}
