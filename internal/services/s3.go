package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"roehampton-community-directory/internal/models"
)

// Snapshot object keys consumed by the static frontend
const (
	latestSnapshotKey = "data/activities/latest.json"
	snapshotKeyPrefix = "data/activities/"
)

// SnapshotStore publishes and retrieves normalized activity snapshots in S3.
// The frontend reads the latest snapshot directly; the directory API uses it
// as a warm start before falling back to a live sheet fetch.
type SnapshotStore struct {
	client     *s3.Client
	bucketName string
	region     string
}

// SnapshotUploadResult describes one completed snapshot upload
type SnapshotUploadResult struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	PublicURL  string    `json:"public_url"`
}

// NewSnapshotStore creates a snapshot store from the default AWS config.
// Bucket name comes from S3_BUCKET_NAME with a sensible default.
func NewSnapshotStore(ctx context.Context) (*SnapshotStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bucketName := os.Getenv("S3_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "roehampton-community-directory-data"
	}

	return &SnapshotStore{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
		region:     cfg.Region,
	}, nil
}

// UploadSnapshot uploads an activity set as JSON under the given key
func (s *SnapshotStore) UploadSnapshot(ctx context.Context, activities []models.Activity, key string) (*SnapshotUploadResult, error) {
	snapshot := models.ActivitySnapshot{
		Metadata:   models.NewSnapshotMetadata(len(activities), "spreadsheet"),
		Activities: activities,
	}

	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot to JSON: %w", err)
	}

	return s.uploadJSON(ctx, jsonData, key)
}

// UploadLatestSnapshot uploads the activity set under the well-known latest key
func (s *SnapshotStore) UploadLatestSnapshot(ctx context.Context, activities []models.Activity) (*SnapshotUploadResult, error) {
	return s.UploadSnapshot(ctx, activities, latestSnapshotKey)
}

// UploadSnapshotWithTimestamp uploads the activity set under a timestamped key
func (s *SnapshotStore) UploadSnapshotWithTimestamp(ctx context.Context, activities []models.Activity) (*SnapshotUploadResult, error) {
	return s.UploadSnapshot(ctx, activities, TimestampedSnapshotKey(time.Now().UTC()))
}

// TimestampedSnapshotKey builds the dated object key for one snapshot
func TimestampedSnapshotKey(ts time.Time) string {
	return fmt.Sprintf("%sactivities-%s.json", snapshotKeyPrefix, ts.Format("2006-01-02-150405"))
}

// DownloadLatestSnapshot retrieves the most recently published snapshot
func (s *SnapshotStore) DownloadLatestSnapshot(ctx context.Context) (*models.ActivitySnapshot, error) {
	return s.DownloadSnapshot(ctx, latestSnapshotKey)
}

// DownloadSnapshot retrieves and decodes one snapshot by key
func (s *SnapshotStore) DownloadSnapshot(ctx context.Context, key string) (*models.ActivitySnapshot, error) {
	data, err := s.downloadJSON(ctx, key)
	if err != nil {
		return nil, err
	}

	var snapshot models.ActivitySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// SnapshotExists reports whether an object exists under the key
func (s *SnapshotStore) SnapshotExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return true, nil
}

// GetPublicURL returns the public HTTPS URL for a snapshot key
func (s *SnapshotStore) GetPublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}

// GetBucketName returns the configured bucket name
func (s *SnapshotStore) GetBucketName() string {
	return s.bucketName
}

func (s *SnapshotStore) uploadJSON(ctx context.Context, data []byte, key string) (*SnapshotUploadResult, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &SnapshotUploadResult{
		Key:        key,
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
		PublicURL:  s.GetPublicURL(key),
	}, nil
}

func (s *SnapshotStore) downloadJSON(ctx context.Context, key string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
