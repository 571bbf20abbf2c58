// Package media stores source sermon recordings in S3-compatible
// object storage, keyed by document id.
package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignTTL bounds how long a playback URL stays valid.
const PresignTTL = 4 * time.Hour

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store reads and writes sermon recordings.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to object storage and ensures the bucket exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// RecordingInfo describes a stored recording.
type RecordingInfo struct {
	Key         string
	SizeBytes   int64
	ContentType string
	UploadedAt  time.Time
}

func recordingKey(documentID, filename string) string {
	return path.Join("recordings", documentID, path.Base(filename))
}

// PutRecording uploads a recording for a document and returns its
// object key. An existing recording under the same filename is
// replaced.
func (s *Store) PutRecording(ctx context.Context, documentID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := recordingKey(documentID, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put recording %s: %w", key, err)
	}
	return key, nil
}

// GetRecording opens a stored recording for reading. The caller owns
// the returned reader.
func (s *Store) GetRecording(ctx context.Context, key string) (io.ReadCloser, RecordingInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, RecordingInfo{}, fmt.Errorf("get recording %s: %w", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, RecordingInfo{}, fmt.Errorf("stat recording %s: %w", key, err)
	}
	return obj, RecordingInfo{
		Key:         key,
		SizeBytes:   stat.Size,
		ContentType: stat.ContentType,
		UploadedAt:  stat.LastModified,
	}, nil
}

// PresignedURL returns a time-limited playback URL for a recording.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	params := make(url.Values)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, PresignTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign recording %s: %w", key, err)
	}
	return u.String(), nil
}

// DeleteRecordings removes every recording stored for a document.
func (s *Store) DeleteRecordings(ctx context.Context, documentID string) error {
	prefix := path.Join("recordings", documentID) + "/"
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("list recordings for %s: %w", documentID, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("delete recording %s: %w", obj.Key, err)
		}
	}
	return nil
}
