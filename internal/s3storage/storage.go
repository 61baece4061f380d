package s3storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

// Archive keeps a JSON copy of every decided request in an S3 bucket so
// auditors can fetch it independently of the request store.
type Archive struct {
	client *minio.Client
	bucket string
	region string
	ttl    time.Duration
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Archive, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Archive{
		client: client,
		bucket: cfg.ArchiveBucket,
		region: cfg.S3Region,
		ttl:    cfg.ArchiveURLTTL,
	}, nil
}

// EnsureBucket makes sure the archive bucket exists before use.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// ObjectKey is where the record for requestID is archived.
func ObjectKey(requestID string) string {
	return fmt.Sprintf("decisions/%s.json", requestID)
}

// Save uploads the record as JSON, replacing any earlier copy.
func (a *Archive) Save(ctx context.Context, record *model.RequestRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	_, err = a.client.PutObject(ctx, a.bucket, ObjectKey(record.ID), bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload archive object: %w", err)
	}
	return nil
}

// PresignURL returns a signed GET URL for the archived record. It fails if the
// record was never archived.
func (a *Archive) PresignURL(ctx context.Context, requestID string) (string, error) {
	key := ObjectKey(requestID)
	if _, err := a.client.StatObject(ctx, a.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", fmt.Errorf("%s: %w", requestID, ErrNotArchived)
		}
		return "", fmt.Errorf("stat archive object: %w", err)
	}
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign archive object: %w", err)
	}
	return u.String(), nil
}
