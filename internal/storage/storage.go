// Package storage provides the MinIO-backed object store used for payment
// proof images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jurisconnect_backend/platform/config"
)

// PresignedURLTTL is the expiration for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// allowedProofTypes are the content types accepted for proof images.
var allowedProofTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// MinIOService stores and serves payment proof objects.
type MinIOService struct {
	client      *minio.Client
	proofBucket string
	maxFileSize int64
}

// New creates the MinIO client and ensures the proof bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	s := &MinIOService{
		client:      client,
		proofBucket: cfg.GetMinioBucketPaymentProofs(),
		maxFileSize: cfg.GetMinIOMaxFileSize(),
	}
	if err := s.ensureBucket(ctx, s.proofBucket); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinIOService) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// UploadProofImage stores a proof image under the diligence's folder and
// returns the object key. The object name is suffixed with a short UUID so
// resubmissions never overwrite each other.
func (s *MinIOService) UploadProofImage(ctx context.Context, diligenceID uuid.UUID, filename, contentType string, content []byte) (string, error) {
	if !allowedProofTypes[contentType] {
		return "", fmt.Errorf("content type %s is not allowed for payment proofs", contentType)
	}
	if s.maxFileSize > 0 && int64(len(content)) > s.maxFileSize {
		return "", fmt.Errorf("proof image exceeds the %d byte limit", s.maxFileSize)
	}

	ext := path.Ext(filename)
	base := strings.TrimSuffix(path.Base(filename), ext)
	key := fmt.Sprintf("%s/%s_%s%s", diligenceID.String(), base, uuid.New().String()[:8], ext)

	_, err := s.client.PutObject(ctx, s.proofBucket, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload proof %s: %w", key, err)
	}
	return key, nil
}

// ProofDownloadURL returns a presigned GET URL for a stored proof.
func (s *MinIOService) ProofDownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)
	u, err := s.client.PresignedGetObject(ctx, s.proofBucket, key, PresignedURLTTL, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign proof %s: %w", key, err)
	}
	return u.String(), expiresAt, nil
}
