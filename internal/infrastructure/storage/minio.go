package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/providers"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

const bodyPrefix = "bodies/"

// MinIOClient archives sent message bodies in a private bucket
type MinIOClient struct {
	client *minio.Client
	bucket string
}

var _ providers.BodyArchive = (*MinIOClient)(nil)

// NewMinIOClient creates a new MinIO client and makes sure the bucket exists
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put stores a message body under key and returns the object reference kept
// on the audit trail
func (m *MinIOClient) Put(ctx context.Context, key string, body string) (string, error) {
	objectName := bodyPrefix + key
	_, err := m.client.PutObject(ctx, m.bucket, objectName, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload body: %w", err)
	}
	return fmt.Sprintf("minio://%s/%s", m.bucket, objectName), nil
}

// Get reads back an archived body by the key passed to Put
func (m *MinIOClient) Get(ctx context.Context, key string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, bodyPrefix+key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get body: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

// KeyFromRef recovers the key passed to Put from the reference it returned
func KeyFromRef(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, "minio://")
	if !ok {
		return "", false
	}
	_, objectName, ok := strings.Cut(rest, "/")
	if !ok {
		return "", false
	}
	key, ok := strings.CutPrefix(objectName, bodyPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
