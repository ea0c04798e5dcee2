package corpus

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageConfig holds the S3-compatible endpoint used for s3:// sources.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewMinIOClient creates the object storage client shared by s3:// sources.
func NewMinIOClient(c StorageConfig) (*minio.Client, error) {
	if c.Endpoint == "" {
		return nil, errors.New("storage endpoint is required for s3:// corpus sources")
	}

	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return client, nil
}

// Object reads a CSV object from S3-compatible storage.
type Object struct {
	client *minio.Client
	bucket string
	key    string
}

// NewObject creates a source for bucket/key.
func NewObject(client *minio.Client, bucket, key string) *Object {
	return &Object{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// Name implements Source. It is the object's base name, so synthesized
// document names match the local-file layout.
func (o *Object) Name() string {
	return path.Base(o.key)
}

// Read implements Source.
func (o *Object) Read(ctx context.Context) (*Table, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, o.classify(err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key or bucket
	if _, err := obj.Stat(); err != nil {
		return nil, o.classify(err)
	}

	return ReadCSV(obj)
}

func (o *Object) classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: s3://%s/%s", ErrSourceMissing, o.bucket, o.key)
	}
	return fmt.Errorf("reading s3://%s/%s: %w", o.bucket, o.key, err)
}
