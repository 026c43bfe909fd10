// Package archive uploads local image files to an S3 bucket, partitioned by
// the calendar month of the run (<year>/<month>/<filename>).
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// StorageError reports a failed object upload.
type StorageError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("archive s3://%s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// S3API is the subset of the S3 client the Archiver uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads files to one configured bucket.
type Archiver struct {
	client S3API
	bucket string
}

// NewArchiver creates an Archiver for the given bucket.
func NewArchiver(client S3API, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Key returns the date-partitioned object key for a local file:
// <year>/<zero-padded month>/<basename>.
func Key(t time.Time, localPath string) string {
	return fmt.Sprintf("%04d/%02d/%s", t.Year(), int(t.Month()), filepath.Base(localPath))
}

// Archive uploads one local file to the bucket under the given key.
func (a *Archiver) Archive(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &StorageError{Bucket: a.bucket, Key: key, Err: fmt.Errorf("open local file: %w", err)}
	}
	defer file.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return &StorageError{Bucket: a.bucket, Key: key, Err: err}
	}

	log.Info().Str("bucket", a.bucket).Str("key", key).Msg("Image archived")
	return nil
}
