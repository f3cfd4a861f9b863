package tendercrawler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"
)

// bucketUploader copies exported files to tenders/<site>/<date>/ in a GCS bucket.
type bucketUploader struct {
	client   *storage.Client
	bucket   string
	siteName string
	logger   Logger
}

func newBucketUploader(ctx context.Context, bucket, credentialsPath, siteName string, logger Logger) (*bucketUploader, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketUploader{client: client, bucket: bucket, siteName: siteName, logger: logger}, nil
}

func (u *bucketUploader) objectName(sourceFileName string, now time.Time) string {
	return fmt.Sprintf("tenders/%s/%s/%s", u.siteName, now.Format("2006-01-02"), filepath.Base(sourceFileName))
}

// Upload returns the gs:// url of the stored object.
func (u *bucketUploader) Upload(ctx context.Context, sourceFileName string) (string, error) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	file, err := os.Open(sourceFileName)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", sourceFileName, err)
	}
	defer file.Close()

	destinationFileName := u.objectName(sourceFileName, startTime)
	writer := u.client.Bucket(u.bucket).Object(destinationFileName).NewWriter(ctx)

	contentType, err := detectContentType(sourceFileName)
	if err != nil {
		u.logger.Warn("Failed to detect content type for file %s: %v", sourceFileName, err)
		writer.ContentType = "application/octet-stream"
	} else {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to copy file data to bucket %s: %w", u.bucket, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for file %s: %w", destinationFileName, err)
	}

	u.logger.Info("File %s uploaded to bucket successfully. Time taken: %s", sourceFileName, time.Since(startTime))
	return fmt.Sprintf("gs://%s/%s", u.bucket, destinationFileName), nil
}

func (u *bucketUploader) Close() error {
	return u.client.Close()
}

func detectContentType(filePath string) (string, error) {
	mime, err := mimetype.DetectFile(filePath)
	if err != nil {
		return "", err
	}
	return mime.String(), nil
}
