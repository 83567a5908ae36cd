package blob

import (
	"context"
	"io"
)

// Store holds raw topic PDFs. Keys are per-topic, per-upload
// (topics/<topicId>/<timestamp>-<filename>).
type Store interface {
	Upload(ctx context.Context, bucket string, key string, contentType string, data io.Reader) error
	Download(ctx context.Context, bucket string, key string) ([]byte, error)
}
