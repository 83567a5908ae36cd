package gcsBlob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/akolanti/TopicQA/internal/blob"
	"github.com/akolanti/TopicQA/pkg/logger_i"
)

const (
	uploadTimeout   = 2 * time.Minute
	downloadTimeout = 2 * time.Minute
)

type gcsStore struct {
	client *storage.Client
	logger *logger_i.Logger
}

// NewStore builds the GCS-backed blob store. Credentials come from the
// ambient application-default chain. The client is closed when ctx ends.
func NewStore(ctx context.Context) (blob.Store, error) {
	logger := logger_i.NewLogger("GCS Blob Store")

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		logger.Error("Error creating storage client", "error", err)
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	logger.Info("GCS client created")

	s := &gcsStore{client: client, logger: logger}
	go s.closeOnDone(ctx)
	return s, nil
}

func (s *gcsStore) Upload(ctx context.Context, bucket string, key string, contentType string, data io.Reader) error {
	tctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(tctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", key, err)
	}
	s.logger.Debug("Uploaded object", "bucket", bucket, "key", key)
	return nil
}

func (s *gcsStore) Download(ctx context.Context, bucket string, key string) ([]byte, error) {
	tctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	r, err := s.client.Bucket(bucket).Object(key).NewReader(tctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s does not exist in %s: %w", key, bucket, err)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return raw, nil
}

func (s *gcsStore) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Closing GCS client")
	if err := s.client.Close(); err != nil {
		s.logger.Error("Error closing GCS client", "error", err)
	}
}
