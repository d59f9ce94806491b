package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore keeps blobs as objects in a Cloud Storage bucket and maps generations onto
// GCS object generations, so conditional writes use GenerationMatch / DoesNotExist.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Read(ctx context.Context, key string) (*Object, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to open gs://%s/%s: %w", s.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read gs://%s/%s: %w", s.bucket, key, err)
	}
	return &Object{Data: data, Generation: r.Attrs.Generation}, nil
}

func (s *GCSStore) Write(ctx context.Context, key string, data []byte, ifGeneration int64) (int64, error) {
	cond := storage.Conditions{GenerationMatch: ifGeneration}
	if ifGeneration == 0 {
		cond = storage.Conditions{DoesNotExist: true}
	}

	w := s.client.Bucket(s.bucket).Object(key).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("unable to write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return 0, ErrPreconditionFailed
		}
		return 0, fmt.Errorf("unable to commit gs://%s/%s: %w", s.bucket, key, err)
	}
	return w.Attrs().Generation, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
