// Package storage persists each run's recommendation list to an object
// store as a split-orient JSON table, the record layout downstream consumers
// already read: {"columns": [...], "index": [...], "data": [[...], ...]}.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	"github.com/icco/vodrec/lib/types"
	"google.golang.org/api/option"
)

// DefaultObjectName is the fixed object each run overwrites. There is no
// versioning; the sink always holds the latest run's list.
const DefaultObjectName = "recommendation.json"

// SplitDocument is a record-oriented JSON table with explicit column names.
type SplitDocument struct {
	Columns []string `json:"columns"`
	Index   []int    `json:"index"`
	Data    [][]any  `json:"data"`
}

// EncodeRecommendations serializes a recommendation list as a SplitDocument
// with program_id and pred_rating columns.
func EncodeRecommendations(recs []types.Scored) ([]byte, error) {
	doc := SplitDocument{
		Columns: []string{"program_id", "pred_rating"},
		Index:   make([]int, 0, len(recs)),
		Data:    make([][]any, 0, len(recs)),
	}
	for i, r := range recs {
		doc.Index = append(doc.Index, i)
		doc.Data = append(doc.Data, []any{r.ItemID, r.Score})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendation document: %w", err)
	}
	return data, nil
}

// ObjectStore is the downstream sink: a named object written whole,
// overwritten on each run.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) error
}

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// NewGCSStore opens a client against the given bucket. Credentials come from
// the environment unless overridden via opts.
func NewGCSStore(ctx context.Context, bucket string, logger *slog.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket, logger: logger}, nil
}

// Put writes the object, replacing any previous version.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish upload of %s: %w", name, err)
	}

	s.logger.Debug("Uploaded object",
		slog.String("bucket", s.bucket),
		slog.String("object", name),
		slog.Int("bytes", len(data)))
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// LocalStore writes objects as files under a directory. It exists for local
// development and tests.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a store rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes the object to a file, replacing any previous version.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	path := filepath.Clean(filepath.Join(s.dir, name))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

var (
	_ ObjectStore = (*GCSStore)(nil)
	_ ObjectStore = (*LocalStore)(nil)
)
