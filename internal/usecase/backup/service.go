package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/domain"
	"github.com/simaogato/jellysave-store/internal/usecase/async"
	"github.com/simaogato/jellysave-store/internal/usecase/changes"
)

const filePrefix = "JellySaveBackup-"

// Backup is a written export
type Backup struct {
	Path     string
	Document *Document
}

// Service exports, imports and clears the whole object graph
type Service struct {
	graphs   domain.GraphRepository
	notifier changes.Publisher
	dir      string
	now      func() time.Time
	logger   *zap.Logger

	// serializes whole-graph operations so an import never interleaves with a clear
	mu sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now for generatedAt and file names
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new backup Service writing exports to dir
func NewService(graphs domain.GraphRepository, notifier changes.Publisher, dir string, opts ...Option) *Service {
	if dir == "" {
		dir = os.TempDir()
	}
	s := &Service{
		graphs:   graphs,
		notifier: notifier,
		dir:      dir,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export writes the whole graph to a fresh timestamped file.
// It returns domain.ErrEmptyBackup, and writes nothing, when there are no accounts and no goals.
func (s *Service) Export(ctx context.Context) (*Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Read the graph from one consistent view
	g, err := s.graphs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load store content: %w", err)
	}
	if len(g.Accounts) == 0 && len(g.Goals) == 0 {
		return nil, domain.ErrEmptyBackup
	}

	// 2. Encode
	now := s.now().Truncate(time.Second)
	doc := FromGraph(g, now)
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}

	// 3. Write atomically
	path, err := s.write(data, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup exported",
		zap.String("path", path),
		zap.Int("accounts", len(doc.Accounts)),
		zap.Int("goals", len(doc.Goals)),
		zap.Int("snapshots", len(doc.Snapshots)),
	)
	return &Backup{Path: path, Document: doc}, nil
}

// write stores data under a file name that does not exist yet, going
// through a temporary file so a reader never sees a partial backup
func (s *Service) write(data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".jellysave-export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	path, err := s.freshPath(now)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move export file into place: %w", err)
	}
	return path, nil
}

func (s *Service) freshPath(now time.Time) (string, error) {
	base := filePrefix + now.Format("20060102-150405")
	for i := 0; ; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.json", base, i)
		}
		path := filepath.Join(s.dir, name)
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check export path: %w", err)
		}
	}
}

// Import reads and decodes the backup at path, then restores it.
// A malformed file is reported before the store is touched.
func (s *Service) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return err
	}
	return s.Restore(ctx, doc)
}

// Restore replaces the whole store content with the document in a single
// save, preserving ids. The notifier fires once after the commit.
func (s *Service) Restore(ctx context.Context, doc *Document) error {
	if doc == nil {
		return &domain.DecodeError{Err: errors.New("document is null")}
	}
	g, err := doc.Graph()
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.graphs.Replace(ctx, g)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("backup restore rolled back", zap.Error(err))
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	s.logger.Info("backup restored",
		zap.Int("accounts", len(g.Accounts)),
		zap.Int("goals", len(g.Goals)),
		zap.Int("snapshots", len(g.Snapshots)),
	)
	s.notify(ctx)
	return nil
}

// Clear deletes every row of every entity type in a single save.
// The notifier fires once after the commit.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.graphs.Replace(ctx, domain.Graph{})
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("clear rolled back", zap.Error(err))
		return fmt.Errorf("failed to clear store: %w", err)
	}

	s.logger.Info("store cleared")
	s.notify(ctx)
	return nil
}

func (s *Service) notify(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Notify(ctx)
	}
}

// ExportAsync runs Export on its own goroutine
func (s *Service) ExportAsync(ctx context.Context) <-chan async.Result[*Backup] {
	return async.Go(ctx, s.Export)
}

// ImportAsync runs Import on its own goroutine
func (s *Service) ImportAsync(ctx context.Context, path string) <-chan async.Result[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Import(ctx, path)
	})
}

// ClearAsync runs Clear on its own goroutine
func (s *Service) ClearAsync(ctx context.Context) <-chan async.Result[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Clear(ctx)
	})
}
