// Package docstore loads the document corpus from a directory and splits it
// into retrievable chunks. Format support is a loader registry keyed by file
// extension, resolved at construction time: adding a format is a registration,
// not a branch.
package docstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
)

// Loader extracts plain text from one file. A loader failure means the file
// contributes zero chunks; it never aborts the whole load.
type Loader func(path string) (string, error)

// Store owns chunk creation. The index only ever holds keys derived from
// chunks produced here.
type Store struct {
	dir      string
	splitter Splitter
	loaders  map[string]Loader
	logger   *zap.Logger
}

// New creates a Store over the given directory with the default loaders
// (.txt, .md, .markdown, .pdf, .docx) registered.
func New(dir string, splitter Splitter, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		dir:      dir,
		splitter: splitter,
		loaders:  make(map[string]Loader),
		logger:   logger,
	}
	s.Register(".txt", loadPlainText)
	s.Register(".md", loadPlainText)
	s.Register(".markdown", loadPlainText)
	s.Register(".pdf", loadPDF)
	s.Register(".docx", loadDOCX)
	return s
}

// Register binds a loader to a file extension (with leading dot, case-insensitive).
func (s *Store) Register(ext string, l Loader) {
	s.loaders[strings.ToLower(ext)] = l
}

// Load walks the directory and returns every chunk of every readable,
// supported document. A missing directory yields an empty corpus, unreadable
// or malformed files are skipped with a log line.
func (s *Store) Load(ctx context.Context) ([]domain.Chunk, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		s.logger.Info("documents directory does not exist, empty corpus", zap.String("dir", s.dir))
		return nil, nil
	}

	var chunks []domain.Chunk

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		loader, ok := s.loaders[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		text, err := loader(path)
		if err != nil {
			s.logger.Warn("skipping malformed document", zap.String("path", path), zap.Error(err))
			return nil
		}
		if strings.TrimSpace(text) == "" {
			s.logger.Debug("document has no extractable text", zap.String("path", path))
			return nil
		}

		chunks = append(chunks, s.splitter.Split(text, path)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("corpus loaded", zap.String("dir", s.dir), zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func loadPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
