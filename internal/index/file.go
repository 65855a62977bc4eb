package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
)

// artifactVersion guards the on-disk format. A mismatch is treated the same
// as corruption: discard and rebuild.
const artifactVersion = 1

// FileIndex is an embedding index persisted as a self-contained JSON artifact
// under <dir>/<collection>/index.json. The artifact is rebuildable
// byte-for-byte from the corpus; deleting it and rebuilding is always safe.
type FileIndex struct {
	dir        string
	collection string
	loader     CorpusLoader
	embedder   domain.Embedder
	logger     *zap.Logger

	entries []fileEntry
	persist PersistState
}

type fileEntry struct {
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Title   string    `json:"title,omitempty"`
	Seq     int       `json:"seq"`
	Vector  []float32 `json:"vector"`
}

type artifact struct {
	Version    int         `json:"version"`
	Collection string      `json:"collection"`
	Entries    []fileEntry `json:"entries"`
}

// NewFileIndex creates a file-backed vector index.
func NewFileIndex(dir, collection string, loader CorpusLoader, embedder domain.Embedder, logger *zap.Logger) *FileIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileIndex{
		dir:        dir,
		collection: collection,
		loader:     loader,
		embedder:   embedder,
		logger:     logger,
	}
}

func (ix *FileIndex) artifactPath() string {
	return filepath.Join(ix.dir, ix.collection, "index.json")
}

// OpenOrBuild loads the persisted artifact if present and non-empty,
// otherwise builds from the corpus. A corrupt artifact is discarded and
// rebuilt, never surfaced to the caller.
func (ix *FileIndex) OpenOrBuild(ctx context.Context) error {
	if ix.load() {
		ix.logger.Info("index loaded from disk",
			zap.String("collection", ix.collection),
			zap.Int("chunks", len(ix.entries)),
		)
		return nil
	}
	return ix.build(ctx)
}

// load tries the persisted artifact; false means absent, corrupt, or empty.
// Corrupt artifacts are removed so the next save starts clean.
func (ix *FileIndex) load() bool {
	data, err := os.ReadFile(ix.artifactPath())
	if err != nil {
		return false
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil || art.Version != artifactVersion {
		ix.logger.Warn("discarding corrupt index artifact",
			zap.String("path", ix.artifactPath()),
			zap.Error(err),
		)
		_ = os.Remove(ix.artifactPath())
		return false
	}
	if len(art.Entries) == 0 {
		return false
	}

	ix.entries = art.Entries
	ix.persist = PersistSaved
	return true
}

func (ix *FileIndex) build(ctx context.Context) error {
	chunks, err := ix.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	entries := make([]fileEntry, 0, len(chunks))
	for _, c := range chunks {
		res, err := ix.embedder.Embed(ctx, c.Content())
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w: %w", c.ID(), err, domain.ErrBackendUnavailable)
		}
		entries = append(entries, fileEntry{
			Content: c.Content(),
			Source:  c.Source(),
			Title:   c.Title(),
			Seq:     c.Seq(),
			Vector:  res.Embedding,
		})
	}
	ix.entries = entries

	state, err := ix.save()
	ix.persist = state
	if err != nil {
		// Not fatal: queries keep working from memory.
		ix.logger.Warn("index artifact not persisted, proceeding in-memory", zap.Error(err))
	}
	ix.logger.Info("index built",
		zap.String("collection", ix.collection),
		zap.Int("chunks", len(ix.entries)),
		zap.String("persist", state.String()),
	)
	return nil
}

// save writes the artifact and reports the outcome explicitly.
func (ix *FileIndex) save() (PersistState, error) {
	dir := filepath.Dir(ix.artifactPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PersistMemoryOnly, fmt.Errorf("create index dir: %w", err)
	}

	data, err := json.Marshal(artifact{
		Version:    artifactVersion,
		Collection: ix.collection,
		Entries:    ix.entries,
	})
	if err != nil {
		return PersistMemoryOnly, fmt.Errorf("encode artifact: %w", err)
	}

	tmp := ix.artifactPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return PersistMemoryOnly, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, ix.artifactPath()); err != nil {
		return PersistMemoryOnly, fmt.Errorf("replace artifact: %w", err)
	}
	return PersistSaved, nil
}

// Query embeds the text and returns the k nearest chunks by cosine
// similarity. An empty index yields an empty result, never an error.
func (ix *FileIndex) Query(ctx context.Context, text string, k int) ([]domain.Chunk, error) {
	if len(ix.entries) == 0 || k <= 0 {
		return nil, nil
	}

	res, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", err, domain.ErrBackendUnavailable)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(ix.entries))
	for i := range ix.entries {
		scores[i] = scored{i, cosineSimilarity(res.Embedding, ix.entries[i].Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.Chunk, 0, k)
	for _, s := range scores[:k] {
		e := ix.entries[s.idx]
		out = append(out, domain.ReconstructChunk(e.Content, e.Source, e.Title, e.Seq))
	}
	return out, nil
}

// Rebuild discards the persisted artifact and repopulates unconditionally.
func (ix *FileIndex) Rebuild(ctx context.Context) error {
	if err := os.RemoveAll(filepath.Join(ix.dir, ix.collection)); err != nil {
		return fmt.Errorf("discard artifact: %w", err)
	}
	ix.entries = nil
	ix.persist = PersistNone
	return ix.build(ctx)
}

// Len returns the number of indexed chunks.
func (ix *FileIndex) Len() int { return len(ix.entries) }

// Persist reports whether the current entries are backed by the on-disk artifact.
func (ix *FileIndex) Persist() PersistState { return ix.persist }
