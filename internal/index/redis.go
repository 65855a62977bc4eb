package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/atelier-labs/docent/internal/domain"
)

// RedisIndex keeps chunk vectors in Redis 8+ hashes and answers queries
// through FT.SEARCH KNN. State survives process restarts on the Redis side,
// so OpenOrBuild only embeds when the remote index is absent or empty.
type RedisIndex struct {
	client     rueidis.Client
	collection string
	loader     CorpusLoader
	embedder   domain.Embedder
	logger     *zap.Logger

	size int
}

// RedisConfig holds connection parameters for the redis driver.
type RedisConfig struct {
	Addrs    []string
	Password string
}

// NewRedisIndex connects to Redis and returns the driver. The connection is
// established eagerly; FT structures are created lazily in OpenOrBuild.
func NewRedisIndex(cfg RedisConfig, collection string, loader CorpusLoader, embedder domain.Embedder, logger *zap.Logger) (*RedisIndex, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis addrs are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	return &RedisIndex{
		client:     client,
		collection: collection,
		loader:     loader,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// Close shuts down the underlying client.
func (ix *RedisIndex) Close() {
	ix.client.Close()
}

func (ix *RedisIndex) indexName() string {
	return "docent-idx-" + ix.collection
}

func (ix *RedisIndex) keyPrefix() string {
	return "docent:chunk:" + ix.collection + ":"
}

// OpenOrBuild reuses the remote index when it already holds documents,
// otherwise embeds the corpus and populates it.
func (ix *RedisIndex) OpenOrBuild(ctx context.Context) error {
	exists, err := ix.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		count, err := ix.count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			ix.size = count
			ix.logger.Info("index reused from redis",
				zap.String("collection", ix.collection),
				zap.Int("chunks", count),
			)
			return nil
		}
		// Schema without documents is treated like corruption: drop and rebuild.
		if err := ix.drop(ctx); err != nil {
			return err
		}
	}
	return ix.build(ctx)
}

// Query embeds the text and runs a KNN search over the chunk vectors.
func (ix *RedisIndex) Query(ctx context.Context, text string, k int) ([]domain.Chunk, error) {
	if ix.size == 0 || k <= 0 {
		return nil, nil
	}

	res, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", err, domain.ErrBackendUnavailable)
	}

	query := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k)
	cmd := ix.client.B().Arbitrary("FT.SEARCH").Args(
		ix.indexName(), query,
		"RETURN", "4", "content", "source", "title", "seq",
		"PARAMS", "2", "BLOB", vectorToBytes(res.Embedding),
		"DIALECT", "2",
	).Build()

	raw, err := ix.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return parseKNNChunks(raw), nil
}

// Rebuild drops the FT index and all chunk hashes, then repopulates.
func (ix *RedisIndex) Rebuild(ctx context.Context) error {
	if err := ix.drop(ctx); err != nil {
		return err
	}
	ix.size = 0
	return ix.build(ctx)
}

// Len returns the number of indexed chunks.
func (ix *RedisIndex) Len() int { return ix.size }

func (ix *RedisIndex) build(ctx context.Context) error {
	chunks, err := ix.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if len(chunks) == 0 {
		ix.logger.Info("index built empty", zap.String("collection", ix.collection))
		return nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		res, err := ix.embedder.Embed(ctx, c.Content())
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w: %w", c.ID(), err, domain.ErrBackendUnavailable)
		}
		vectors[i] = res.Embedding
	}

	if err := ix.createSchema(ctx, len(vectors[0])); err != nil {
		return err
	}

	cmds := make([]rueidis.Completed, len(chunks))
	for i, c := range chunks {
		cmds[i] = ix.client.B().Hset().Key(ix.keyPrefix() + c.ID()).
			FieldValue().
			FieldValue("content", c.Content()).
			FieldValue("source", c.Source()).
			FieldValue("title", c.Title()).
			FieldValue("seq", strconv.Itoa(c.Seq())).
			FieldValue("vector", vectorToBytes(vectors[i])).
			Build()
	}
	for i, res := range ix.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("store chunk %s: %w: %w", chunks[i].ID(), err, domain.ErrIndexUnavailable)
		}
	}

	ix.size = len(chunks)
	ix.logger.Info("index built",
		zap.String("collection", ix.collection),
		zap.Int("chunks", ix.size),
	)
	return nil
}

func (ix *RedisIndex) createSchema(ctx context.Context, dim int) error {
	cmd := ix.client.B().Arbitrary("FT.CREATE").Args(
		ix.indexName(),
		"ON", "HASH",
		"PREFIX", "1", ix.keyPrefix(),
		"SCHEMA",
		"source", "TAG",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
	).Build()

	if err := ix.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create index %s: %w: %w", ix.indexName(), err, domain.ErrIndexUnavailable)
	}
	return nil
}

func (ix *RedisIndex) drop(ctx context.Context) error {
	cmd := ix.client.B().Arbitrary("FT.DROPINDEX").Args(ix.indexName()).Build()
	if err := ix.client.Do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return fmt.Errorf("drop index %s: %w: %w", ix.indexName(), err, domain.ErrIndexUnavailable)
	}

	keys, err := ix.scan(ctx, ix.keyPrefix()+"*")
	if err != nil {
		return err
	}
	for _, key := range keys {
		del := ix.client.B().Del().Key(key).Build()
		if err := ix.client.Do(ctx, del).Error(); err != nil {
			return fmt.Errorf("delete %s: %w: %w", key, err, domain.ErrIndexUnavailable)
		}
	}
	return nil
}

// indexExists probes via FT.INFO; "unknown index name" means absent.
func (ix *RedisIndex) indexExists(ctx context.Context) (bool, error) {
	cmd := ix.client.B().Arbitrary("FT.INFO").Args(ix.indexName()).Build()
	if err := ix.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, fmt.Errorf("probe index %s: %w: %w", ix.indexName(), err, domain.ErrIndexUnavailable)
	}
	return true, nil
}

// count returns the document count via FT.SEARCH with LIMIT 0 0.
func (ix *RedisIndex) count(ctx context.Context) (int, error) {
	cmd := ix.client.B().Arbitrary("FT.SEARCH").Args(ix.indexName(), "*", "LIMIT", "0", "0").Build()
	raw, err := ix.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, fmt.Errorf("count index %s: %w: %w", ix.indexName(), err, domain.ErrIndexUnavailable)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (ix *RedisIndex) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := ix.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := ix.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w: %w", pattern, err, domain.ErrIndexUnavailable)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// parseKNNChunks walks the RESP2 2-stride layout
// [total, key1, fields1, key2, fields2, ...] returned by FT.SEARCH.
// Results arrive ordered by vector distance.
func parseKNNChunks(raw []rueidis.RedisMessage) []domain.Chunk {
	if len(raw) == 0 {
		return nil
	}
	total, err := raw[0].AsInt64()
	if err != nil || total == 0 {
		return nil
	}

	out := make([]domain.Chunk, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		m := make(map[string]string, len(fields)/2)
		for j := 0; j+1 < len(fields); j += 2 {
			name, err := fields[j].ToString()
			if err != nil {
				continue
			}
			value, err := fields[j+1].ToString()
			if err != nil {
				continue
			}
			m[name] = value
		}
		if m["content"] == "" {
			continue
		}
		seq, _ := strconv.Atoi(m["seq"])
		out = append(out, domain.ReconstructChunk(m["content"], m["source"], m["title"], seq))
	}
	return out
}

// isRedisErr checks if err is a Redis server error containing substr.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	ls := len(s)
	lsub := len(substr)
	if lsub > ls {
		return false
	}
	for i := 0; i <= ls-lsub; i++ {
		match := true
		for j := 0; j < lsub; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 'a' - 'A'
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 'a' - 'A'
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
