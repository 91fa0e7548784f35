package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// LocalConfig holds configuration for the local fallback store.
type LocalConfig struct {
	// Path is the JSON file the buffer is persisted to.
	// Default: "data/embeddings_storage.json"
	Path string

	// Collection is the logical collection name, recorded for logging.
	// Default: "disaster_prep"
	Collection string
}

// ApplyDefaults sets default values for unset fields.
func (c *LocalConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "data/embeddings_storage.json"
	}
	if c.Collection == "" {
		c.Collection = "disaster_prep"
	}
}

// LocalStore is the fallback Store used when Qdrant is unreachable.
//
// Points accumulate in memory, ordered by first insertion, and reach
// disk only on an explicit Persist call. Search is a full linear scan
// over the buffer; that is the accepted trade-off of the fallback path
// at small corpus scale, not a bug. The persisted file is a disposable
// cache regenerated wholesale by the next full ingestion run.
type LocalStore struct {
	config LocalConfig
	logger *zap.Logger

	mu          sync.RWMutex
	points      []Point
	byID        map[string]int
	initialized bool
}

// NewLocalStore creates a LocalStore. If the persisted file from a
// previous run exists it is loaded into the buffer, so query-only
// processes can search without re-ingesting.
func NewLocalStore(config LocalConfig, logger *zap.Logger) (*LocalStore, error) {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &LocalStore{
		config: config,
		logger: logger,
		byID:   make(map[string]int),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the persisted point file if present.
func (s *LocalStore) load() error {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading local storage %s: %w", s.config.Path, err)
	}

	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		return fmt.Errorf("parsing local storage %s: %w", s.config.Path, err)
	}

	s.points = points
	for i, p := range points {
		s.byID[p.ID] = i
	}
	s.initialized = true

	s.logger.Info("loaded local storage",
		zap.String("path", s.config.Path),
		zap.Int("points", len(points)))
	return nil
}

// Mode reports the active backend.
func (s *LocalStore) Mode() Mode {
	return ModeLocalFallback
}

// CreateCollection resets the in-memory buffer. The dimension and
// metric are accepted for interface parity; the linear scan computes
// cosine similarity regardless.
func (s *LocalStore) CreateCollection(ctx context.Context, dim int, metric Distance) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = nil
	s.byID = make(map[string]int)
	s.initialized = true

	s.logger.Info("local buffer reset",
		zap.String("collection", s.config.Collection),
		zap.Int("dim", dim))
	return nil
}

// Upsert writes points by id, overwriting in place so the first
// insertion position is kept (stable tie-break order for Search).
func (s *LocalStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return ErrEmptyPoints
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	for _, p := range points {
		if i, ok := s.byID[p.ID]; ok {
			s.points[i] = p
			continue
		}
		s.byID[p.ID] = len(s.points)
		s.points = append(s.points, p)
	}
	return nil
}

// Search scans the whole buffer and returns up to k points by
// descending cosine similarity. Ties keep insertion order.
func (s *LocalStore) Search(ctx context.Context, vector []float32, k int) ([]RetrievedContext, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	type scored struct {
		point Point
		score float32
	}
	results := make([]scored, len(s.points))
	for i, p := range s.points {
		results[i] = scored{point: p, score: cosineSimilarity(vector, p.Vector)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}

	contexts := make([]RetrievedContext, k)
	for i := 0; i < k; i++ {
		p := results[i].point
		contexts[i] = RetrievedContext{
			Content: p.Payload.Content,
			Source:  p.Payload.Source,
			Title:   p.Payload.Title,
			URL:     p.Payload.URL,
			Score:   results[i].score,
		}
	}
	return contexts, nil
}

// Count returns the number of buffered points.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return 0, ErrNotInitialized
	}
	return len(s.points), nil
}

// Persist writes the buffer to the configured JSON file. Write to a
// temp file and rename so a crash mid-write never truncates the
// previous snapshot.
func (s *LocalStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	if err := os.MkdirAll(filepath.Dir(s.config.Path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	data, err := json.MarshalIndent(s.points, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding points: %w", err)
	}

	tmp := s.config.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.config.Path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}

	s.logger.Info("persisted local storage",
		zap.String("path", s.config.Path),
		zap.Int("points", len(s.points)))
	return nil
}

// Close is a no-op; the buffer needs no teardown.
func (s *LocalStore) Close() error {
	return nil
}

// cosineSimilarity computes the cosine similarity of two vectors.
// A zero-norm vector (including an all-zero query) scores 0 rather
// than dividing by zero. Mismatched lengths also score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Ensure LocalStore implements Store.
var _ Store = (*LocalStore)(nil)
