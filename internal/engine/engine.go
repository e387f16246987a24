// Package engine runs vault queries against an in-memory snapshot of the
// index. Parsed queries live in an LRU cache and the snapshot is rebuilt
// only when the index generation moves.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/resolver"
)

// Service parses and executes queries.
type Service struct {
	db    *index.DB
	cache *lru.Cache[string, *query.Query]
	limit int

	mu   sync.Mutex
	snap *snapshot
}

type snapshot struct {
	gen  int64
	recs []*query.Record
	res  *resolver.Resolver
}

// New builds a query service. cacheSize bounds the parsed-query LRU
// (0 means the default of 128). defaultLimit caps result rows for queries
// without their own LIMIT clause; 0 disables the cap.
func New(db *index.DB, cacheSize, defaultLimit int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, *query.Query](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: query cache: %w", err)
	}
	return &Service{db: db, cache: cache, limit: defaultLimit}, nil
}

// Resolver returns the resolver for the current snapshot, rebuilding the
// snapshot first if the index changed.
func (s *Service) Resolver(ctx context.Context) (*resolver.Resolver, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.res, nil
}

// Execute parses text (reusing a cached parse when possible) and runs it
// against the current snapshot.
func (s *Service) Execute(ctx context.Context, text string) (*query.Result, error) {
	start := time.Now()
	metrics.Queries.Inc()

	q, err := s.parse(text)
	if err != nil {
		metrics.QueryErrors.Inc()
		return nil, err
	}

	snap, err := s.current(ctx)
	if err != nil {
		metrics.QueryErrors.Inc()
		return nil, err
	}

	x := query.Executor{Now: time.Now(), Resolve: snap.res.Resolve}
	res := x.Execute(q, snap.recs)

	if s.limit > 0 && !hasLimit(q) && len(res.Rows) > s.limit {
		res.Rows = res.Rows[:s.limit]
		res.Truncated = true
	}

	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

func (s *Service) parse(text string) (*query.Query, error) {
	key := strings.TrimSpace(text)
	if q, ok := s.cache.Get(key); ok {
		return q, nil
	}
	q, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, q)
	return q, nil
}

// current returns the snapshot for the index's present generation,
// rebuilding it when stale. Concurrent callers share one build.
func (s *Service) current(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.db.Generation()
	if s.snap != nil && s.snap.gen == gen {
		return s.snap, nil
	}

	snap, err := buildSnapshot(s.db)
	if err != nil {
		return nil, err
	}
	snap.gen = gen
	s.snap = snap

	metrics.SnapshotBuilds.Inc()
	metrics.IndexNotes.Set(float64(len(snap.recs)))
	return snap, nil
}

func hasLimit(q *query.Query) bool {
	for _, c := range q.Clauses {
		if _, ok := c.(query.LimitClause); ok {
			return true
		}
	}
	return false
}
