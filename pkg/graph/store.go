package graph

import (
	"sync"

	"go.uber.org/zap"
)

// Store holds the graph shared by searches and refreshes. The persisted file
// is read on first use; a refresh swaps in a freshly built graph.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	graph  *Graph
	loaded bool
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger.Named("graph-store")}
}

// Current returns the in-memory graph, loading it from disk once. A missing
// or corrupt file yields an empty graph.
func (s *Store) Current() *Graph {
	s.mu.RLock()
	if s.loaded {
		g := s.graph
		s.mu.RUnlock()
		return g
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		g, err := Load(s.path)
		if err != nil {
			s.logger.Warn("Graph file unreadable, starting empty",
				zap.String("path", s.path),
				zap.Error(err))
		}
		s.graph = g
		s.loaded = true
	}
	return s.graph
}

// Replace persists g and makes it current. The in-memory graph is swapped
// even if the write fails.
func (s *Store) Replace(g *Graph) error {
	s.mu.Lock()
	s.graph = g
	s.loaded = true
	s.mu.Unlock()
	return Save(g, s.path)
}

func (s *Store) Path() string { return s.path }
