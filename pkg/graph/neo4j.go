package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// Mirror copies a graph into an external graph store.
type Mirror interface {
	Mirror(ctx context.Context, g *Graph) error
	Close(ctx context.Context) error
}

// NoopMirror is used when no external store is configured.
type NoopMirror struct{}

var _ Mirror = NoopMirror{}

func (NoopMirror) Mirror(context.Context, *Graph) error { return nil }
func (NoopMirror) Close(context.Context) error          { return nil }

const (
	neo4jConstraint = "CREATE CONSTRAINT IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE"
	neo4jMergeNodes = "UNWIND $nodes AS node MERGE (n:Node {id: node.id}) SET n += node.props"
	neo4jMergeEdges = "UNWIND $edges AS edge " +
		"MATCH (a:Node {id: edge.source}), (b:Node {id: edge.target}) " +
		"MERGE (a)-[r:REL {type: edge.type}]->(b)"
)

type neo4jMirror struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

var _ Mirror = (*neo4jMirror)(nil)

// NewMirror returns a Neo4j mirror when URI, user and password are all set,
// otherwise a NoopMirror.
func NewMirror(ctx context.Context, cfg *config.Neo4jConfig, logger *zap.Logger) (Mirror, error) {
	if !cfg.Enabled() {
		return NoopMirror{}, nil
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &neo4jMirror{driver: driver, logger: logger.Named("neo4j")}, nil
}

// Mirror merges every node by id and every edge by (source, target, type).
// Running it twice leaves the store unchanged.
func (m *neo4jMirror) Mirror(ctx context.Context, g *Graph) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if err := m.run(ctx, session, neo4jConstraint, nil); err != nil {
		return fmt.Errorf("failed to create node constraint: %w", err)
	}

	nodes := make([]map[string]any, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		nodes = append(nodes, map[string]any{"id": n.ID, "props": n.Properties()})
	}
	edges := make([]map[string]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		edges = append(edges, map[string]any{"source": e.Source, "target": e.Target, "type": string(e.Type)})
	}

	if err := m.run(ctx, session, neo4jMergeNodes, map[string]any{"nodes": nodes}); err != nil {
		return fmt.Errorf("failed to merge nodes: %w", err)
	}
	if err := m.run(ctx, session, neo4jMergeEdges, map[string]any{"edges": edges}); err != nil {
		return fmt.Errorf("failed to merge edges: %w", err)
	}

	m.logger.Info("Mirrored graph to Neo4j",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))
	return nil
}

func (m *neo4jMirror) run(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) error {
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (m *neo4jMirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}
