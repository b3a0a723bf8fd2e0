// Package testhelpers starts shared containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

const (
	PostgresImage = "postgres:16-alpine"
	RedisImage    = "redis:7-alpine"
	Neo4jImage    = "neo4j:5-community"

	neo4jPassword = "test_password"
)

// SalesSchema seeds the Postgres warehouse with a small star schema.
const SalesSchema = `
CREATE TABLE customers (
	customer_id SERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	region      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE orders (
	order_id    SERIAL PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers (customer_id),
	amount      NUMERIC(10, 2) NOT NULL,
	ordered_on  DATE NOT NULL
);
CREATE INDEX orders_customer_idx ON orders (customer_id);
CREATE VIEW revenue_by_region AS
	SELECT c.region, SUM(o.amount) AS revenue
	FROM orders o JOIN customers c USING (customer_id)
	GROUP BY c.region;
INSERT INTO customers (name, region, created_at) VALUES
	('Acme', 'West', '2025-01-05 10:00:00'),
	('Globex', 'East', '2025-02-11 09:30:00'),
	('Initech', 'West', '2025-03-20 14:15:00');
INSERT INTO orders (customer_id, amount, ordered_on) VALUES
	(1, 120.50, '2025-04-01'),
	(1, 80.00, '2025-04-15'),
	(2, 300.00, '2025-05-02'),
	(3, 45.25, '2025-05-09');
`

// PostgresWarehouse is a seeded Postgres container usable as a warehouse.
type PostgresWarehouse struct {
	Container testcontainers.Container
	Config    config.PostgresConfig
}

var (
	sharedPostgres     *PostgresWarehouse
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error

	sharedRedis     *config.RedisConfig
	sharedRedisOnce sync.Once
	sharedRedisErr  error

	sharedNeo4j     *config.Neo4jConfig
	sharedNeo4jOnce sync.Once
	sharedNeo4jErr  error
)

func skipInShortMode(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
}

// GetPostgresWarehouse returns a shared Postgres container seeded with
// SalesSchema. The container is created once and reused across the run.
func GetPostgresWarehouse(t *testing.T) *PostgresWarehouse {
	t.Helper()
	skipInShortMode(t)

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = setupPostgres()
	})
	if sharedPostgresErr != nil {
		t.Fatalf("Failed to setup postgres warehouse: %v", sharedPostgresErr)
	}
	return sharedPostgres
}

func setupPostgres() (*PostgresWarehouse, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "sales",
				"POSTGRES_USER":     "analyst",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	mapped, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	host, port, err := endpoint(ctx, container, mapped.Port())
	if err != nil {
		return nil, err
	}
	cfg := config.PostgresConfig{
		Host:     host,
		Port:     port,
		User:     "analyst",
		Password: "test_password",
		Database: "sales",
		SSLMode:  "disable",
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://analyst:test_password@%s:%d/sales?sslmode=disable", host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres never became reachable: %w", err)
	}
	if _, err := pool.Exec(ctx, SalesSchema); err != nil {
		return nil, fmt.Errorf("failed to seed sales schema: %w", err)
	}

	return &PostgresWarehouse{Container: container, Config: cfg}, nil
}

// GetRedis returns connection settings for a shared Redis container.
func GetRedis(t *testing.T) *config.RedisConfig {
	t.Helper()
	skipInShortMode(t)

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = setupRedis()
	})
	if sharedRedisErr != nil {
		t.Fatalf("Failed to setup redis: %v", sharedRedisErr)
	}
	return sharedRedis
}

func setupRedis() (*config.RedisConfig, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	mapped, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	host, port, err := endpoint(ctx, container, mapped.Port())
	if err != nil {
		return nil, err
	}
	return &config.RedisConfig{Host: host, Port: port}, nil
}

// GetNeo4j returns connection settings for a shared Neo4j container.
func GetNeo4j(t *testing.T) *config.Neo4jConfig {
	t.Helper()
	skipInShortMode(t)

	sharedNeo4jOnce.Do(func() {
		sharedNeo4j, sharedNeo4jErr = setupNeo4j()
	})
	if sharedNeo4jErr != nil {
		t.Fatalf("Failed to setup neo4j: %v", sharedNeo4jErr)
	}
	return sharedNeo4j
}

func setupNeo4j() (*config.Neo4jConfig, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        Neo4jImage,
			ExposedPorts: []string{"7687/tcp"},
			Env:          map[string]string{"NEO4J_AUTH": "neo4j/" + neo4jPassword},
			WaitingFor:   wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start neo4j container: %w", err)
	}

	mapped, err := container.MappedPort(ctx, "7687/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	host, port, err := endpoint(ctx, container, mapped.Port())
	if err != nil {
		return nil, err
	}
	return &config.Neo4jConfig{
		URI:      fmt.Sprintf("bolt://%s:%d", host, port),
		User:     "neo4j",
		Password: neo4jPassword,
	}, nil
}

func endpoint(ctx context.Context, container testcontainers.Container, mappedPort string) (string, int, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}
	n, err := strconv.Atoi(mappedPort)
	if err != nil {
		return "", 0, fmt.Errorf("invalid mapped port %q: %w", mappedPort, err)
	}
	return host, n, nil
}
