// Package testutil starts throwaway PostgreSQL, Redis and RabbitMQ containers
// for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "fairpipe_test"
	testUser     = "test"
	testPassword = "test"
)

// TestDatabase represents a test database instance.
type TestDatabase struct {
	Pool      *pgxpool.Pool
	Container *postgres.PostgresContainer
	ConnStr   string
}

// migrationsDir resolves the repository's migrations directory from this
// file's location so callers in any package can use it.
func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("resolve testutil location")
	}
	return filepath.Abs(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations"))
}

// SetupTestDatabase creates a PostgreSQL container, runs migrations, and returns a connection pool.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrationsPath, err := migrationsDir()
	require.NoError(t, err)

	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		connStr,
	)
	require.NoError(t, err)

	err = m.Up()
	require.NoError(t, err)
	m.Close()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = pool.Ping(ctx)
	require.NoError(t, err)

	return &TestDatabase{
		Pool:      pool,
		Container: pgContainer,
		ConnStr:   connStr,
	}
}

// Cleanup closes the pool and terminates the container.
func (td *TestDatabase) Cleanup(t *testing.T) {
	ctx := context.Background()

	if td.Pool != nil {
		td.Pool.Close()
	}

	if td.Container != nil {
		err := td.Container.Terminate(ctx)
		require.NoError(t, err)
	}
}

// TruncateTables truncates all tables in the database for test isolation.
func (td *TestDatabase) TruncateTables(t *testing.T) {
	_, err := td.Pool.Exec(context.Background(), `
		TRUNCATE TABLE video_reactions, thumbnails, videos, users, profile_picture, photo CASCADE;
	`)
	require.NoError(t, err)
}

// CreateUser inserts a minimal user row and returns its id.
func (td *TestDatabase) CreateUser(t *testing.T, username string) uuid.UUID {
	id := uuid.New()
	_, err := td.Pool.Exec(context.Background(), `
		INSERT INTO users (user_id, user_email, username, display_name, hashed_password)
		VALUES ($1, $2, $3, $3, 'x')
	`, id, username+"@example.com", username)
	require.NoError(t, err)
	return id
}

// CreateVideo inserts a video owned by uploader with the given counters and returns its id.
func (td *TestDatabase) CreateVideo(t *testing.T, uploader uuid.UUID, title string, likes, dislikes, views int64) uuid.UUID {
	id := uuid.New()
	_, err := td.Pool.Exec(context.Background(), `
		INSERT INTO videos (video_id, path, object_key, title, description, uploader, likes, dislikes, views)
		VALUES ($1, $2, $3, $4, 'description', $5, $6, $7, $8)
	`, id, fmt.Sprintf("/video/%s/master.m3u8", id), fmt.Sprintf("%s/%s.mp4", id, id), title, uploader, likes, dislikes, views)
	require.NoError(t, err)
	return id
}

// TestRedis represents a Redis container and a client connected to it.
type TestRedis struct {
	Client    *goredis.Client
	Container *tcredis.RedisContainer
	URL       string
}

// SetupTestRedis starts a Redis container.
func SetupTestRedis(t *testing.T) *TestRedis {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	require.NoError(t, client.Ping(ctx).Err())

	return &TestRedis{
		Client:    client,
		Container: container,
		URL:       url,
	}
}

// Cleanup closes the client and terminates the container.
func (tr *TestRedis) Cleanup(t *testing.T) {
	if tr.Client != nil {
		_ = tr.Client.Close()
	}
	if tr.Container != nil {
		require.NoError(t, tr.Container.Terminate(context.Background()))
	}
}
