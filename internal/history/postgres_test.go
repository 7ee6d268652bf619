package history

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDatabase starts a PostgreSQL testcontainer and runs migrations.
// Set TIEWATCH_TEST_PG=1 to run these tests; they need a Docker daemon.
func setupTestDatabase(t *testing.T) *PostgresRepository {
	t.Helper()

	if os.Getenv("TIEWATCH_TEST_PG") == "" {
		t.Skip("Skipping database integration tests - set TIEWATCH_TEST_PG=1 to run")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("tiewatch_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := RunMigrations(connStr, "../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	return repo
}

func TestNewPostgresRepository_InvalidConnString(t *testing.T) {
	_, err := NewPostgresRepository(context.Background(), "invalid://connection")

	require.Error(t, err)
}

func TestRecordAndListByHash(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	digest := "7eb0139d2175739b3ccb0d1110067820be6abd29"
	doc, err := json.Marshal(map[string]any{
		"hashes":     map[string]string{"sha1": digest},
		"updateTime": 1481219581,
	})
	require.NoError(t, err)

	first := &Change{
		Kind:        "file",
		PrimaryHash: digest,
		UpdateTime:  1481219581,
		Document:    doc,
		CreatedAt:   time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, repo.Record(ctx, first))
	assert.NotEmpty(t, first.ID, "Record must assign an ID")

	second := &Change{
		Kind:        "file",
		PrimaryHash: digest,
		UpdateTime:  1481219999,
		Document:    doc,
	}
	require.NoError(t, repo.Record(ctx, second))

	changes, err := repo.ListByHash(ctx, digest, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	// Newest first.
	assert.Equal(t, second.ID, changes[0].ID)
	assert.Equal(t, first.ID, changes[1].ID)
	assert.Equal(t, "file", changes[0].Kind)
	assert.JSONEq(t, string(doc), string(changes[0].Document))
}

func TestListByHash_NoRows(t *testing.T) {
	repo := setupTestDatabase(t)

	changes, err := repo.ListByHash(context.Background(), "ffffffffffffffffffffffffffffffffffffffff", 10)

	require.NoError(t, err)
	assert.Empty(t, changes)
}
