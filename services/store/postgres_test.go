package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping postgres tests")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func newTestRepo(t *testing.T) *PostgresWorkflows {
	t.Helper()
	repo := NewPostgresWorkflows(getTestPool(t))
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestPostgres_InitSchema_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.InitSchema(context.Background()))
}

func TestPostgres_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateWorkflow(ctx, Workflow{
		Name:   "pg test",
		Prompt: "email me",
		Nodes:  json.RawMessage(`{"nodes":[{"id":"1","tool":"gmail","function":"sendEmail","params":{"to":"a@b.com"}}]}`),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteWorkflow(ctx, created.ID) })

	assert.NotZero(t, created.ID)
	assert.Equal(t, StatusInactive, created.Status)

	got, err := repo.GetWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "pg test", got.Name)
	assert.JSONEq(t, string(created.Nodes), string(got.Nodes))
}

func TestPostgres_CreateDefaultsEmptyEnvelope(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateWorkflow(ctx, Workflow{Name: "empty"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteWorkflow(ctx, created.ID) })

	assert.JSONEq(t, `{"nodes":[]}`, string(created.Nodes))
}

func TestPostgres_UpdatePartial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateWorkflow(ctx, Workflow{Name: "before", Description: "kept"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteWorkflow(ctx, created.ID) })

	name := "after"
	runs := 3
	lastRun := time.Now().UTC().Truncate(time.Second)
	updated, err := repo.UpdateWorkflow(ctx, created.ID, WorkflowUpdate{
		Name:     &name,
		Nodes:    json.RawMessage(`{"nodes":[]}`),
		RunCount: &runs,
		LastRun:  &lastRun,
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, "kept", updated.Description)
	assert.Equal(t, 3, updated.RunCount)
	require.NotNil(t, updated.LastRun)
	assert.True(t, lastRun.Equal(*updated.LastRun))
}

func TestPostgres_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetWorkflow(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateWorkflow(ctx, -1, WorkflowUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteWorkflow(ctx, -1), ErrNotFound)
}
