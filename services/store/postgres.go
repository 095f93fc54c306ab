package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWorkflows persists workflows in PostgreSQL. The node envelope lives in a
// JSONB column and is written back exactly as received.
type PostgresWorkflows struct {
	db *pgxpool.Pool
}

// NewPostgresWorkflows creates a repository backed by the given connection pool.
func NewPostgresWorkflows(pool *pgxpool.Pool) *PostgresWorkflows {
	return &PostgresWorkflows{db: pool}
}

// InitSchema creates the workflows table if it does not exist.
func (r *PostgresWorkflows) InitSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflows (
			id            BIGSERIAL PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			prompt        TEXT NOT NULL DEFAULT '',
			nodes         JSONB NOT NULL DEFAULT '{"nodes": []}',
			status        TEXT NOT NULL DEFAULT 'inactive',
			run_count     INTEGER NOT NULL DEFAULT 0,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			last_run      TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const workflowColumns = `id, name, description, prompt, nodes, status,
	run_count, success_count, failure_count, last_run, created_at, updated_at`

func scanWorkflow(row pgx.Row) (*Workflow, error) {
	var wf Workflow
	var nodes []byte
	err := row.Scan(
		&wf.ID, &wf.Name, &wf.Description, &wf.Prompt, &nodes, &wf.Status,
		&wf.RunCount, &wf.SuccessCount, &wf.FailureCount, &wf.LastRun, &wf.CreatedAt, &wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	wf.Nodes = json.RawMessage(nodes)
	return &wf, nil
}

func (r *PostgresWorkflows) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	out := make([]Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, *wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return out, nil
}

// GetWorkflow retrieves a workflow by id. Returns ErrNotFound if it does not exist.
func (r *PostgresWorkflows) GetWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	wf, err := scanWorkflow(r.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("workflow", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

func (r *PostgresWorkflows) CreateWorkflow(ctx context.Context, wf Workflow) (*Workflow, error) {
	if wf.Status == "" {
		wf.Status = StatusInactive
	}
	nodes := []byte(wf.Nodes)
	if len(nodes) == 0 {
		nodes = []byte(`{"nodes": []}`)
	}

	created, err := scanWorkflow(r.db.QueryRow(ctx, `
		INSERT INTO workflows (name, description, prompt, nodes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+workflowColumns,
		wf.Name, wf.Description, wf.Prompt, nodes, wf.Status))
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	return created, nil
}

// UpdateWorkflow applies the non-nil fields of update in one statement.
func (r *PostgresWorkflows) UpdateWorkflow(ctx context.Context, id int64, update WorkflowUpdate) (*Workflow, error) {
	var nodes []byte
	if update.Nodes != nil {
		nodes = update.Nodes
	}

	wf, err := scanWorkflow(r.db.QueryRow(ctx, `
		UPDATE workflows SET
			name          = COALESCE($2, name),
			description   = COALESCE($3, description),
			prompt        = COALESCE($4, prompt),
			nodes         = COALESCE($5::jsonb, nodes),
			status        = COALESCE($6, status),
			run_count     = COALESCE($7, run_count),
			success_count = COALESCE($8, success_count),
			failure_count = COALESCE($9, failure_count),
			last_run      = COALESCE($10, last_run),
			updated_at    = $11
		WHERE id = $1
		RETURNING `+workflowColumns,
		id, update.Name, update.Description, update.Prompt, nodes, update.Status,
		update.RunCount, update.SuccessCount, update.FailureCount, update.LastRun, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("workflow", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update workflow: %w", err)
	}
	return wf, nil
}

func (r *PostgresWorkflows) DeleteWorkflow(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("workflow", id)
	}
	return nil
}
