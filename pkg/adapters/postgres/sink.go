// Package postgres persists flow usage counters and completion records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	json "github.com/goccy/go-json"
	"github.com/lib/pq"
)

// Execer is the subset of *sql.DB the sink needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Sink implements ports.AnalyticsSink.
type Sink struct {
	db         Execer
	flows      string
	executions string
}

var _ ports.AnalyticsSink = (*Sink)(nil)

// Option configures a Sink.
type Option func(*Sink)

// WithTables overrides the default table names (flows, flow_executions).
func WithTables(flows, executions string) Option {
	return func(s *Sink) {
		if flows != "" {
			s.flows = flows
		}
		if executions != "" {
			s.executions = executions
		}
	}
}

// Open connects to PostgreSQL using a lib/pq connection string.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return db, nil
}

// NewSink creates a Sink writing through db.
func NewSink(db Execer, opts ...Option) *Sink {
	s := &Sink{db: db, flows: "flows", executions: "flow_executions"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables the sink writes to when they do not exist.
func (s *Sink) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	tenant_id TEXT NOT NULL,
	id TEXT NOT NULL,
	times_triggered BIGINT NOT NULL DEFAULT 0,
	times_completed BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
)`, pq.QuoteIdentifier(s.flows)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	correlation_id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	flow_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	exit_node_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	variables JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(s.executions)),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FlowTriggered increments the flow's trigger counter, creating its row if needed.
func (s *Sink) FlowTriggered(ctx context.Context, tenantID, flowID string) error {
	query := fmt.Sprintf(`INSERT INTO %s (tenant_id, id, times_triggered, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (tenant_id, id) DO UPDATE
SET times_triggered = %[1]s.times_triggered + 1, updated_at = now()`, pq.QuoteIdentifier(s.flows))

	if _, err := s.db.ExecContext(ctx, query, tenantID, flowID); err != nil {
		return fmt.Errorf("record trigger of flow %s: %w", flowID, err)
	}
	return nil
}

// FlowCompleted stores the completion record once per correlation id and
// increments the completion counter in the same statement.
func (s *Sink) FlowCompleted(ctx context.Context, record domain.ExecutionRecord) error {
	vars, err := json.Marshal(record.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}

	query := fmt.Sprintf(`WITH rec AS (
	INSERT INTO %s (correlation_id, tenant_id, flow_id, conversation_id, exit_node_id, outcome, variables, started_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (correlation_id) DO NOTHING
	RETURNING tenant_id, flow_id
)
UPDATE %s AS f SET times_completed = f.times_completed + 1, updated_at = now()
FROM rec WHERE f.tenant_id = rec.tenant_id AND f.id = rec.flow_id`,
		pq.QuoteIdentifier(s.executions), pq.QuoteIdentifier(s.flows))

	_, err = s.db.ExecContext(ctx, query,
		record.CorrelationID,
		record.TenantID,
		record.FlowID,
		record.ConversationID,
		record.ExitNodeID,
		string(record.Outcome),
		string(vars),
		record.StartedAt,
		record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record completion of flow %s: %w", record.FlowID, err)
	}
	return nil
}
