package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/docverify/internal/core/domain"
)

const uniqueViolation = "23505"

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS verification_cycles (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	state TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);

-- At most one non-terminal cycle per subject.
CREATE UNIQUE INDEX IF NOT EXISTS uq_verification_cycles_active
	ON verification_cycles(subject_id)
	WHERE state IN ('submitted', 'extracted');

CREATE TABLE IF NOT EXISTS verification_extractions (
	cycle_id TEXT NOT NULL REFERENCES verification_cycles(id),
	source TEXT NOT NULL,
	document_type TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (cycle_id, source, document_type)
);

CREATE TABLE IF NOT EXISTS verification_results (
	id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL UNIQUE REFERENCES verification_cycles(id),
	subject_id TEXT NOT NULL,
	verified BOOLEAN NOT NULL,
	risk_score DOUBLE PRECISION NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_results_subject ON verification_results(subject_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *VerificationRepository) CreateCycle(ctx context.Context, cycle *domain.Cycle) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO verification_cycles (id, subject_id, state, error_message, started_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, cycle.ID, cycle.SubjectID, string(cycle.State), cycle.Error, cycle.StartedAt, cycle.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrCycleActive, "create cycle", fmt.Errorf("subject %s", cycle.SubjectID))
		}
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func (r *VerificationRepository) GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error) {
	var (
		cycle      domain.Cycle
		state      string
		finishedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, subject_id, state, error_message, started_at, finished_at
FROM verification_cycles
WHERE id = $1
`, cycleID).Scan(&cycle.ID, &cycle.SubjectID, &state, &cycle.Error, &cycle.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get cycle", fmt.Errorf("cycle %s", cycleID))
		}
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	cycle.State = domain.CycleState(state)
	if finishedAt.Valid {
		finished := finishedAt.Time
		cycle.FinishedAt = &finished
	}
	return &cycle, nil
}

func (r *VerificationRepository) ExpireStaleCycles(ctx context.Context, subjectID string, cutoff time.Time, reason string) (int, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE verification_cycles
SET state = 'flagged', error_message = $3, finished_at = $4, updated_at = $4
WHERE subject_id = $1 AND state IN ('submitted', 'extracted') AND started_at < $2
`, subjectID, cutoff, reason, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale cycles: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale cycles rows affected: %w", err)
	}
	return int(rows), nil
}

// UpdateCycleState only touches non-terminal cycles.
func (r *VerificationRepository) UpdateCycleState(ctx context.Context, cycleID string, state domain.CycleState, errMessage string) error {
	now := time.Now().UTC()
	var finishedAt *time.Time
	if state.Terminal() {
		finishedAt = &now
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE verification_cycles
SET state = $2, error_message = $3, finished_at = $4, updated_at = $5
WHERE id = $1 AND state NOT IN ('verified', 'flagged')
`, cycleID, string(state), errMessage, finishedAt, now)
	if err != nil {
		return fmt.Errorf("update cycle state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cycle state rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update cycle state", fmt.Errorf("no active cycle %s", cycleID))
	}
	return nil
}

func (r *VerificationRepository) SaveExtraction(ctx context.Context, cycleID string, ref domain.DocumentRef, doc domain.ExtractedDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO verification_extractions (cycle_id, source, document_type, confidence, document, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, cycleID, string(ref.Source), string(ref.Type), doc.Confidence, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

func (r *VerificationRepository) SaveResult(ctx context.Context, result *domain.VerificationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO verification_results (id, cycle_id, subject_id, verified, risk_score, payload, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, result.ID, result.CycleID, result.SubjectID, result.Verified, result.RiskScore, payload, result.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrInvalidInput, "save result", fmt.Errorf("result for cycle %s already recorded", result.CycleID))
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *VerificationRepository) GetResult(ctx context.Context, id string) (*domain.VerificationResult, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM verification_results WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get result", fmt.Errorf("verification result %s", id))
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	var result domain.VerificationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (r *VerificationRepository) ListResults(ctx context.Context, subjectID string, limit int) ([]domain.VerificationResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT payload
FROM verification_results
WHERE subject_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.VerificationResult, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.VerificationResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
