package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"opsgate/internal/boundary"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// PostgresStore persists boundary requests in the boundary_requests table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed boundary request store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, source_schema, target_schema, operation, requester_id, data_classification, created_at, approved, approved_by, decided_at, reason`

func (s *PostgresStore) Create(ctx context.Context, r *boundary.Request) error {
	var approvedBy any
	if !r.ApprovedBy.IsNil() {
		approvedBy = uuid.UUID(r.ApprovedBy)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boundary_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(r.ID), r.SourceSchema, r.TargetSchema, string(r.Operation),
		uuid.UUID(r.RequesterID), nullString(r.DataClassification), r.CreatedAt,
		r.Approved, approvedBy, r.DecidedAt, nullString(r.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert boundary request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.BoundaryRequestID) (*boundary.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM boundary_requests WHERE id = $1
	`, uuid.UUID(requestID))
	return scanRequest(row.Scan)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*boundary.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM boundary_requests
		WHERE approved IS NULL ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list boundary requests: %w", err)
	}
	defer rows.Close()
	var out []*boundary.Request
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boundary requests: %w", err)
	}
	return out, nil
}

// Decide stamps the decision only while the request is pending; the WHERE
// clause keeps the outcome terminal under concurrent reviewers.
func (s *PostgresStore) Decide(ctx context.Context, requestID id.BoundaryRequestID, approved bool, by id.AdminID, at time.Time, reason string) (*boundary.Request, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE boundary_requests
		SET approved = $2, approved_by = $3, decided_at = $4, reason = $5
		WHERE id = $1 AND approved IS NULL
	`, uuid.UUID(requestID), approved, uuid.UUID(by), at, nullString(reason))
	if err != nil {
		return nil, fmt.Errorf("decide boundary request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("boundary decision result: %w", err)
	}
	record, findErr := s.FindByID(ctx, requestID)
	if findErr != nil {
		return nil, findErr
	}
	if affected == 0 {
		return nil, fmt.Errorf("boundary request already decided: %w", sentinel.ErrInvalidState)
	}
	return record, nil
}

func scanRequest(scan func(dest ...any) error) (*boundary.Request, error) {
	var (
		r              boundary.Request
		recordID       uuid.UUID
		operation      string
		requesterID    uuid.UUID
		classification sql.NullString
		approved       sql.NullBool
		approvedBy     uuid.NullUUID
		decidedAt      sql.NullTime
		reason         sql.NullString
	)
	err := scan(&recordID, &r.SourceSchema, &r.TargetSchema, &operation, &requesterID,
		&classification, &r.CreatedAt, &approved, &approvedBy, &decidedAt, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("boundary request not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan boundary request: %w", err)
	}
	r.ID = id.BoundaryRequestID(recordID)
	r.Operation = boundary.Operation(operation)
	r.RequesterID = id.AdminID(requesterID)
	r.DataClassification = classification.String
	if approved.Valid {
		v := approved.Bool
		r.Approved = &v
	}
	if approvedBy.Valid {
		r.ApprovedBy = id.AdminID(approvedBy.UUID)
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	r.Reason = reason.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
