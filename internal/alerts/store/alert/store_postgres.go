package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"opsgate/internal/alerts"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// PostgresStore persists alerts in the alerts table. Transition guards run in
// the UPDATE's WHERE clause so concurrent operators cannot regress a state.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed alert store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const alertColumns = `id, category, severity, description, source_ref, created_at, acknowledged_by, acknowledged_at, resolved_at, dismissed_at`

func (s *PostgresStore) Create(ctx context.Context, a *alerts.Alert) error {
	var ackBy any
	if !a.AcknowledgedBy.IsNil() {
		ackBy = uuid.UUID(a.AcknowledgedBy)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(a.ID), string(a.Category), string(a.Severity), a.Description,
		nullString(a.SourceRef), a.CreatedAt, ackBy, a.AcknowledgedAt, a.ResolvedAt, a.DismissedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, alertID id.AlertID) (*alerts.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE id = $1
	`, uuid.UUID(alertID))
	return scanAlert(row.Scan)
}

func (s *PostgresStore) List(ctx context.Context, category alerts.Category, status alerts.Status) ([]*alerts.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
	`, string(category))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	var out []*alerts.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		// Status is derived from stamps, so the filter applies after scanning.
		if status != "" && a.Status() != status {
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Acknowledge(ctx context.Context, alertID id.AlertID, by id.AdminID, at time.Time) (*alerts.Alert, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET acknowledged_by = $2, acknowledged_at = $3
		WHERE id = $1 AND acknowledged_at IS NULL AND resolved_at IS NULL AND dismissed_at IS NULL
	`, uuid.UUID(alertID), uuid.UUID(by), at)
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}
	return s.afterTransition(ctx, alertID, res)
}

func (s *PostgresStore) Resolve(ctx context.Context, alertID id.AlertID, at time.Time) (*alerts.Alert, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET resolved_at = $2
		WHERE id = $1 AND resolved_at IS NULL AND dismissed_at IS NULL
	`, uuid.UUID(alertID), at)
	if err != nil {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}
	return s.afterTransition(ctx, alertID, res)
}

func (s *PostgresStore) Dismiss(ctx context.Context, alertID id.AlertID, at time.Time) (*alerts.Alert, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET dismissed_at = $2
		WHERE id = $1 AND resolved_at IS NULL AND dismissed_at IS NULL
	`, uuid.UUID(alertID), at)
	if err != nil {
		return nil, fmt.Errorf("dismiss alert: %w", err)
	}
	return s.afterTransition(ctx, alertID, res)
}

// afterTransition distinguishes "no such alert" from "guard clause refused
// the update" once the UPDATE reports zero affected rows.
func (s *PostgresStore) afterTransition(ctx context.Context, alertID id.AlertID, res sql.Result) (*alerts.Alert, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("alert transition result: %w", err)
	}
	record, findErr := s.FindByID(ctx, alertID)
	if findErr != nil {
		return nil, findErr
	}
	if affected == 0 {
		return nil, fmt.Errorf("alert is %s: %w", record.Status(), sentinel.ErrInvalidState)
	}
	return record, nil
}

func scanAlert(scan func(dest ...any) error) (*alerts.Alert, error) {
	var (
		a         alerts.Alert
		recordID  uuid.UUID
		category  string
		severity  string
		sourceRef sql.NullString
		ackBy     uuid.NullUUID
		ackAt     sql.NullTime
		resolved  sql.NullTime
		dismissed sql.NullTime
	)
	err := scan(&recordID, &category, &severity, &a.Description, &sourceRef,
		&a.CreatedAt, &ackBy, &ackAt, &resolved, &dismissed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.ID = id.AlertID(recordID)
	a.Category = alerts.Category(category)
	a.Severity = alerts.Severity(severity)
	a.SourceRef = sourceRef.String
	if ackBy.Valid {
		a.AcknowledgedBy = id.AdminID(ackBy.UUID)
	}
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resolved.Valid {
		t := resolved.Time
		a.ResolvedAt = &t
	}
	if dismissed.Valid {
		t := dismissed.Time
		a.DismissedAt = &t
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
