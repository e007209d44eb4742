package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	sessions "opsgate/internal/session"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// PostgresStore persists impersonation sessions in the sessions table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, admin_id, target_type, target_org_id, target_user_id, target_name, issued_at, expires_at, ended_at, end_reason`

func (s *PostgresStore) Create(ctx context.Context, sess *sessions.ImpersonationSession) error {
	var orgID, userID any
	if !sess.TargetOrgID.IsNil() {
		orgID = uuid.UUID(sess.TargetOrgID)
	}
	if !sess.TargetUserID.IsNil() {
		userID = uuid.UUID(sess.TargetUserID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(sess.ID), uuid.UUID(sess.AdminID), string(sess.TargetType),
		orgID, userID, sess.TargetName, sess.IssuedAt, sess.ExpiresAt,
		sess.EndedAt, nullString(sess.EndReason),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*sessions.ImpersonationSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, uuid.UUID(sessionID))
	return scanSession(row.Scan)
}

func (s *PostgresStore) ListByAdmin(ctx context.Context, adminID id.AdminID) ([]*sessions.ImpersonationSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE admin_id = $1 ORDER BY issued_at DESC
	`, uuid.UUID(adminID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []*sessions.ImpersonationSession
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// MarkEnded stamps the terminal state only on the first call; the WHERE
// clause keeps repeat ends from re-stamping endedAt.
func (s *PostgresStore) MarkEnded(ctx context.Context, sessionID id.SessionID, at time.Time, reason string) (*sessions.ImpersonationSession, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = $2, end_reason = $3
		WHERE id = $1 AND ended_at IS NULL
	`, uuid.UUID(sessionID), at, nullString(reason))
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return s.FindByID(ctx, sessionID)
}

func scanSession(scan func(dest ...any) error) (*sessions.ImpersonationSession, error) {
	var (
		sess       sessions.ImpersonationSession
		recordID   uuid.UUID
		adminID    uuid.UUID
		targetType string
		orgID      uuid.NullUUID
		userID     uuid.NullUUID
		endedAt    sql.NullTime
		endReason  sql.NullString
	)
	err := scan(&recordID, &adminID, &targetType, &orgID, &userID,
		&sess.TargetName, &sess.IssuedAt, &sess.ExpiresAt, &endedAt, &endReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.ID = id.SessionID(recordID)
	sess.AdminID = id.AdminID(adminID)
	sess.TargetType = sessions.TargetType(targetType)
	if orgID.Valid {
		sess.TargetOrgID = id.OrgID(orgID.UUID)
	}
	if userID.Valid {
		sess.TargetUserID = id.UserID(userID.UUID)
	}
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	sess.EndReason = endReason.String
	return &sess, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
