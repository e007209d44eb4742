package justification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"opsgate/internal/ledger"
	id "opsgate/pkg/domain"
	"opsgate/pkg/platform/sentinel"
)

// PostgresStore persists justifications in the justifications table. Schema
// ownership and migrations live with the persistence provider, not here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed justification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const justificationColumns = `id, admin_id, target_org_id, reason, ticket_ref, granted_at, expires_at, revoked_at, revoke_reason`

func (s *PostgresStore) Create(ctx context.Context, j *ledger.AccessJustification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO justifications (`+justificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(j.ID), uuid.UUID(j.AdminID), uuid.UUID(j.TargetOrgID),
		j.Reason, nullString(j.TicketRef), j.GrantedAt, j.ExpiresAt,
		j.RevokedAt, nullString(j.RevokeReason),
	)
	if err != nil {
		return fmt.Errorf("insert justification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, justificationID id.JustificationID) (*ledger.AccessJustification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+justificationColumns+` FROM justifications WHERE id = $1
	`, uuid.UUID(justificationID))
	return scanJustification(row)
}

func (s *PostgresStore) ListByAdminOrg(ctx context.Context, adminID id.AdminID, orgID id.OrgID) ([]*ledger.AccessJustification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+justificationColumns+` FROM justifications
		WHERE admin_id = $1 AND target_org_id = $2
		ORDER BY granted_at DESC
	`, uuid.UUID(adminID), uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	defer rows.Close()
	return collectJustifications(rows)
}

func (s *PostgresStore) ListByAdmin(ctx context.Context, adminID id.AdminID) ([]*ledger.AccessJustification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+justificationColumns+` FROM justifications
		WHERE admin_id = $1
		ORDER BY granted_at DESC
	`, uuid.UUID(adminID))
	if err != nil {
		return nil, fmt.Errorf("list justifications: %w", err)
	}
	defer rows.Close()
	return collectJustifications(rows)
}

// MarkRevoked stamps revocation only when the record is still unrevoked; the
// WHERE clause makes repeat revokes no-ops so revokedAt is never re-stamped.
func (s *PostgresStore) MarkRevoked(ctx context.Context, justificationID id.JustificationID, at time.Time, reason string) (*ledger.AccessJustification, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE justifications
		SET revoked_at = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, uuid.UUID(justificationID), at, nullString(reason))
	if err != nil {
		return nil, fmt.Errorf("revoke justification: %w", err)
	}
	return s.FindByID(ctx, justificationID)
}

func scanJustification(row *sql.Row) (*ledger.AccessJustification, error) {
	var (
		j            ledger.AccessJustification
		recordID     uuid.UUID
		adminID      uuid.UUID
		orgID        uuid.UUID
		ticketRef    sql.NullString
		revokedAt    sql.NullTime
		revokeReason sql.NullString
	)
	err := row.Scan(&recordID, &adminID, &orgID, &j.Reason, &ticketRef,
		&j.GrantedAt, &j.ExpiresAt, &revokedAt, &revokeReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("justification not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan justification: %w", err)
	}
	j.ID = id.JustificationID(recordID)
	j.AdminID = id.AdminID(adminID)
	j.TargetOrgID = id.OrgID(orgID)
	j.TicketRef = ticketRef.String
	if revokedAt.Valid {
		t := revokedAt.Time
		j.RevokedAt = &t
	}
	j.RevokeReason = revokeReason.String
	return &j, nil
}

func collectJustifications(rows *sql.Rows) ([]*ledger.AccessJustification, error) {
	var out []*ledger.AccessJustification
	for rows.Next() {
		var (
			j            ledger.AccessJustification
			recordID     uuid.UUID
			adminID      uuid.UUID
			orgID        uuid.UUID
			ticketRef    sql.NullString
			revokedAt    sql.NullTime
			revokeReason sql.NullString
		)
		if err := rows.Scan(&recordID, &adminID, &orgID, &j.Reason, &ticketRef,
			&j.GrantedAt, &j.ExpiresAt, &revokedAt, &revokeReason); err != nil {
			return nil, fmt.Errorf("scan justification: %w", err)
		}
		j.ID = id.JustificationID(recordID)
		j.AdminID = id.AdminID(adminID)
		j.TargetOrgID = id.OrgID(orgID)
		j.TicketRef = ticketRef.String
		if revokedAt.Valid {
			t := revokedAt.Time
			j.RevokedAt = &t
		}
		j.RevokeReason = revokeReason.String
		out = append(out, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate justifications: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
