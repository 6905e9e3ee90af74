package attempts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	txcontext "onboard/pkg/platform/tx"
)

// PostgresStore writes attempts to verification_attempts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, a models.VerificationAttempt) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode attempt metadata: %w", err)
	}
	if a.Metadata == nil {
		metadata = []byte("{}")
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO verification_attempts (id, user_id, company_id, document_type, provider, status,
			error_code, error_message, metadata, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(a.ID), uuid.UUID(a.UserID),
		uuid.NullUUID{UUID: uuid.UUID(a.CompanyID), Valid: !a.CompanyID.IsNil()},
		string(a.DocumentType), a.Provider, string(a.Status), a.ErrorCode, a.ErrorMessage,
		metadata, a.IPAddress, a.UserAgent, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]models.VerificationAttempt, error) {
	if limit <= 0 {
		limit = models.MaxPageSize
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, user_id, company_id, document_type, provider, status, error_code, error_message,
			metadata, ip_address, user_agent, created_at
		FROM (
			SELECT * FROM verification_attempts WHERE user_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		) recent
		ORDER BY created_at, id`, uuid.UUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list verification attempts: %w", err)
	}
	defer rows.Close()

	var out []models.VerificationAttempt
	for rows.Next() {
		var (
			a              models.VerificationAttempt
			attemptID, uid uuid.UUID
			companyID      uuid.NullUUID
			docType        string
			status         string
			metadata       []byte
		)
		if err := rows.Scan(&attemptID, &uid, &companyID, &docType, &a.Provider, &status,
			&a.ErrorCode, &a.ErrorMessage, &metadata, &a.IPAddress, &a.UserAgent, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verification attempt: %w", err)
		}
		a.ID = id.AttemptID(attemptID)
		a.UserID = id.UserID(uid)
		if companyID.Valid {
			a.CompanyID = id.CompanyID(companyID.UUID)
		}
		a.DocumentType = models.DocumentType(docType)
		a.Status = models.AttemptStatus(status)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode attempt metadata: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
