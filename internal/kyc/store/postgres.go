package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sealing"
	"onboard/pkg/platform/sentinel"
	txcontext "onboard/pkg/platform/tx"
)

const uniqueViolation = "23505"

// caseBody is the sealed part of a case row: everything carrying document
// numbers or provider payloads. Listing columns stay in the clear.
type caseBody struct {
	Documents           map[models.DocumentType]*models.DocumentRecord `json:"documents"`
	Completion          models.CompletionStatus                        `json:"completion"`
	RejectionReason     string                                         `json:"rejection_reason,omitempty"`
	VerificationNotes   string                                         `json:"verification_notes,omitempty"`
	GSTINRequired       bool                                           `json:"gstin_required"`
	AgreementAcceptedAt *time.Time                                     `json:"agreement_accepted_at,omitempty"`
	AgreementVersion    string                                         `json:"agreement_version,omitempty"`
	ReviewedBy          string                                         `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time                                     `json:"reviewed_at,omitempty"`
}

// PostgresStore persists cases in kyc_cases. The body is sealed with the
// case ID as associated data, so a body copied onto another row fails to open.
type PostgresStore struct {
	db     *sql.DB
	sealer *sealing.Sealer
}

func NewPostgres(db *sql.DB, sealer *sealing.Sealer) *PostgresStore {
	return &PostgresStore{db: db, sealer: sealer}
}

const selectColumns = `id, user_id, company_id, state, applicant_name, company_name, body,
	submitted_at, version, created_at, updated_at`

func (s *PostgresStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Case, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM kyc_cases WHERE user_id = $1`, uuid.UUID(userID))
	return s.scanOne(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM kyc_cases WHERE id = $1`, uuid.UUID(caseID))
	return s.scanOne(row)
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	body, err := s.sealBody(c)
	if err != nil {
		return err
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO kyc_cases (id, user_id, company_id, state, applicant_name, company_name, body,
			submitted_at, next_expiry_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)`,
		uuid.UUID(c.ID), uuid.UUID(c.UserID), nullCompany(c.CompanyID), string(c.State),
		c.ApplicantName, c.CompanyName, body, c.SubmittedAt, c.NextExpiry(), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert kyc case: %w", err)
	}
	c.Version = 1
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, c *models.Case, expectedVersion int64) error {
	body, err := s.sealBody(c)
	if err != nil {
		return err
	}
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE kyc_cases
		SET company_id = $3, state = $4, applicant_name = $5, company_name = $6, body = $7,
			submitted_at = $8, next_expiry_at = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`,
		uuid.UUID(c.ID), expectedVersion, nullCompany(c.CompanyID), string(c.State),
		c.ApplicantName, c.CompanyName, body, c.SubmittedAt, c.NextExpiry(), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update kyc case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update kyc case: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := exec.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM kyc_cases WHERE id = $1)`, uuid.UUID(c.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check kyc case: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	c.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.CaseFilter) (*models.CasePage, error) {
	filter = filter.WithDefaults()
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		where = append(where, "state = ANY("+arg(pq.Array(states))+"::text[])")
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at >= "+arg(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at <= "+arg(*filter.CreatedTo))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, "(applicant_name ILIKE "+p+" OR company_name ILIKE "+p+")")
	}

	query := `SELECT ` + selectColumns + `, COUNT(*) OVER () FROM kyc_cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kyc cases: %w", err)
	}
	defer rows.Close()

	page := &models.CasePage{Cases: []*models.Case{}}
	for rows.Next() {
		var total int
		c, err := s.scan(rows, &total)
		if err != nil {
			return nil, err
		}
		page.Total = total
		page.Cases = append(page.Cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list kyc cases: %w", err)
	}
	if len(page.Cases) == 0 && filter.Offset > 0 {
		// past the last page; COUNT(*) OVER () has no row to ride on
		if err := s.countMatching(ctx, query, args, page); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func (s *PostgresStore) countMatching(ctx context.Context, query string, args []any, page *models.CasePage) error {
	from := strings.Index(query, " FROM kyc_cases")
	order := strings.Index(query, " ORDER BY")
	countQuery := "SELECT COUNT(*)" + query[from:order]
	// drop LIMIT/OFFSET arguments
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&page.Total); err != nil {
		return fmt.Errorf("count kyc cases: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByState(ctx context.Context) (map[models.CaseState]int, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT state, COUNT(*) FROM kyc_cases GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count kyc cases: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CaseState]int, len(models.CaseStates))
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		counts[models.CaseState(state)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) ListExpiring(ctx context.Context, now time.Time, limit int) ([]*models.Case, error) {
	if limit <= 0 {
		limit = models.MaxPageSize
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+selectColumns+` FROM kyc_cases
		WHERE next_expiry_at IS NOT NULL AND next_expiry_at <= $1
		ORDER BY next_expiry_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expiring kyc cases: %w", err)
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Case, error) {
	c, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) scan(row scanner, extra ...any) (*models.Case, error) {
	var (
		caseID, userID uuid.UUID
		companyID      uuid.NullUUID
		state          string
		sealed         []byte
		submittedAt    sql.NullTime
		c              models.Case
	)
	dest := append([]any{&caseID, &userID, &companyID, &state, &c.ApplicantName, &c.CompanyName,
		&sealed, &submittedAt, &c.Version, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan kyc case: %w", err)
	}

	c.ID = id.CaseID(caseID)
	c.UserID = id.UserID(userID)
	if companyID.Valid {
		c.CompanyID = id.CompanyID(companyID.UUID)
	}
	c.State = models.CaseState(state)
	if submittedAt.Valid {
		at := submittedAt.Time
		c.SubmittedAt = &at
	}

	plain, err := s.sealer.Open(sealed, caseID[:])
	if err != nil {
		return nil, fmt.Errorf("open kyc case %s: %w", caseID, err)
	}
	var body caseBody
	if err := json.Unmarshal(plain, &body); err != nil {
		return nil, fmt.Errorf("decode kyc case %s: %w", caseID, err)
	}
	c.Documents = body.Documents
	if c.Documents == nil {
		c.Documents = make(map[models.DocumentType]*models.DocumentRecord)
	}
	c.Completion = body.Completion
	c.RejectionReason = body.RejectionReason
	c.VerificationNotes = body.VerificationNotes
	c.GSTINRequired = body.GSTINRequired
	c.AgreementAcceptedAt = body.AgreementAcceptedAt
	c.AgreementVersion = body.AgreementVersion
	c.ReviewedBy = body.ReviewedBy
	c.ReviewedAt = body.ReviewedAt
	return &c, nil
}

func (s *PostgresStore) sealBody(c *models.Case) ([]byte, error) {
	plain, err := json.Marshal(caseBody{
		Documents:           c.Documents,
		Completion:          c.Completion,
		RejectionReason:     c.RejectionReason,
		VerificationNotes:   c.VerificationNotes,
		GSTINRequired:       c.GSTINRequired,
		AgreementAcceptedAt: c.AgreementAcceptedAt,
		AgreementVersion:    c.AgreementVersion,
		ReviewedBy:          c.ReviewedBy,
		ReviewedAt:          c.ReviewedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode kyc case: %w", err)
	}
	caseID := uuid.UUID(c.ID)
	sealed, err := s.sealer.Seal(plain, caseID[:])
	if err != nil {
		return nil, fmt.Errorf("seal kyc case: %w", err)
	}
	return sealed, nil
}

func nullCompany(companyID id.CompanyID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(companyID), Valid: !companyID.IsNil()}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
