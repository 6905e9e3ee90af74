package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	id "onboard/pkg/domain"
	audit "onboard/pkg/platform/audit"
	txcontext "onboard/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the audit_outbox table in the caller's transaction
// when one is present, and relayed to Kafka by the outbox relay.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Payload is the JSON structure written to the outbox and published to Kafka.
type Payload struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	UserID       string `json:"user_id,omitempty"`
	CompanyID    string `json:"company_id,omitempty"`
	CaseID       string `json:"case_id,omitempty"`
	Action       string `json:"action"`
	DocumentType string `json:"document_type,omitempty"`
	FromState    string `json:"from_state,omitempty"`
	ToState      string `json:"to_state,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
	InputHash    string `json:"input_hash,omitempty"`
	AttemptID    string `json:"attempt_id,omitempty"`
}

func toPayload(eventID uuid.UUID, event audit.Event) Payload {
	p := Payload{
		ID:           eventID.String(),
		Category:     string(audit.AuditEvent(event.Action).Category()),
		Timestamp:    event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:       event.Action,
		DocumentType: event.DocumentType,
		FromState:    event.FromState,
		ToState:      event.ToState,
		Reason:       event.Reason,
		RequestID:    event.RequestID,
		ActorID:      event.ActorID,
		InputHash:    event.InputHash,
		AttemptID:    event.AttemptID,
	}
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
	}
	if !event.CompanyID.IsNil() {
		p.CompanyID = event.CompanyID.String()
	}
	if !event.CaseID.IsNil() {
		p.CaseID = event.CaseID.String()
	}
	return p
}

func (p Payload) toEvent() (audit.Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse timestamp: %w", err)
	}
	e := audit.Event{
		Category:     audit.EventCategory(p.Category),
		Timestamp:    ts,
		Action:       p.Action,
		DocumentType: p.DocumentType,
		FromState:    p.FromState,
		ToState:      p.ToState,
		Reason:       p.Reason,
		RequestID:    p.RequestID,
		ActorID:      p.ActorID,
		InputHash:    p.InputHash,
		AttemptID:    p.AttemptID,
	}
	if p.UserID != "" {
		if e.UserID, err = id.ParseUserID(p.UserID); err != nil {
			return audit.Event{}, err
		}
	}
	if p.CompanyID != "" {
		if e.CompanyID, err = id.ParseCompanyID(p.CompanyID); err != nil {
			return audit.Event{}, err
		}
	}
	if p.CaseID != "" {
		if e.CaseID, err = id.ParseCaseID(p.CaseID); err != nil {
			return audit.Event{}, err
		}
	}
	return e, nil
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(toPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.UserID.IsNil() {
		aggregateType = "user"
		aggregateID = event.UserID.String()
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's events in append order, published or not.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE aggregate_type = 'user' AND aggregate_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		event, err := p.toEvent()
		if err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
