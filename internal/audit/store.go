// Package audit provides an HMAC-signed audit trail for anonymization
// requests. Every request, including emergency-redacted and policy-denied
// ones, produces a Record that is signed (HMAC-SHA256) and persisted in
// SQLite. Records carry only detection metadata, never request text.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	anonotel "github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"
)

var tracer = anonotel.Tracer("github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/audit")

// Store persists HMAC-signed audit records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// Record is the audit entry for a single request.
type Record struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"request_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Endpoint   string         `json:"endpoint"` // "anonymize" or "detect"
	Mode       string         `json:"mode"`
	TextLen    int            `json:"text_len"`
	Format     string         `json:"format,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Categories map[string]int `json:"categories,omitempty"` // category -> span count
	Compliance []string       `json:"compliance_classes,omitempty"`
	Pseudonym  bool           `json:"pseudonym_used"`
	Denied     bool           `json:"denied"`
	Reasons    []string       `json:"deny_reasons,omitempty"`
	Error      string         `json:"error,omitempty"`
	Signature  string         `json:"signature"`
}

// NewStore opens (or creates) the audit database with HMAC signing.
func NewStore(dbPath, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		endpoint TEXT NOT NULL,
		mode TEXT NOT NULL,
		record_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_request ON audit(request_id);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_mode ON audit(mode);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store saves a record with an HMAC signature.
func (s *Store) Store(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "audit.store",
		trace.WithAttributes(
			attribute.String("audit.id", rec.ID),
			attribute.String("audit.endpoint", rec.Endpoint),
			attribute.String("audit.mode", rec.Mode),
		))
	defer span.End()

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}

	signature, err := s.signer.Sign(recordJSON)
	if err != nil {
		return fmt.Errorf("signing audit record: %w", err)
	}

	rec.Signature = signature
	recordJSONWithSig, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling signed audit record: %w", err)
	}

	query := `INSERT INTO audit (id, request_id, timestamp, endpoint, mode, record_json, signature)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.Timestamp, rec.Endpoint, rec.Mode,
		string(recordJSONWithSig), signature,
	)
	if err != nil {
		return fmt.Errorf("storing audit record: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "audit.get",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	var recordJSON string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM audit WHERE id = ?`, id).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling audit record: %w", err)
	}
	return &rec, nil
}

// List returns records matching the given filters, newest first.
func (s *Store) List(ctx context.Context, mode string, from, to time.Time, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "audit.list",
		trace.WithAttributes(attribute.String("audit.mode", mode)))
	defer span.End()

	query := `SELECT record_json FROM audit WHERE 1=1`
	args := []interface{}{}

	if mode != "" {
		query += ` AND mode = ?`
		args = append(args, mode)
	}
	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue
		}
		results = append(results, rec)
	}

	span.SetAttributes(attribute.Int("audit.count", len(results)))
	return results, nil
}

// Verify checks the HMAC signature integrity of a stored record.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "audit.verify",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	signature := rec.Signature
	rec.Signature = ""

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling for verification: %w", err)
	}

	return s.signer.Verify(recordJSON, signature), nil
}

// PurgeBefore deletes records older than cutoff and returns how many were
// removed. Called by the retention scheduler.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "audit.purge",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging audit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged records: %w", err)
	}
	span.SetAttributes(attribute.Int64("purged", n))
	return n, nil
}
