package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/arterycheck/arterycheck/pkg/types"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite is a Store backed by a single SQLite database file. Each row keeps the
// full record as JSON in its data column; the other columns exist for ordering
// and lookups.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded schema migrations.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", path, err)
	}
	// One writer at a time; modernc serialises anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db, migrationFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %q: %w", path, err)
	}
	slog.Info("store: sqlite ready", "path", path)
	return &SQLite{db: db}, nil
}

// PutPatient inserts p or replaces the row with the same ID, keeping its
// position in the list.
func (s *SQLite) PutPatient(ctx context.Context, p types.Patient) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode patient: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO patients (id, name, email, risk_level, data) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    email = excluded.email,
    risk_level = excluded.risk_level,
    data = excluded.data`,
		p.ID, p.Name, p.Email, p.RiskLevel, string(data))
	if err != nil {
		return fmt.Errorf("store: put patient %q: %w", p.ID, err)
	}
	return nil
}

// GetPatient returns the patient with id or ErrNotFound.
func (s *SQLite) GetPatient(ctx context.Context, id string) (types.Patient, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM patients WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Patient{}, ErrNotFound
	}
	if err != nil {
		return types.Patient{}, fmt.Errorf("store: get patient %q: %w", id, err)
	}
	var p types.Patient
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return types.Patient{}, fmt.Errorf("store: decode patient %q: %w", id, err)
	}
	return p, nil
}

// ListPatients returns all patients in insertion order.
func (s *SQLite) ListPatients(ctx context.Context) ([]types.Patient, error) {
	return queryAll[types.Patient](ctx, s.db, `SELECT data FROM patients ORDER BY seq`)
}

// AddAssessment appends a.
func (s *SQLite) AddAssessment(ctx context.Context, a types.Assessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("store: encode assessment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO assessments (id, patient_id, risk_score, risk_level, created_at, data)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.PatientID, a.RiskScore, a.RiskLevel, a.Date.UTC().UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("store: add assessment %q: %w", a.ID, err)
	}
	return nil
}

// ListAssessments returns all assessments in insertion order.
func (s *SQLite) ListAssessments(ctx context.Context) ([]types.Assessment, error) {
	return queryAll[types.Assessment](ctx, s.db, `SELECT data FROM assessments ORDER BY seq`)
}

// AddAppointment appends a.
func (s *SQLite) AddAppointment(ctx context.Context, a types.Appointment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("store: encode appointment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO appointments (id, patient_id, date, time, status, data)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.PatientID, a.Date, a.Time, a.Status, string(data))
	if err != nil {
		return fmt.Errorf("store: add appointment %q: %w", a.ID, err)
	}
	return nil
}

// ListAppointments returns all appointments in insertion order.
func (s *SQLite) ListAppointments(ctx context.Context) ([]types.Appointment, error) {
	return queryAll[types.Appointment](ctx, s.db, `SELECT data FROM appointments ORDER BY seq`)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// queryAll runs a single-column query of JSON documents and decodes each row.
func queryAll[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("store: decode row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate: %w", err)
	}
	return out, nil
}
