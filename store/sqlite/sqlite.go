/*
Package sqlite provides the SQLite-backed record store.

PURPOSE:
  Persists the three record kinds the availability and timesheet
  calculations read: RSEs (staff with contract dates), project
  assignments and capacity overrides. Implements the staff, assignment
  and capacity sources the timesheet aggregator depends on.

KEY TABLES:
  rses:        Staff records with contract bounds
  assignments: FTE commitments of an RSE to a project
  capacities:  Contractual capacity overrides for a stretch of time

STORAGE FORMAT:
  - Dates are YYYY-MM-DD TEXT so they sort and compare lexically
  - Percentages are decimal TEXT and never pass through float64
  - Open-ended dates are NULL

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode, which lets
  readers proceed while a single writer commits.

USAGE:
  store, err := sqlite.New("./data/rse.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timesheet/types.go: source interfaces implemented here
  - availability/types.go: record types stored here
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

var (
	_ timesheet.StaffSource      = (*Store)(nil)
	_ timesheet.AssignmentSource = (*Store)(nil)
	_ timesheet.CapacitySource   = (*Store)(nil)
)

// Store implements the record sources using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		contract_start TEXT NOT NULL,
		contract_end TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		rse_id TEXT NOT NULL REFERENCES rses(id) ON DELETE CASCADE,
		project_id TEXT NOT NULL,
		fte TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		rate TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_rse
		ON assignments(rse_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_project
		ON assignments(project_id);

	CREATE TABLE IF NOT EXISTS capacities (
		id TEXT PRIMARY KEY,
		rse_id TEXT NOT NULL REFERENCES rses(id) ON DELETE CASCADE,
		capacity TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Overrides are applied in start order
	CREATE INDEX IF NOT EXISTS idx_capacities_rse_start
		ON capacities(rse_id, start_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STAFF
// =============================================================================

// SaveStaff inserts or updates an RSE.
func (s *Store) SaveStaff(ctx context.Context, st availability.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rses (id, name, email, contract_start, contract_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			contract_start = excluded.contract_start,
			contract_end = excluded.contract_end
	`

	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.Name, nullString(st.Email),
		calendar.Format(st.ContractStart),
		nullDate(st.ContractEnd),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetStaff retrieves an RSE by ID. Returns nil when absent.
func (s *Store) GetStaff(ctx context.Context, id string) (*availability.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, contract_start, contract_end FROM rses WHERE id = ?",
		id,
	)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStaff returns every RSE ordered by name.
func (s *Store) ListStaff(ctx context.Context) ([]availability.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, contract_start, contract_end FROM rses ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteStaff removes an RSE with its assignments and capacities.
func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM rses WHERE id = ?", id)
	return err
}

func scanStaff(row scanner) (availability.Staff, error) {
	var st availability.Staff
	var email, end sql.NullString
	var start string
	if err := row.Scan(&st.ID, &st.Name, &email, &start, &end); err != nil {
		return st, err
	}
	st.Email = email.String

	var err error
	if st.ContractStart, err = calendar.Parse(start); err != nil {
		return st, fmt.Errorf("rse %s contract_start: %w", st.ID, err)
	}
	if st.ContractEnd, err = parseNullDate(end); err != nil {
		return st, fmt.Errorf("rse %s contract_end: %w", st.ID, err)
	}
	return st, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// SaveAssignment inserts or updates an assignment.
func (s *Store) SaveAssignment(ctx context.Context, a availability.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveAssignment(ctx, s.db, a)
}

func saveAssignment(ctx context.Context, db execer, a availability.Assignment) error {
	query := `
		INSERT INTO assignments (id, rse_id, project_id, fte, start_date, end_date, rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rse_id = excluded.rse_id,
			project_id = excluded.project_id,
			fte = excluded.fte,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			rate = excluded.rate
	`

	_, err := db.ExecContext(ctx, query,
		a.ID, a.StaffID, a.ProjectID, a.FTE.String(),
		nullDate(a.Start), nullDate(a.End),
		nullString(a.Rate),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ReplaceAssignments swaps every assignment of an RSE to a project for
// the given set in one transaction.
func (s *Store) ReplaceAssignments(ctx context.Context, staffID, projectID string, as []availability.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM assignments WHERE rse_id = ? AND project_id = ?",
		staffID, projectID,
	); err != nil {
		tx.Rollback()
		return err
	}
	for _, a := range as {
		if a.StaffID != staffID || a.ProjectID != projectID {
			tx.Rollback()
			return fmt.Errorf("assignment %s belongs to %s/%s, not %s/%s", a.ID, a.StaffID, a.ProjectID, staffID, projectID)
		}
		if err := saveAssignment(ctx, tx, a); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListAssignments returns assignments matching filter ordered by start.
func (s *Store) ListAssignments(ctx context.Context, filter timesheet.AssignmentFilter) ([]availability.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rse_id, project_id, fte, start_date, end_date, rate
		FROM assignments
		WHERE (? = '' OR rse_id = ?) AND (? = '' OR project_id = ?)
		ORDER BY start_date, id
	`
	rows, err := s.db.QueryContext(ctx, query,
		filter.StaffID, filter.StaffID, filter.ProjectID, filter.ProjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Assignment
	for rows.Next() {
		var a availability.Assignment
		var fte string
		var start, end, rate sql.NullString
		if err := rows.Scan(&a.ID, &a.StaffID, &a.ProjectID, &fte, &start, &end, &rate); err != nil {
			return nil, err
		}
		if a.FTE, err = decimal.NewFromString(fte); err != nil {
			return nil, fmt.Errorf("assignment %s fte: %w", a.ID, err)
		}
		if a.Start, err = parseNullDate(start); err != nil {
			return nil, fmt.Errorf("assignment %s start: %w", a.ID, err)
		}
		if a.End, err = parseNullDate(end); err != nil {
			return nil, fmt.Errorf("assignment %s end: %w", a.ID, err)
		}
		a.Rate = rate.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", id)
	return err
}

// =============================================================================
// CAPACITIES
// =============================================================================

// SaveCapacity inserts or updates a capacity override.
func (s *Store) SaveCapacity(ctx context.Context, c availability.CapacityOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO capacities (id, rse_id, capacity, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rse_id = excluded.rse_id,
			capacity = excluded.capacity,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.StaffID, c.Capacity.String(),
		calendar.Format(c.Start), nullDate(c.End),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListCapacities returns overrides matching filter ordered by start date.
func (s *Store) ListCapacities(ctx context.Context, filter timesheet.CapacityFilter) ([]availability.CapacityOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rse_id, capacity, start_date, end_date
		FROM capacities
		WHERE (? = '' OR rse_id = ?)
		ORDER BY start_date ASC, created_at ASC, id
	`
	rows, err := s.db.QueryContext(ctx, query, filter.StaffID, filter.StaffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.CapacityOverride
	for rows.Next() {
		var c availability.CapacityOverride
		var capacity, start string
		var end sql.NullString
		if err := rows.Scan(&c.ID, &c.StaffID, &capacity, &start, &end); err != nil {
			return nil, err
		}
		if c.Capacity, err = decimal.NewFromString(capacity); err != nil {
			return nil, fmt.Errorf("capacity %s value: %w", c.ID, err)
		}
		if c.Start, err = calendar.Parse(start); err != nil {
			return nil, fmt.Errorf("capacity %s start: %w", c.ID, err)
		}
		if c.End, err = parseNullDate(end); err != nil {
			return nil, fmt.Errorf("capacity %s end: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCapacity removes a capacity override.
func (s *Store) DeleteCapacity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM capacities WHERE id = ?", id)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"assignments", "capacities", "rses"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: calendar.Format(*t), Valid: true}
}

func parseNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := calendar.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
