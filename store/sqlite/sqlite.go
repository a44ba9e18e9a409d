/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements vacation.RequestStore, vacation.HolidayStore,
  vacation.TeamDirectory and vacation.AuditLog using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

OPTIMISTIC CONCURRENCY:
  Request rows carry a version column. Updates are conditional:

    UPDATE requests SET ..., version = version + 1
    WHERE id = ? AND version = ?

  Zero rows affected means a concurrent transition won; the store returns
  vacation.ErrConcurrentModification and the engine reports the lost race.
  This is how two concurrent decisions on the same PENDING request resolve
  to exactly one success.

KEY TABLES:
  requests:     Vacation requests (status + version)
  holidays:     Imported/deprecated holidays
  employees:    Directory entities
  teams:        Team roster with a manager per team
  team_members: Membership rows
  audit_log:    Append-only audit trail (never updated or deleted)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - vacation/store.go: Interface definitions
  - vacation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nimbus-hr/vacation-engine/vacation"
)

// Store implements all storage interfaces using SQLite.
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Vacation requests (status owned by the lifecycle engine)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		number_of_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		manager_note TEXT NOT NULL DEFAULT '',
		hr_note TEXT NOT NULL DEFAULT '',
		submitted_at TEXT NOT NULL,
		decided_at TEXT,
		processed_at TEXT,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status_submitted
		ON requests(status, submitted_at);
	-- Range intersection queries (overlaps, calendars)
	CREATE INDEX IF NOT EXISTS idx_requests_range
		ON requests(start_date, end_date);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'IMPORTED',
		deprecation_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_status_date
		ON holidays(status, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_date_name
		ON holidays(date, name);

	-- Directory: employees, teams, memberships
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS team_members (
		team_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		PRIMARY KEY (team_id, employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_team_members_employee
		ON team_members(employee_id);

	-- Audit trail (append-only: no UPDATE or DELETE statements exist)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_log(entity_type, entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUEST STORE (vacation.RequestStore interface)
// =============================================================================

// SaveRequest inserts a new request with version 1.
func (s *Store) SaveRequest(ctx context.Context, req *vacation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO requests
		(id, code, employee_id, employee_name, start_date, end_date, number_of_days,
		 status, manager_note, hr_note, submitted_at, decided_at, processed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err := s.db.ExecContext(ctx, query,
		req.ID,
		req.Code,
		req.EmployeeID,
		req.EmployeeName,
		req.StartDate.String(),
		req.EndDate.String(),
		req.NumberOfDays,
		req.Status,
		req.ManagerNote,
		req.HRNote,
		req.SubmittedAt.UTC().Format(time.RFC3339Nano),
		nullTime(req.DecidedAt),
		nullTime(req.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	req.Version = 1
	return nil
}

// GetRequest loads a request by id, (nil, nil) when missing.
func (s *Store) GetRequest(ctx context.Context, id vacation.RequestID) (*vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return req, nil
}

// UpdateRequest commits a version-checked update.
func (s *Store) UpdateRequest(ctx context.Context, req *vacation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE requests
		SET status = ?, manager_note = ?, hr_note = ?, decided_at = ?, processed_at = ?,
		    version = version + 1
		WHERE id = ? AND version = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		req.Status,
		req.ManagerNote,
		req.HRNote,
		nullTime(req.DecidedAt),
		nullTime(req.ProcessedAt),
		req.ID,
		req.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM requests WHERE id = ?`, req.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to verify request: %w", err)
		}
		if exists == 0 {
			return vacation.ErrNotFound
		}
		return vacation.ErrConcurrentModification
	}
	req.Version++
	return nil
}

// ListByEmployee returns an employee's requests in the given statuses.
func (s *Store) ListByEmployee(ctx context.Context, employeeID vacation.EmployeeID, statuses ...vacation.Status) ([]*vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRequest + ` WHERE employee_id = ?`
	args := []any{employeeID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY submitted_at ASC, id ASC`

	return s.queryRequests(ctx, query, args...)
}

// ListByStatus returns all requests in a status, oldest submission first.
func (s *Store) ListByStatus(ctx context.Context, status vacation.Status) ([]*vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRequest + ` WHERE status = ? ORDER BY submitted_at ASC, id ASC`
	return s.queryRequests(ctx, query, status)
}

// ListForEmployeesInRange returns requests of the given employees whose
// range intersects [start, end], any status.
func (s *Store) ListForEmployeesInRange(ctx context.Context, employeeIDs []vacation.EmployeeID, start, end vacation.Date) ([]*vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(employeeIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(employeeIDs))
	args := make([]any, 0, len(employeeIDs)+2)
	for i, id := range employeeIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	// Inclusive intersection: start_date <= end AND end_date >= start.
	args = append(args, end.String(), start.String())

	query := selectRequest + `
		WHERE employee_id IN (` + strings.Join(placeholders, ", ") + `)
		  AND start_date <= ? AND end_date >= ?
		ORDER BY submitted_at ASC, id ASC`
	return s.queryRequests(ctx, query, args...)
}

const selectRequest = `
	SELECT id, code, employee_id, employee_name, start_date, end_date, number_of_days,
	       status, manager_note, hr_note, submitted_at, decided_at, processed_at, version
	FROM requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*vacation.Request, error) {
	var req vacation.Request
	var startDate, endDate, submittedAt string
	var decidedAt, processedAt sql.NullString
	err := row.Scan(
		&req.ID,
		&req.Code,
		&req.EmployeeID,
		&req.EmployeeName,
		&startDate,
		&endDate,
		&req.NumberOfDays,
		&req.Status,
		&req.ManagerNote,
		&req.HRNote,
		&submittedAt,
		&decidedAt,
		&processedAt,
		&req.Version,
	)
	if err != nil {
		return nil, err
	}
	if req.StartDate, err = vacation.ParseDate(startDate); err != nil {
		return nil, err
	}
	if req.EndDate, err = vacation.ParseDate(endDate); err != nil {
		return nil, err
	}
	if req.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
		return nil, err
	}
	if req.DecidedAt, err = parseNullTime(decidedAt); err != nil {
		return nil, err
	}
	if req.ProcessedAt, err = parseNullTime(processedAt); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]*vacation.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []*vacation.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY STORE (vacation.HolidayStore interface)
// =============================================================================

// ListImported returns IMPORTED holidays in [start, end].
func (s *Store) ListImported(ctx context.Context, start, end vacation.Date) ([]vacation.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectHoliday + `
		WHERE status = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`
	return s.queryHolidays(ctx, query, vacation.HolidayImported, start.String(), end.String())
}

// FindByDateAndName returns a holiday regardless of status, nil if absent.
func (s *Store) FindByDateAndName(ctx context.Context, date vacation.Date, name string) (*vacation.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectHoliday+` WHERE date = ? AND name = ?`, date.String(), name)
	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load holiday: %w", err)
	}
	return h, nil
}

// SaveHoliday inserts or replaces a holiday row.
func (s *Store) SaveHoliday(ctx context.Context, h vacation.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO holidays (id, date, name, status, deprecation_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			status = excluded.status,
			deprecation_reason = excluded.deprecation_reason
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Date.String(), h.Name, h.Status, h.DeprecationReason,
		createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// GetHoliday loads a holiday by id, (nil, nil) when missing.
func (s *Store) GetHoliday(ctx context.Context, id vacation.HolidayID) (*vacation.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectHoliday+` WHERE id = ?`, id)
	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load holiday: %w", err)
	}
	return h, nil
}

// ListImportedYears returns distinct years having IMPORTED holidays.
func (s *Store) ListImportedYears(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(strftime('%Y', date) AS INTEGER)
		FROM holidays WHERE status = ?
		ORDER BY 1 ASC`, vacation.HolidayImported)
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// ListImportedByYear returns the IMPORTED holidays of a year, by date.
func (s *Store) ListImportedByYear(ctx context.Context, year int) ([]vacation.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectHoliday + `
		WHERE status = ? AND CAST(strftime('%Y', date) AS INTEGER) = ?
		ORDER BY date ASC`
	return s.queryHolidays(ctx, query, vacation.HolidayImported, year)
}

const selectHoliday = `
	SELECT id, date, name, status, deprecation_reason, created_at
	FROM holidays`

func scanHoliday(row rowScanner) (*vacation.Holiday, error) {
	var h vacation.Holiday
	var date, createdAt string
	err := row.Scan(&h.ID, &date, &h.Name, &h.Status, &h.DeprecationReason, &createdAt)
	if err != nil {
		return nil, err
	}
	if h.Date, err = vacation.ParseDate(date); err != nil {
		return nil, err
	}
	if h.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]vacation.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []vacation.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// =============================================================================
// TEAM DIRECTORY (vacation.TeamDirectory interface)
// =============================================================================

// Employee is a directory record.
type Employee struct {
	ID    vacation.EmployeeID
	Name  string
	Email string
}

// Team is a roster record with its manager.
type Team struct {
	ID        string
	Name      string
	ManagerID vacation.EmployeeID
}

// SaveEmployee inserts or updates a directory entry.
func (s *Store) SaveEmployee(ctx context.Context, e Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		e.ID, e.Name, e.Email, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// SaveTeam inserts or updates a team; the manager is added as a member.
func (s *Store) SaveTeam(ctx context.Context, t Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, manager_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, manager_id = excluded.manager_id`,
		t.ID, t.Name, t.ManagerID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return s.addMemberLocked(ctx, t.ID, t.ManagerID)
}

// AddTeamMember adds an employee to a team.
func (s *Store) AddTeamMember(ctx context.Context, teamID string, employeeID vacation.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMemberLocked(ctx, teamID, employeeID)
}

func (s *Store) addMemberLocked(ctx context.Context, teamID string, employeeID vacation.EmployeeID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, employee_id)
		VALUES (?, ?)
		ON CONFLICT(team_id, employee_id) DO NOTHING`,
		teamID, employeeID)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// EmployeeName returns the display name for an employee, "" if unknown.
func (s *Store) EmployeeName(ctx context.Context, id vacation.EmployeeID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM employees WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load employee: %w", err)
	}
	return name, nil
}

// TeamMembersVisibleTo returns the employees sharing a team with id.
func (s *Store) TeamMembersVisibleTo(ctx context.Context, id vacation.EmployeeID) ([]vacation.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tm.employee_id
		FROM team_members tm
		WHERE tm.team_id IN (
			SELECT team_id FROM team_members WHERE employee_id = ?
		)
		ORDER BY tm.employee_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	var out []vacation.EmployeeID
	for rows.Next() {
		var member vacation.EmployeeID
		if err := rows.Scan(&member); err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

// ManagesEmployee reports whether manager oversees employee via a team.
func (s *Store) ManagesEmployee(ctx context.Context, manager, employee vacation.EmployeeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE t.manager_id = ? AND tm.employee_id = ?`,
		manager, employee).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to resolve team relationship: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// AUDIT LOG (vacation.AuditLog interface)
// =============================================================================

// Record appends an audit entry. The audit_log table is append-only.
func (s *Store) Record(ctx context.Context, entry vacation.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, entity_type, entity_id, details, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Details,
		at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// CountAuditEntries returns the number of audit rows for an entity.
func (s *Store) CountAuditEntries(ctx context.Context, entityType, entityID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM audit_log WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID).Scan(&count)
	return count, err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
