package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	db, err := sqlx.Open("sqlite3", dsn+sep+"_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Every connection to :memory: is a separate database.
	if strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Catalog Operations
// =============================================================================

// moduleRow represents a module row in the database.
type moduleRow struct {
	Domain              string `db:"domain"`
	Industry            string `db:"industry"`
	Position            int    `db:"position"`
	Name                string `db:"name"`
	Description         string `db:"description"`
	Complexity          string `db:"complexity"`
	Features            string `db:"features"`
	SalesforceObjects   string `db:"salesforce_objects"`
	Automations         string `db:"automations"`
	ImplementationSteps string `db:"implementation_steps"`
	Dependencies        string `db:"dependencies"`
	Prerequisites       string `db:"prerequisites"`
}

type industryRow struct {
	Domain string `db:"domain"`
	Name   string `db:"name"`
}

func (s *SQLiteStore) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	return loadCatalog(ctx, s.db)
}

// SaveCatalog replaces the stored catalog in a single transaction.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, cat catalog.Catalog) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.SaveCatalog(ctx, cat)
	})
}

// SeedCatalog stores cat only when no catalog is stored yet. It reports
// whether the seed was written.
func (s *SQLiteStore) SeedCatalog(ctx context.Context, cat catalog.Catalog) (bool, error) {
	seeded := false
	err := s.WithTx(ctx, func(tx Store) error {
		var err error
		seeded, err = tx.SeedCatalog(ctx, cat)
		return err
	})
	return seeded, err
}

// =============================================================================
// Session Operations
// =============================================================================

// sessionRow represents a session row in the database.
type sessionRow struct {
	ID              string `db:"id"`
	Step            int    `db:"step"`
	Domain          string `db:"domain"`
	Industry        string `db:"industry"`
	SelectedModules string `db:"selected_modules"`
	Answers         string `db:"answers"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *wizard.Session) error {
	return createSession(ctx, s.db, session)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*wizard.Session, error) {
	return getSession(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, session *wizard.Session) error {
	return updateSession(ctx, s.db, session)
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, s.db, id)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, opts ListOptions) ([]wizard.Session, error) {
	return listSessions(ctx, s.db, opts)
}

// =============================================================================
// Org Connection Operations
// =============================================================================

// orgRow represents an org connection row in the database.
type orgRow struct {
	ID           string  `db:"id"`
	SessionID    string  `db:"session_id"`
	Status       string  `db:"status"`
	Method       string  `db:"method"`
	OrgID        string  `db:"org_id"`
	OrgName      string  `db:"org_name"`
	OrgType      string  `db:"org_type"`
	APIVersion   string  `db:"api_version"`
	InstanceURL  string  `db:"instance_url"`
	UserID       string  `db:"user_id"`
	UserName     string  `db:"user_name"`
	Permissions  string  `db:"permissions"`
	ErrorMessage string  `db:"error_message"`
	ConnectedAt  *string `db:"connected_at"`
	LastTestedAt *string `db:"last_tested_at"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
}

func (s *SQLiteStore) SaveOrgConnection(ctx context.Context, org *domain.OrgConnection) error {
	return saveOrgConnection(ctx, s.db, org)
}

func (s *SQLiteStore) GetOrgConnection(ctx context.Context, id string) (*domain.OrgConnection, error) {
	return getOrgConnection(ctx, s.db, "id", id)
}

func (s *SQLiteStore) GetOrgConnectionBySession(ctx context.Context, sessionID string) (*domain.OrgConnection, error) {
	return getOrgConnection(ctx, s.db, "session_id", sessionID)
}

// =============================================================================
// Deployment Operations
// =============================================================================

// deploymentRow represents a deployment row in the database.
type deploymentRow struct {
	ID           string  `db:"id"`
	SessionID    string  `db:"session_id"`
	OrgID        string  `db:"org_id"`
	Domain       string  `db:"domain"`
	Industry     string  `db:"industry"`
	Modules      string  `db:"modules"`
	Selection    string  `db:"selection"`
	Components   string  `db:"components"`
	Status       string  `db:"status"`
	Step         int     `db:"step"`
	DeploymentID string  `db:"deployment_id"`
	Results      string  `db:"results"`
	Message      string  `db:"message"`
	ErrorMessage string  `db:"error_message"`
	Attempts     int     `db:"attempts"`
	CreatedAt    string  `db:"created_at"`
	UpdatedAt    string  `db:"updated_at"`
	StartedAt    *string `db:"started_at"`
	CompletedAt  *string `db:"completed_at"`
}

func (s *SQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.db, deployment)
}

func (s *SQLiteStore) ListDeploymentsBySession(ctx context.Context, sessionID string, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsBySession(ctx, s.db, sessionID, opts)
}

func (s *SQLiteStore) ListActiveDeployments(ctx context.Context) ([]domain.Deployment, error) {
	return listActiveDeployments(ctx, s.db)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	return loadCatalog(ctx, s.tx)
}

func (s *txSQLiteStore) SaveCatalog(ctx context.Context, cat catalog.Catalog) error {
	return saveCatalog(ctx, s.tx, cat)
}

func (s *txSQLiteStore) SeedCatalog(ctx context.Context, cat catalog.Catalog) (bool, error) {
	return seedCatalog(ctx, s.tx, cat)
}

func (s *txSQLiteStore) CreateSession(ctx context.Context, session *wizard.Session) error {
	return createSession(ctx, s.tx, session)
}

func (s *txSQLiteStore) GetSession(ctx context.Context, id string) (*wizard.Session, error) {
	return getSession(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateSession(ctx context.Context, session *wizard.Session) error {
	return updateSession(ctx, s.tx, session)
}

func (s *txSQLiteStore) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListSessions(ctx context.Context, opts ListOptions) ([]wizard.Session, error) {
	return listSessions(ctx, s.tx, opts)
}

func (s *txSQLiteStore) SaveOrgConnection(ctx context.Context, org *domain.OrgConnection) error {
	return saveOrgConnection(ctx, s.tx, org)
}

func (s *txSQLiteStore) GetOrgConnection(ctx context.Context, id string) (*domain.OrgConnection, error) {
	return getOrgConnection(ctx, s.tx, "id", id)
}

func (s *txSQLiteStore) GetOrgConnectionBySession(ctx context.Context, sessionID string) (*domain.OrgConnection, error) {
	return getOrgConnection(ctx, s.tx, "session_id", sessionID)
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return createDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error {
	return updateDeployment(ctx, s.tx, deployment)
}

func (s *txSQLiteStore) ListDeploymentsBySession(ctx context.Context, sessionID string, opts ListOptions) ([]domain.Deployment, error) {
	return listDeploymentsBySession(ctx, s.tx, sessionID, opts)
}

func (s *txSQLiteStore) ListActiveDeployments(ctx context.Context) ([]domain.Deployment, error) {
	return listActiveDeployments(ctx, s.tx)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions: Catalog
// =============================================================================

func loadCatalog(ctx context.Context, exec executor) (catalog.Catalog, error) {
	cat := catalog.Empty()

	if err := exec.SelectContext(ctx, &cat.Domains, `SELECT name FROM domains ORDER BY position`); err != nil {
		return catalog.Catalog{}, NewStoreError("LoadCatalog", "domain", "", err.Error(), err)
	}

	var industries []industryRow
	if err := exec.SelectContext(ctx, &industries,
		`SELECT domain, name FROM industries ORDER BY domain, position`); err != nil {
		return catalog.Catalog{}, NewStoreError("LoadCatalog", "industry", "", err.Error(), err)
	}
	for _, row := range industries {
		cat.Industries[row.Domain] = append(cat.Industries[row.Domain], row.Name)
	}

	var modules []moduleRow
	if err := exec.SelectContext(ctx, &modules,
		`SELECT * FROM modules ORDER BY domain, industry, position`); err != nil {
		return catalog.Catalog{}, NewStoreError("LoadCatalog", "module", "", err.Error(), err)
	}
	for _, row := range modules {
		m, err := rowToModule(&row)
		if err != nil {
			return catalog.Catalog{}, err
		}
		if cat.Modules[row.Domain] == nil {
			cat.Modules[row.Domain] = map[string][]catalog.Module{}
		}
		cat.Modules[row.Domain][row.Industry] = append(cat.Modules[row.Domain][row.Industry], m)
	}

	return cat, nil
}

func saveCatalog(ctx context.Context, exec executor, cat catalog.Catalog) error {
	if err := cat.Validate(); err != nil {
		return NewStoreError("SaveCatalog", "catalog", "", err.Error(), ErrInvalidData)
	}

	// Industries and modules cascade.
	if _, err := exec.ExecContext(ctx, `DELETE FROM domains`); err != nil {
		return NewStoreError("SaveCatalog", "catalog", "", err.Error(), err)
	}

	for i, name := range cat.Domains {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO domains (name, position) VALUES (?, ?)`, name, i); err != nil {
			return NewStoreError("SaveCatalog", "domain", name, err.Error(), err)
		}
		for j, industry := range cat.Industries[name] {
			if _, err := exec.ExecContext(ctx,
				`INSERT INTO industries (domain, name, position) VALUES (?, ?, ?)`, name, industry, j); err != nil {
				return NewStoreError("SaveCatalog", "industry", industry, err.Error(), err)
			}
		}
		for industry, modules := range cat.Modules[name] {
			for k, m := range modules {
				if err := insertModule(ctx, exec, name, industry, k, m); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func insertModule(ctx context.Context, exec executor, domainName, industry string, position int, m catalog.Module) error {
	id := domainName + "/" + industry + "/" + m.Name
	row := map[string]any{
		"domain":      domainName,
		"industry":    industry,
		"position":    position,
		"name":        m.Name,
		"description": m.Description,
		"complexity":  string(m.Complexity),
	}
	lists := []struct {
		column string
		value  any
	}{
		{"features", m.Features},
		{"salesforce_objects", m.SalesforceObjects},
		{"automations", m.Automations},
		{"implementation_steps", m.ImplementationSteps},
		{"dependencies", m.Dependencies},
		{"prerequisites", m.Prerequisites},
	}
	for _, l := range lists {
		b, err := json.Marshal(l.value)
		if err != nil {
			return NewStoreError("SaveCatalog", "module", id, "failed to serialize "+l.column, ErrInvalidData)
		}
		row[l.column] = string(b)
	}

	query := `
		INSERT INTO modules (
			domain, industry, position, name, description, complexity,
			features, salesforce_objects, automations, implementation_steps,
			dependencies, prerequisites
		) VALUES (
			:domain, :industry, :position, :name, :description, :complexity,
			:features, :salesforce_objects, :automations, :implementation_steps,
			:dependencies, :prerequisites
		)`

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("SaveCatalog", "module", id, "domain not found", ErrForeignKey)
		}
		return NewStoreError("SaveCatalog", "module", id, err.Error(), err)
	}
	return nil
}

func seedCatalog(ctx context.Context, exec executor, cat catalog.Catalog) (bool, error) {
	var count int
	if err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM domains`); err != nil {
		return false, NewStoreError("SeedCatalog", "catalog", "", err.Error(), err)
	}
	if count > 0 {
		return false, nil
	}
	if err := saveCatalog(ctx, exec, cat); err != nil {
		return false, err
	}
	return true, nil
}

func rowToModule(row *moduleRow) (catalog.Module, error) {
	m := catalog.Module{
		Name:        row.Name,
		Description: row.Description,
		Complexity:  catalog.Complexity(row.Complexity),
	}
	id := row.Domain + "/" + row.Industry + "/" + row.Name
	fields := []struct {
		column string
		raw    string
		dest   any
	}{
		{"features", row.Features, &m.Features},
		{"salesforce_objects", row.SalesforceObjects, &m.SalesforceObjects},
		{"automations", row.Automations, &m.Automations},
		{"implementation_steps", row.ImplementationSteps, &m.ImplementationSteps},
		{"dependencies", row.Dependencies, &m.Dependencies},
		{"prerequisites", row.Prerequisites, &m.Prerequisites},
	}
	for _, f := range fields {
		if err := unmarshalColumn(f.raw, f.dest); err != nil {
			return catalog.Module{}, NewStoreError("rowToModule", "module", id, "failed to parse "+f.column, ErrInvalidData)
		}
	}
	return m, nil
}

// =============================================================================
// Shared Implementation Functions: Sessions
// =============================================================================

func sessionToRow(op string, session *wizard.Session) (map[string]any, error) {
	selected, err := json.Marshal(session.SelectedModules)
	if err != nil {
		return nil, NewStoreError(op, "session", session.ID, "failed to serialize selected modules", ErrInvalidData)
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return nil, NewStoreError(op, "session", session.ID, "failed to serialize answers", ErrInvalidData)
	}
	return map[string]any{
		"id":               session.ID,
		"step":             int(session.Step),
		"domain":           session.Domain,
		"industry":         session.Industry,
		"selected_modules": string(selected),
		"answers":          string(answers),
		"created_at":       session.CreatedAt.Format(timeFormat),
		"updated_at":       session.UpdatedAt.Format(timeFormat),
	}, nil
}

func createSession(ctx context.Context, exec executor, session *wizard.Session) error {
	row, err := sessionToRow("CreateSession", session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			id, step, domain, industry, selected_modules, answers, created_at, updated_at
		) VALUES (
			:id, :step, :domain, :industry, :selected_modules, :answers, :created_at, :updated_at
		)`

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: sessions.id") {
			return NewStoreError("CreateSession", "session", session.ID, "session with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateSession", "session", session.ID, err.Error(), err)
	}
	return nil
}

func getSession(ctx context.Context, exec executor, id string) (*wizard.Session, error) {
	var row sessionRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM sessions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetSession", "session", id, "session not found", ErrNotFound)
		}
		return nil, NewStoreError("GetSession", "session", id, err.Error(), err)
	}
	return rowToSession(&row)
}

func updateSession(ctx context.Context, exec executor, session *wizard.Session) error {
	row, err := sessionToRow("UpdateSession", session)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions SET
			step = :step,
			domain = :domain,
			industry = :industry,
			selected_modules = :selected_modules,
			answers = :answers,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateSession", "session", session.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateSession", "session", session.ID, "session not found", ErrNotFound)
	}
	return nil
}

func deleteSession(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeleteSession", "session", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteSession", "session", id, "session not found", ErrNotFound)
	}
	return nil
}

func listSessions(ctx context.Context, exec executor, opts ListOptions) ([]wizard.Session, error) {
	opts = opts.Normalize()

	var rows []sessionRow
	err := exec.SelectContext(ctx, &rows,
		`SELECT * FROM sessions ORDER BY updated_at DESC LIMIT ? OFFSET ?`, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListSessions", "session", "", err.Error(), err)
	}

	sessions := make([]wizard.Session, 0, len(rows))
	for _, row := range rows {
		session, err := rowToSession(&row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func rowToSession(row *sessionRow) (*wizard.Session, error) {
	session := &wizard.Session{
		ID:              row.ID,
		Step:            wizard.Step(row.Step),
		Domain:          row.Domain,
		Industry:        row.Industry,
		SelectedModules: []string{},
		Answers:         map[string]wizard.Answer{},
		CreatedAt:       parseTime(row.CreatedAt),
		UpdatedAt:       parseTime(row.UpdatedAt),
	}
	if err := unmarshalColumn(row.SelectedModules, &session.SelectedModules); err != nil {
		return nil, NewStoreError("rowToSession", "session", row.ID, "failed to parse selected modules", ErrInvalidData)
	}
	if err := unmarshalColumn(row.Answers, &session.Answers); err != nil {
		return nil, NewStoreError("rowToSession", "session", row.ID, "failed to parse answers", ErrInvalidData)
	}
	if session.SelectedModules == nil {
		session.SelectedModules = []string{}
	}
	if session.Answers == nil {
		session.Answers = map[string]wizard.Answer{}
	}
	return session, nil
}

// =============================================================================
// Shared Implementation Functions: Org Connections
// =============================================================================

// saveOrgConnection inserts or replaces the connection of a session.
func saveOrgConnection(ctx context.Context, exec executor, org *domain.OrgConnection) error {
	permissions, err := json.Marshal(org.Info.Permissions)
	if err != nil {
		return NewStoreError("SaveOrgConnection", "org_connection", org.ID, "failed to serialize permissions", ErrInvalidData)
	}

	query := `
		INSERT INTO org_connections (
			id, session_id, status, method, org_id, org_name, org_type, api_version,
			instance_url, user_id, user_name, permissions, error_message,
			connected_at, last_tested_at, created_at, updated_at
		) VALUES (
			:id, :session_id, :status, :method, :org_id, :org_name, :org_type, :api_version,
			:instance_url, :user_id, :user_name, :permissions, :error_message,
			:connected_at, :last_tested_at, :created_at, :updated_at
		)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			method = excluded.method,
			org_id = excluded.org_id,
			org_name = excluded.org_name,
			org_type = excluded.org_type,
			api_version = excluded.api_version,
			instance_url = excluded.instance_url,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			permissions = excluded.permissions,
			error_message = excluded.error_message,
			connected_at = excluded.connected_at,
			last_tested_at = excluded.last_tested_at,
			updated_at = excluded.updated_at`

	row := map[string]any{
		"id":             org.ID,
		"session_id":     org.SessionID,
		"status":         string(org.Status),
		"method":         string(org.Method),
		"org_id":         org.Info.OrgID,
		"org_name":       org.Info.OrgName,
		"org_type":       org.Info.OrgType,
		"api_version":    org.Info.APIVersion,
		"instance_url":   org.Info.InstanceURL,
		"user_id":        org.Info.UserID,
		"user_name":      org.Info.UserName,
		"permissions":    string(permissions),
		"error_message":  org.ErrorMessage,
		"connected_at":   formatTimePtr(org.ConnectedAt),
		"last_tested_at": formatTimePtr(org.LastTestedAt),
		"created_at":     org.CreatedAt.Format(timeFormat),
		"updated_at":     org.UpdatedAt.Format(timeFormat),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: org_connections.session_id") {
			return NewStoreError("SaveOrgConnection", "org_connection", org.ID, "session already has an org connection", ErrDuplicateSession)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("SaveOrgConnection", "org_connection", org.ID, "session not found", ErrForeignKey)
		}
		return NewStoreError("SaveOrgConnection", "org_connection", org.ID, err.Error(), err)
	}
	return nil
}

// getOrgConnection looks a connection up by id or session_id.
func getOrgConnection(ctx context.Context, exec executor, column, value string) (*domain.OrgConnection, error) {
	query := `SELECT * FROM org_connections WHERE id = ?`
	if column == "session_id" {
		query = `SELECT * FROM org_connections WHERE session_id = ?`
	}

	var row orgRow
	if err := exec.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetOrgConnection", "org_connection", value, "org connection not found", ErrNotFound)
		}
		return nil, NewStoreError("GetOrgConnection", "org_connection", value, err.Error(), err)
	}
	return rowToOrgConnection(&row)
}

func rowToOrgConnection(row *orgRow) (*domain.OrgConnection, error) {
	var permissions domain.OrgPermissions
	if err := unmarshalColumn(row.Permissions, &permissions); err != nil {
		return nil, NewStoreError("rowToOrgConnection", "org_connection", row.ID, "failed to parse permissions", ErrInvalidData)
	}

	return &domain.OrgConnection{
		ID:        row.ID,
		SessionID: row.SessionID,
		Status:    domain.OrgStatus(row.Status),
		Method:    domain.AuthMethod(row.Method),
		Info: domain.OrgInfo{
			OrgID:       row.OrgID,
			OrgName:     row.OrgName,
			OrgType:     row.OrgType,
			APIVersion:  row.APIVersion,
			InstanceURL: row.InstanceURL,
			UserID:      row.UserID,
			UserName:    row.UserName,
			Permissions: permissions,
		},
		ErrorMessage: row.ErrorMessage,
		ConnectedAt:  parseTimePtr(row.ConnectedAt),
		LastTestedAt: parseTimePtr(row.LastTestedAt),
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
	}, nil
}

// =============================================================================
// Shared Implementation Functions: Deployments
// =============================================================================

func deploymentToRow(op string, d *domain.Deployment) (map[string]any, error) {
	row := map[string]any{
		"id":            d.ID,
		"session_id":    d.SessionID,
		"org_id":        d.OrgID,
		"domain":        d.Domain,
		"industry":      d.Industry,
		"status":        string(d.Status),
		"step":          d.Step,
		"deployment_id": d.DeploymentID,
		"message":       d.Message,
		"error_message": d.ErrorMessage,
		"attempts":      d.Attempts,
		"created_at":    d.CreatedAt.Format(timeFormat),
		"updated_at":    d.UpdatedAt.Format(timeFormat),
		"started_at":    formatTimePtr(d.StartedAt),
		"completed_at":  formatTimePtr(d.CompletedAt),
	}
	cols := []struct {
		column string
		value  any
	}{
		{"modules", d.Modules},
		{"selection", d.Selection},
		{"components", d.Components},
		{"results", d.Results},
	}
	for _, c := range cols {
		b, err := json.Marshal(c.value)
		if err != nil {
			return nil, NewStoreError(op, "deployment", d.ID, "failed to serialize "+c.column, ErrInvalidData)
		}
		row[c.column] = string(b)
	}
	return row, nil
}

func createDeployment(ctx context.Context, exec executor, d *domain.Deployment) error {
	row, err := deploymentToRow("CreateDeployment", d)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deployments (
			id, session_id, org_id, domain, industry, modules, selection, components,
			status, step, deployment_id, results, message, error_message, attempts,
			created_at, updated_at, started_at, completed_at
		) VALUES (
			:id, :session_id, :org_id, :domain, :industry, :modules, :selection, :components,
			:status, :step, :deployment_id, :results, :message, :error_message, :attempts,
			:created_at, :updated_at, :started_at, :completed_at
		)`

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", "deployment", d.ID, "deployment with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateDeployment", "deployment", d.ID, "session not found", ErrForeignKey)
		}
		return NewStoreError("CreateDeployment", "deployment", d.ID, err.Error(), err)
	}
	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*domain.Deployment, error) {
	var row deploymentRow
	if err := exec.GetContext(ctx, &row, `SELECT * FROM deployments WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", "deployment", id, "deployment not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", "deployment", id, err.Error(), err)
	}
	return rowToDeployment(&row)
}

func updateDeployment(ctx context.Context, exec executor, d *domain.Deployment) error {
	row, err := deploymentToRow("UpdateDeployment", d)
	if err != nil {
		return err
	}

	query := `
		UPDATE deployments SET
			status = :status,
			step = :step,
			deployment_id = :deployment_id,
			results = :results,
			message = :message,
			error_message = :error_message,
			attempts = :attempts,
			updated_at = :updated_at,
			started_at = :started_at,
			completed_at = :completed_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateDeployment", "deployment", d.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateDeployment", "deployment", d.ID, "deployment not found", ErrNotFound)
	}
	return nil
}

func listDeploymentsBySession(ctx context.Context, exec executor, sessionID string, opts ListOptions) ([]domain.Deployment, error) {
	opts = opts.Normalize()

	var rows []deploymentRow
	err := exec.SelectContext(ctx, &rows,
		`SELECT * FROM deployments WHERE session_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		sessionID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDeploymentsBySession", "deployment", "", err.Error(), err)
	}
	return rowsToDeployments(rows)
}

// listActiveDeployments returns pending and in-progress runs, oldest first.
func listActiveDeployments(ctx context.Context, exec executor) ([]domain.Deployment, error) {
	query, args, err := sqlx.In(`SELECT * FROM deployments WHERE status IN (?) ORDER BY created_at ASC`,
		statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, NewStoreError("ListActiveDeployments", "deployment", "", err.Error(), err)
	}

	var rows []deploymentRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewStoreError("ListActiveDeployments", "deployment", "", err.Error(), err)
	}
	return rowsToDeployments(rows)
}

func statusStrings(statuses []domain.DeploymentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func rowsToDeployments(rows []deploymentRow) ([]domain.Deployment, error) {
	deployments := make([]domain.Deployment, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDeployment(&row)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *d)
	}
	return deployments, nil
}

func rowToDeployment(row *deploymentRow) (*domain.Deployment, error) {
	d := &domain.Deployment{
		ID:           row.ID,
		SessionID:    row.SessionID,
		OrgID:        row.OrgID,
		Domain:       row.Domain,
		Industry:     row.Industry,
		Status:       domain.DeploymentStatus(row.Status),
		Step:         row.Step,
		DeploymentID: row.DeploymentID,
		Message:      row.Message,
		ErrorMessage: row.ErrorMessage,
		Attempts:     row.Attempts,
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
		StartedAt:    parseTimePtr(row.StartedAt),
		CompletedAt:  parseTimePtr(row.CompletedAt),
	}

	var selection metadata.Selection
	fields := []struct {
		column string
		raw    string
		dest   any
	}{
		{"modules", row.Modules, &d.Modules},
		{"selection", row.Selection, &selection},
		{"components", row.Components, &d.Components},
		{"results", row.Results, &d.Results},
	}
	for _, f := range fields {
		if err := unmarshalColumn(f.raw, f.dest); err != nil {
			return nil, NewStoreError("rowToDeployment", "deployment", row.ID, "failed to parse "+f.column, ErrInvalidData)
		}
	}
	d.Selection = selection

	return d, nil
}

// =============================================================================
// Column Helpers
// =============================================================================

// unmarshalColumn decodes a JSON column. Empty and null values leave dest
// untouched.
func unmarshalColumn(raw string, dest any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeFormat)
	return &s
}
