package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	q    querier
	inTx bool
	// vec reports whether the sqlite-vec extension is loaded.
	vec bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")

	db, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err == nil {
		store.vec = true
		logx.Debug().Str("sqlite_vec", version).Msg("vector extension available")
	}

	return store, nil
}

// withPragmas makes foreign keys and a busy timeout apply to every pooled connection.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		dsn += sep + "_foreign_keys=on"
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn += sep + "_busy_timeout=5000"
	}
	return dsn
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			crm_id TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL DEFAULT '',
			project_enquired TEXT NOT NULL,
			unit_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'not_connected',
			budget_min REAL,
			budget_max REAL,
			family_size INTEGER,
			location_preference TEXT NOT NULL DEFAULT '',
			purchase_motive TEXT NOT NULL DEFAULT '',
			financing_readiness TEXT NOT NULL DEFAULT '',
			profile_metadata TEXT,
			last_conversation_date TEXT,
			last_conversation_summary TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_project ON leads(project_enquired)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_updated ON leads(updated_at)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			project_name TEXT NOT NULL,
			message_channel TEXT NOT NULL DEFAULT 'email',
			offer_details TEXT NOT NULL DEFAULT '',
			filters TEXT,
			created_by INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns(created_by, created_at)`,
		`CREATE TABLE IF NOT EXISTS campaign_leads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			campaign_id INTEGER NOT NULL,
			lead_id INTEGER NOT NULL,
			shortlisted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			personalized_message TEXT NOT NULL DEFAULT '',
			dispatch_time DATETIME,
			status TEXT NOT NULL DEFAULT 'pending',
			goal_outcome TEXT NOT NULL DEFAULT 'none',
			scheduled_datetime DATETIME,
			last_customer_message_at DATETIME,
			last_agent_message_at DATETIME,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (campaign_id, lead_id),
			FOREIGN KEY (campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE,
			FOREIGN KEY (lead_id) REFERENCES leads(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			campaign_lead_id INTEGER NOT NULL,
			sender TEXT NOT NULL,
			message TEXT NOT NULL,
			intent TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (campaign_lead_id) REFERENCES campaign_leads(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_campaign_lead ON conversation_messages(campaign_lead_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS brochure_documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_name TEXT NOT NULL DEFAULT '',
			original_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			uploaded_by INTEGER,
			uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_indexed_at DATETIME,
			FOREIGN KEY (uploaded_by) REFERENCES users(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS document_ingestion_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			chunks_indexed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (document_id) REFERENCES brochure_documents(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			document_id INTEGER NOT NULL DEFAULT 0,
			project_name TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_collection ON document_chunks(collection, document_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first release (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("leads", "user_id", "ALTER TABLE leads ADD COLUMN user_id INTEGER REFERENCES users(id)"); err != nil {
		return err
	}
	if err := s.ensureColumn("conversation_messages", "intent", "ALTER TABLE conversation_messages ADD COLUMN intent TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	columns, err := s.TableColumns(context.Background(), tableName)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if c.Name == columnName {
			return nil
		}
	}
	_, err = s.db.Exec(ddl)
	return err
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStore := &SQLiteStore{db: s.db, q: tx, inTx: true, vec: s.vec}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logx.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// VectorExtension reports whether similarity search runs inside SQLite.
func (s *SQLiteStore) VectorExtension() bool {
	return s.vec
}

func marshalJSON(v map[string]any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func unmarshalJSON(raw sql.NullString) map[string]any {
	out := map[string]any{}
	if !raw.Valid || raw.String == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return map[string]any{}
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

const uniqueViolation = "UNIQUE constraint failed: "

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), strings.TrimSpace(uniqueViolation))
}

// uniqueColumn returns the first column named by a unique violation, e.g.
// "email" for "UNIQUE constraint failed: leads.email".
func uniqueColumn(err error) string {
	msg := err.Error()
	i := strings.Index(msg, uniqueViolation)
	if i < 0 {
		return ""
	}
	col, _, _ := strings.Cut(msg[i+len(uniqueViolation):], ",")
	if _, name, ok := strings.Cut(col, "."); ok {
		col = name
	}
	return strings.TrimSpace(col)
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
