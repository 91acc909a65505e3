package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"

	"github.com/ibeckermayer/tgharvest/internal/types"
)

var (
	// ErrInvalidTableName is returned for table names that are not plain identifiers.
	ErrInvalidTableName = errors.New("invalid table name")
	// ErrTableExists is returned by SaveRecords under IfExistsFail when the table is present.
	ErrTableExists = errors.New("table already exists")
	// ErrUnknownIfExists is returned by ParseIfExists for unrecognised policies.
	ErrUnknownIfExists = errors.New("unknown if_exists policy")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IfExists decides what SaveRecords does when the target table already exists.
type IfExists string

const (
	IfExistsFail    IfExists = "fail"
	IfExistsReplace IfExists = "replace"
	IfExistsAppend  IfExists = "append"
)

// ParseIfExists converts a config value into a policy. Empty means replace.
func ParseIfExists(s string) (IfExists, error) {
	switch IfExists(s) {
	case "", IfExistsReplace:
		return IfExistsReplace, nil
	case IfExistsFail:
		return IfExistsFail, nil
	case IfExistsAppend:
		return IfExistsAppend, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIfExists, s)
	}
}

// RecordRepository writes cleaned records into a SQL table.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func quoteIdent(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return `"` + name + `"`, nil
}

// tableExistsQuery returns the catalog lookup for the repository's driver.
// The postgres lookup is limited to current_schema(), where unqualified
// CREATE and INSERT statements resolve.
func (r *RecordRepository) tableExistsQuery() string {
	if r.db.DriverName() == DriverSQLite {
		return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
}

// SaveRecords writes records to table according to policy and returns the
// number of rows inserted. All statements run in one transaction.
func (r *RecordRepository) SaveRecords(ctx context.Context, table string, records types.Table, policy IfExists) (int64, error) {
	ident, err := quoteIdent(table)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	switch policy {
	case IfExistsFail:
		var count int
		if err := tx.QueryRowxContext(ctx, tx.Rebind(r.tableExistsQuery()), table).Scan(&count); err != nil {
			return 0, fmt.Errorf("check table %s: %w", table, err)
		}
		if count > 0 {
			return 0, fmt.Errorf("%w: %s", ErrTableExists, table)
		}
	case IfExistsReplace:
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ident); err != nil {
			return 0, fmt.Errorf("drop table %s: %w", table, err)
		}
	case IfExistsAppend:
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownIfExists, policy)
	}

	createQuery := `CREATE TABLE IF NOT EXISTS ` + ident + ` (
		message_id BIGINT,
		channel TEXT,
		text TEXT,
		date TEXT,
		has_media BOOLEAN
	)`
	if _, err := tx.ExecContext(ctx, createQuery); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	insertQuery := `INSERT INTO ` + ident + ` (message_id, channel, text, date, has_media) VALUES (?, ?, ?, ?, ?)`
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertQuery))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Channel, rec.Text, rec.Date, rec.HasMedia); err != nil {
			return 0, fmt.Errorf("insert message %d: %w", rec.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return inserted, nil
}

// CountRecords returns the number of rows in table.
func (r *RecordRepository) CountRecords(ctx context.Context, table string) (int64, error) {
	ident, err := quoteIdent(table)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+ident); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// ListRecords returns every row of table ordered by channel and message id.
func (r *RecordRepository) ListRecords(ctx context.Context, table string) (types.Table, error) {
	ident, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}

	var records types.Table
	query := `SELECT message_id, channel, text, date, has_media FROM ` + ident + ` ORDER BY channel, message_id`
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return records, nil
}
