package recordstore

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Omni-crm/talpan-bot-sub000/pkg/database"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLStore implements the record-store contract over a SQL backend. Every call
// is a single statement; there is deliberately no transaction wrapping, which
// is what forces the fulfillment saga's compensation discipline.
type SQLStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewSQLStore creates a SQL-backed record store and applies the schema.
func NewSQLStore(db *database.DB, log *logger.Logger) (*SQLStore, error) {
	s := &SQLStore{
		db:     db,
		logger: log.WithComponent("record_store"),
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		s.logger.Error("Failed to apply schema", "error", err)
		return nil, fmt.Errorf("failed to apply schema: %v", err)
	}

	return s, nil
}

// placeholder returns the driver-specific bind placeholder for position n (1-based).
func (s *SQLStore) placeholder(n int) string {
	if s.db.Driver() == database.DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// sortedKeys returns map keys in a stable order so generated SQL is
// deterministic and loggable.
func sortedKeys[V any](m map[string]V) ([]string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !identPattern.MatchString(k) {
			return nil, fmt.Errorf("invalid field name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *SQLStore) whereClause(filter Filter, startAt int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys, err := sortedKeys(filter)
	if err != nil {
		return "", nil, err
	}

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		conds = append(conds, fmt.Sprintf("%s = %s", k, s.placeholder(startAt+i)))
		args = append(args, filter[k])
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *SQLStore) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + table + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Select failed", "table", table, "error", err)
		return nil, fmt.Errorf("select from %s failed: %v", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		s.logger.Error("Failed to scan rows", "table", table, "error", err)
		return nil, fmt.Errorf("failed to scan rows from %s: %v", table, err)
	}

	s.logger.Debug("Select completed", "table", table, "rows", len(result))
	return result, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	inserted := row.Clone()
	if _, ok := inserted["id"]; !ok {
		inserted["id"] = uuid.NewString()
	}

	keys, err := sortedKeys(inserted)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(keys))
	binds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		cols = append(cols, k)
		binds = append(binds, s.placeholder(i+1))
		args = append(args, inserted[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(binds, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Insert failed", "table", table, "error", err)
		return nil, fmt.Errorf("insert into %s failed: %v", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inserted row: %v", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", table)
	}

	s.logger.Debug("Insert completed", "table", table, "id", result[0]["id"])
	return result[0], nil
}

func (s *SQLStore) Update(ctx context.Context, table string, patch Patch, filter Filter) ([]Row, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("update on %s with empty patch", table)
	}

	keys, err := sortedKeys(patch)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+len(filter))
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = %s", k, s.placeholder(i+1)))
		args = append(args, patch[k])
	}

	where, whereArgs, err := s.whereClause(filter, len(keys)+1)
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", table, strings.Join(sets, ", "), where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Update failed", "table", table, "error", err)
		return nil, fmt.Errorf("update on %s failed: %v", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan updated rows: %v", err)
	}

	s.logger.Debug("Update completed", "table", table, "affected", len(result))
	return result, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, table string, filter Filter) (bool, error) {
	if !identPattern.MatchString(table) {
		return false, fmt.Errorf("invalid table name %q", table)
	}

	where, args, err := s.whereClause(filter, 1)
	if err != nil {
		return false, err
	}

	query := "DELETE FROM " + table + where

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Delete failed", "table", table, "error", err)
		return false, fmt.Errorf("delete from %s failed: %v", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %v", err)
	}

	s.logger.Debug("Delete completed", "table", table, "affected", affected)
	return affected > 0, nil
}
