package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Filter selects rows by exact column match.
type Filter map[string]any

// Row is one result of a generic query.
type Row map[string]any

// Querier is the generic data-access interface tenant resources are
// read and written through. The tenant scope guard decorates it; see
// ScopeToPrincipal.
type Querier interface {
	FindMany(ctx context.Context, table string, filter Filter) ([]Row, error)
	FindUnique(ctx context.Context, table string, filter Filter) (Row, error)
	Create(ctx context.Context, table string, data Row) (Row, error)
	Update(ctx context.Context, table string, filter Filter, data Row) (int64, error)
	Delete(ctx context.Context, table string, filter Filter) (int64, error)
}

// tableColumns allow-lists the tables and columns reachable through
// the generic interface. Every listed table carries organization_id.
// Secrets (key_hash, password_hash) are deliberately absent.
var tableColumns = map[string]map[string]bool{
	"products":      cols("id", "organization_id", "name", "description", "price_cents", "active", "created_at", "updated_at"),
	"api_keys":      cols("id", "organization_id", "label", "is_admin", "rate_limit_per_minute", "created_by", "revoked_at", "created_at"),
	"subscriptions": cols("id", "organization_id", "plan", "status", "current_period_end", "metadata", "created_at", "updated_at"),
	"users":         cols("id", "organization_id", "email", "name", "role", "auth_provider", "created_at", "updated_at"),
}

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Querier returns the unscoped generic querier. Callers almost always
// want ScopeToPrincipal instead; the raw querier is for superadmin
// surfaces and internal plumbing.
func (s *Store) Querier() Querier {
	return &sqlQuerier{db: s.DB}
}

type sqlQuerier struct {
	db *sql.DB
}

func checkTable(table string, keys ...map[string]bool) (map[string]bool, error) {
	allowed, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for _, set := range keys {
		for col := range set {
			if !allowed[col] {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
			}
		}
	}
	return allowed, nil
}

func keySet(m map[string]any) map[string]bool {
	set := make(map[string]bool, len(m))
	for k := range m {
		set[k] = true
	}
	return set
}

// sortedKeys gives deterministic column order for built statements.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func columnList(allowed map[string]bool) string {
	names := make([]string, 0, len(allowed))
	for n := range allowed {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func whereClause(filter Filter, argOffset int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	var (
		parts []string
		args  []any
	)
	for i, k := range sortedKeys(filter) {
		parts = append(parts, fmt.Sprintf("%s = $%d", k, argOffset+i+1))
		args = append(args, filter[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func (g *sqlQuerier) FindMany(ctx context.Context, table string, filter Filter) ([]Row, error) {
	allowed, err := checkTable(table, keySet(filter))
	if err != nil {
		return nil, err
	}

	where, args := whereClause(filter, 0)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at", columnList(allowed), table, where)

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

func (g *sqlQuerier) FindUnique(ctx context.Context, table string, filter Filter) (Row, error) {
	results, err := g.FindMany(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

func (g *sqlQuerier) Create(ctx context.Context, table string, data Row) (Row, error) {
	if _, ok := data["id"]; !ok {
		// Collision-resistant random IDs, never derived from time.
		data = cloneRow(data)
		data["id"] = uuid.New()
	}

	allowed, err := checkTable(table, keySet(data))
	if err != nil {
		return nil, err
	}

	keys := sortedKeys(data)
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[k]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table,
		strings.Join(keys, ", "),
		strings.Join(placeholders, ", "),
		columnList(allowed),
	)

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

func (g *sqlQuerier) Update(ctx context.Context, table string, filter Filter, data Row) (int64, error) {
	if _, err := checkTable(table, keySet(filter), keySet(data)); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	keys := sortedKeys(data)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filter))
	for i, k := range keys {
		sets[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args = append(args, data[k])
	}

	where, whereArgs := whereClause(filter, len(keys))
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (g *sqlQuerier) Delete(ctx context.Context, table string, filter Filter) (int64, error) {
	if _, err := checkTable(table, keySet(filter)); err != nil {
		return 0, err
	}

	where, args := whereClause(filter, 0)
	query := fmt.Sprintf("DELETE FROM %s%s", table, where)
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func cloneRow(r Row) Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
