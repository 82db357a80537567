package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// Store runs read-only analytical SQL against the financial tables the
// ingester loads into Postgres. Every statement is guarded before it
// reaches the database; the guard is the only thing standing between
// model-written SQL and the data, so it rejects rather than sanitizes.
type Store struct {
	db         *sql.DB
	maxRows    int
	catalogCap int
}

func NewStore(db *sql.DB, maxRows, catalogCap int) *Store {
	if maxRows <= 0 {
		maxRows = 50
	}
	if catalogCap <= 0 {
		catalogCap = 80
	}
	return &Store{db: db, maxRows: maxRows, catalogCap: catalogCap}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// TableSummaries lists public tables and their columns from
// information_schema, optionally filtered by a substring of the table
// name. The catalog is capped so a crowded database cannot blow up the
// planner prompt.
func (s *Store) TableSummaries(ctx context.Context, like string) ([]domain.TableSchema, error) {
	const query = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
  AND ($1 = '' OR table_name LIKE '%' || $1 || '%')
ORDER BY table_name, ordinal_position`

	rows, err := s.db.QueryContext(ctx, query, strings.ToLower(strings.TrimSpace(like)))
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	defer rows.Close()

	var (
		schemas []domain.TableSchema
		current *domain.TableSchema
	)
	for rows.Next() {
		var table, column, dataType string
		if err := rows.Scan(&table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if current == nil || current.Name != table {
			if len(schemas) >= s.catalogCap {
				break
			}
			schemas = append(schemas, domain.TableSchema{Name: table})
			current = &schemas[len(schemas)-1]
		}
		current.Columns = append(current.Columns, domain.Column{Name: column, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate information_schema: %w", err)
	}
	return schemas, nil
}

// Query executes one read-only statement and renders the result to
// strings, truncated to the configured row cap. Guard violations come
// back as domain.ErrInvalidInput; database failures as
// domain.ErrExecutionFailed.
func (s *Store) Query(ctx context.Context, query string) (domain.ResultSet, error) {
	if err := guardReadOnly(query); err != nil {
		return domain.ResultSet{}, domain.WrapError(domain.ErrInvalidInput, "sql guard", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return domain.ResultSet{}, domain.WrapError(domain.ErrExecutionFailed, "sql query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.ResultSet{}, domain.WrapError(domain.ErrExecutionFailed, "sql columns", err)
	}

	result := domain.ResultSet{Columns: columns}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= s.maxRows {
			break
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return domain.ResultSet{}, domain.WrapError(domain.ErrExecutionFailed, "sql scan", err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.ResultSet{}, domain.WrapError(domain.ErrExecutionFailed, "sql rows", err)
	}
	return result, nil
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var forbiddenKeywords = regexp.MustCompile(
	`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke|copy|vacuum|merge|call|do|execute|set|reset|listen|notify|comment)\b`,
)

// guardReadOnly allows exactly one SELECT or WITH statement. A trailing
// semicolon is tolerated; a semicolon anywhere else means statement
// stacking and is rejected outright.
func guardReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("empty statement")
	}
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	if match := forbiddenKeywords.FindString(trimmed); match != "" {
		return fmt.Errorf("forbidden keyword %q", strings.ToLower(match))
	}
	return nil
}
