package dao

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/querymesh/schema"
)

// SQLDAO reads entities from a relational database. It supports the
// sqlite3, mysql and postgres dialects and doubles as the schema source
// for catalog introspection.
type SQLDAO struct {
	db       *sql.DB
	dialect  string
	sourceID string
}

// SQLDAOOptions configures a SQLDAO.
type SQLDAOOptions struct {
	// SourceID labels descriptors produced by introspection. Defaults to
	// the dialect name.
	SourceID string
}

// NewSQLDAO wraps an open database handle for the given dialect.
func NewSQLDAO(db *sql.DB, dialect string, optFns ...func(o *SQLDAOOptions)) (*SQLDAO, error) {
	if db == nil {
		return nil, fmt.Errorf("dao: database handle is required")
	}
	switch dialect {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("dao: unsupported dialect %q", dialect)
	}
	opts := SQLDAOOptions{SourceID: dialect}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SQLDAO{db: db, dialect: dialect, sourceID: opts.SourceID}, nil
}

// Query implements DAO.
func (d *SQLDAO) Query(ctx context.Context, q Query) ([]Row, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	for _, f := range q.Filters {
		col := d.quote(f.Field)
		switch f.Op {
		case OpEq:
			where = append(where, col+" = ?")
			args = append(args, f.Value)
		case OpLike:
			where = append(where, col+" LIKE ?")
			args = append(args, likePattern(f.Value))
		case OpGte:
			where = append(where, col+" >= ?")
			args = append(args, f.Value)
		case OpLte:
			where = append(where, col+" <= ?")
			args = append(args, f.Value)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(d.quote(q.Entity))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	rows, err := d.db.QueryContext(ctx, d.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("dao: querying %s: %w", q.Entity, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// DescribeSchema implements schema.Source by reading the backend catalog.
func (d *SQLDAO) DescribeSchema(ctx context.Context) ([]schema.Descriptor, error) {
	if err := d.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	switch d.dialect {
	case "sqlite3":
		return d.describeSQLite(ctx)
	case "mysql":
		return d.describeMySQL(ctx)
	default:
		return d.describePostgres(ctx)
	}
}

// Close implements DAO.
func (d *SQLDAO) Close() error { return d.db.Close() }

func (d *SQLDAO) describeSQLite(ctx context.Context) ([]schema.Descriptor, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("dao: scanning table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}

	var descs []schema.Descriptor
	for _, name := range names {
		desc, err := d.describeSQLiteTable(ctx, name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func (d *SQLDAO) describeSQLiteTable(ctx context.Context, table string) (schema.Descriptor, error) {
	desc := schema.Descriptor{SourceID: d.sourceID, Entity: table}
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.quote(table)))
	if err != nil {
		return desc, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			native  string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &native, &notNull, &dflt, &pk); err != nil {
			return desc, fmt.Errorf("dao: scanning column of %s: %w", table, err)
		}
		typ, err := schema.MapNativeType(table, name, native)
		if err != nil {
			return desc, err
		}
		desc.Fields = append(desc.Fields, schema.FieldDescriptor{
			Name:     name,
			Type:     typ,
			Nullable: notNull == 0,
			Key:      pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return desc, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	if len(desc.KeyFields()) == 0 {
		desc.Keyless = true
	}
	return desc, nil
}

func (d *SQLDAO) describeMySQL(ctx context.Context) ([]schema.Descriptor, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE,
        COLUMN_KEY, COLUMN_COMMENT
        FROM information_schema.COLUMNS
        WHERE TABLE_SCHEMA = DATABASE()
        ORDER BY TABLE_NAME, ORDINAL_POSITION`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	return collectCatalog(rows, d.sourceID, func(rows *sql.Rows) (string, schema.FieldDescriptor, error) {
		var table, column, native, nullable, key, comment string
		if err := rows.Scan(&table, &column, &native, &nullable, &key, &comment); err != nil {
			return "", schema.FieldDescriptor{}, fmt.Errorf("dao: scanning catalog row: %w", err)
		}
		typ, err := schema.MapNativeType(table, column, native)
		if err != nil {
			return "", schema.FieldDescriptor{}, err
		}
		return table, schema.FieldDescriptor{
			Name:        column,
			Type:        typ,
			Nullable:    strings.EqualFold(nullable, "YES"),
			Key:         key == "PRI",
			Description: comment,
		}, nil
	})
}

func (d *SQLDAO) describePostgres(ctx context.Context) ([]schema.Descriptor, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
        CASE WHEN k.column_name IS NULL THEN 0 ELSE 1 END AS is_key
        FROM information_schema.columns c
        LEFT JOIN (
            SELECT kcu.table_name, kcu.column_name
            FROM information_schema.table_constraints tc
            JOIN information_schema.key_column_usage kcu
              ON tc.constraint_name = kcu.constraint_name
             AND tc.table_schema = kcu.table_schema
            WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public'
        ) k ON c.table_name = k.table_name AND c.column_name = k.column_name
        WHERE c.table_schema = 'public'
        ORDER BY c.table_name, c.ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	return collectCatalog(rows, d.sourceID, func(rows *sql.Rows) (string, schema.FieldDescriptor, error) {
		var (
			table, column, native, nullable string
			isKey                           int
		)
		if err := rows.Scan(&table, &column, &native, &nullable, &isKey); err != nil {
			return "", schema.FieldDescriptor{}, fmt.Errorf("dao: scanning catalog row: %w", err)
		}
		typ, err := schema.MapNativeType(table, column, native)
		if err != nil {
			return "", schema.FieldDescriptor{}, err
		}
		return table, schema.FieldDescriptor{
			Name:     column,
			Type:     typ,
			Nullable: strings.EqualFold(nullable, "YES"),
			Key:      isKey == 1,
		}, nil
	})
}

// collectCatalog folds per-column catalog rows into descriptors, one per
// table, preserving the backend's ordering of both.
func collectCatalog(rows *sql.Rows, sourceID string, scan func(*sql.Rows) (string, schema.FieldDescriptor, error)) ([]schema.Descriptor, error) {
	var (
		descs []schema.Descriptor
		index = make(map[string]int)
	)
	for rows.Next() {
		table, field, err := scan(rows)
		if err != nil {
			return nil, err
		}
		i, ok := index[table]
		if !ok {
			i = len(descs)
			index[table] = i
			descs = append(descs, schema.Descriptor{SourceID: sourceID, Entity: table})
		}
		descs[i].Fields = append(descs[i].Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	for i := range descs {
		if len(descs[i].KeyFields()) == 0 {
			descs[i].Keyless = true
		}
	}
	return descs, nil
}

// scanRows reads all result rows into generic maps, decoding []byte values
// to strings so results marshal cleanly to JSON.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dao: reading columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dao: scanning row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if raw, ok := values[i].([]byte); ok {
				row[col] = string(raw)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dao: iterating rows: %w", err)
	}
	return out, nil
}

// likePattern wraps a filter value in wildcards unless the caller already
// supplied them.
func likePattern(v any) string {
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, "%_") {
		return s
	}
	return "%" + s + "%"
}

func (d *SQLDAO) quote(ident string) string {
	if d.dialect == "mysql" {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

func (d *SQLDAO) rebind(query string) string {
	if d.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
