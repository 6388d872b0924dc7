package deals

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so lexical order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a local SQLite database. It backs the CLI
// and single-node deployments.
type SQLiteStore struct {
	DB *sql.DB
}

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE fingerprint = ? LIMIT 1`
	deal, err := scanSQLiteDeal(s.DB.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, eris.Wrap(err, "deals: find by fingerprint")
	}
	return deal, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, deal Deal) error {
	const query = `
INSERT INTO deals (id, fingerprint, raw_text, extracted, status, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	extracted, err := encodeExtracted(deal.Extracted)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, query,
		deal.ID,
		deal.Fingerprint,
		deal.RawText,
		extracted,
		string(deal.Status),
		nullableString(deal.LastError),
		formatSQLiteTime(deal.CreatedAt),
		formatSQLiteTime(deal.UpdatedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateFingerprint
		}
		return eris.Wrap(err, "deals: insert")
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, deal Deal) error {
	const query = `
UPDATE deals
SET status = ?, extracted = ?, last_error = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`
	if !deal.Status.Terminal() {
		return ErrNotTerminal
	}
	extracted, err := encodeExtracted(deal.Extracted)
	if err != nil {
		return err
	}
	updatedAt := deal.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx, query,
		string(deal.Status),
		extracted,
		nullableString(deal.LastError),
		formatSQLiteTime(updatedAt),
		deal.ID,
	)
	if err != nil {
		return eris.Wrap(err, "deals: update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "deals: update rows affected")
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = s.DB.QueryRowContext(ctx, `SELECT status FROM deals WHERE id = ?`, deal.ID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "deals: update lookup")
	}
	return ErrNotPending
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = ? LIMIT 1`
	deal, err := scanSQLiteDeal(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, eris.Wrap(err, "deals: get by id")
	}
	return deal, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Deal, int, error) {
	filter = normalizeListFilter(filter)
	where, args := sqliteListWhere(filter)

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals`+where, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "deals: count")
	}

	query := `SELECT ` + dealColumns + ` FROM deals` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.DB.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "deals: list")
	}
	defer rows.Close()

	out := []Deal{}
	for rows.Next() {
		deal, err := scanSQLiteDeal(rows)
		if err != nil {
			return nil, 0, eris.Wrap(err, "deals: list scan")
		}
		out = append(out, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "deals: list rows")
	}
	return out, total, nil
}

func sqliteListWhere(f ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if v := strings.TrimSpace(f.Company); v != "" {
		clauses = append(clauses, `lower(json_extract(extracted, '$.entities.company')) LIKE '%' || lower(?) || '%' ESCAPE '\'`)
		args = append(args, escapeLike(v))
	}
	if v := strings.TrimSpace(f.Sector); v != "" {
		clauses = append(clauses, `lower(json_extract(extracted, '$.entities.sector')) LIKE '%' || lower(?) || '%' ESCAPE '\'`)
		args = append(args, escapeLike(v))
	}
	if v := strings.TrimSpace(f.Stage); v != "" {
		clauses = append(clauses, `lower(json_extract(extracted, '$.tags.stage')) = lower(?)`)
		args = append(args, v)
	}
	if v := strings.TrimSpace(f.Category); v != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM json_each(extracted, '$.tags.category') WHERE json_each.value = ?)`)
		args = append(args, v)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanSQLiteDeal(row rowScanner) (Deal, error) {
	var d Deal
	var status, createdAt, updatedAt string
	var extracted, lastError sql.NullString
	if err := row.Scan(
		&d.ID,
		&d.Fingerprint,
		&d.RawText,
		&extracted,
		&status,
		&lastError,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Deal{}, err
	}
	brief, err := decodeExtracted(extracted)
	if err != nil {
		return Deal{}, err
	}
	if d.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return Deal{}, err
	}
	if d.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return Deal{}, err
	}
	d.Status = Status(status)
	d.Extracted = brief
	d.LastError = stringPtr(lastError)
	return d, nil
}

func formatSQLiteTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "deals: parse timestamp %q", s)
		}
	}
	return t.UTC(), nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
