package deals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

const pgUniqueViolation = "23505"

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// FindByFingerprint returns the deal with the given fingerprint.
func (s *PGStore) FindByFingerprint(ctx context.Context, fingerprint string) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE fingerprint = $1 LIMIT 1`
	deal, err := scanPGDeal(s.DB.QueryRowContext(ctx, query, fingerprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, eris.Wrap(err, "deals: find by fingerprint")
	}
	return deal, nil
}

// Insert creates a deal. A fingerprint collision returns ErrDuplicateFingerprint.
func (s *PGStore) Insert(ctx context.Context, deal Deal) error {
	const query = `
INSERT INTO deals (id, fingerprint, raw_text, extracted, status, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
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
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		if isPGUniqueViolation(err) {
			return ErrDuplicateFingerprint
		}
		return eris.Wrap(err, "deals: insert")
	}
	return nil
}

// Update writes the terminal state of a pending deal in one statement.
func (s *PGStore) Update(ctx context.Context, deal Deal) error {
	const query = `
UPDATE deals
SET status = $2, extracted = $3, last_error = $4, updated_at = $5
WHERE id = $1 AND status = 'pending'`
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
		deal.ID,
		string(deal.Status),
		extracted,
		nullableString(deal.LastError),
		updatedAt,
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
	err = s.DB.QueryRowContext(ctx, `SELECT status FROM deals WHERE id = $1`, deal.ID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "deals: update lookup")
	}
	return ErrNotPending
}

// GetByID returns a deal by id.
func (s *PGStore) GetByID(ctx context.Context, id string) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 LIMIT 1`
	deal, err := scanPGDeal(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, eris.Wrap(err, "deals: get by id")
	}
	return deal, nil
}

// List returns matching deals newest first along with the total match count.
func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]Deal, int, error) {
	filter = normalizeListFilter(filter)
	where, args := pgListWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM deals` + where
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, eris.Wrap(err, "deals: count")
	}

	query := fmt.Sprintf(`SELECT %s FROM deals%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		dealColumns, where, len(args)+1, len(args)+2)
	rows, err := s.DB.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "deals: list")
	}
	defer rows.Close()

	out := []Deal{}
	for rows.Next() {
		deal, err := scanPGDeal(rows)
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

func pgListWhere(f ListFilter) (string, []any) {
	var clauses []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		clauses = append(clauses, "status = "+next(string(f.Status)))
	}
	if v := strings.TrimSpace(f.Company); v != "" {
		clauses = append(clauses, `extracted->'entities'->>'company' ILIKE '%' || `+next(escapeLike(v))+` || '%'`)
	}
	if v := strings.TrimSpace(f.Sector); v != "" {
		clauses = append(clauses, `extracted->'entities'->>'sector' ILIKE '%' || `+next(escapeLike(v))+` || '%'`)
	}
	if v := strings.TrimSpace(f.Stage); v != "" {
		clauses = append(clauses, `lower(extracted->'tags'->>'stage') = lower(`+next(v)+`)`)
	}
	if v := strings.TrimSpace(f.Category); v != "" {
		clauses = append(clauses, `extracted->'tags'->'category' @> jsonb_build_array(`+next(v)+`::text)`)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanPGDeal(row rowScanner) (Deal, error) {
	var d Deal
	var status string
	var extracted sql.NullString
	var lastError sql.NullString
	if err := row.Scan(
		&d.ID,
		&d.Fingerprint,
		&d.RawText,
		&extracted,
		&status,
		&lastError,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return Deal{}, err
	}
	brief, err := decodeExtracted(extracted)
	if err != nil {
		return Deal{}, err
	}
	d.Status = Status(status)
	d.Extracted = brief
	d.LastError = stringPtr(lastError)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func isPGUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Store = (*PGStore)(nil)
