package deals

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"dealbrief-backend/internal/briefs"
)

const dealColumns = `id, fingerprint, raw_text, extracted, status, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeExtracted(b *briefs.Brief) (any, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "deals: marshal extracted")
	}
	return string(data), nil
}

func decodeExtracted(raw sql.NullString) (*briefs.Brief, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" || raw.String == "null" {
		return nil, nil
	}
	var b briefs.Brief
	if err := json.Unmarshal([]byte(raw.String), &b); err != nil {
		return nil, eris.Wrap(err, "deals: unmarshal extracted")
	}
	return &b, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// escapeLike escapes LIKE wildcards so user filters match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
