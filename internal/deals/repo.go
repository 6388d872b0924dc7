package deals

import "context"

// Store persists deal records. Implementations enforce uniqueness of
// Fingerprint on Insert and only allow Update on pending records.
type Store interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (Deal, error)
	Insert(ctx context.Context, deal Deal) error
	Update(ctx context.Context, deal Deal) error
	GetByID(ctx context.Context, id string) (Deal, error)
	List(ctx context.Context, filter ListFilter) ([]Deal, int, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// normalizeListFilter clamps paging values.
func normalizeListFilter(f ListFilter) ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
