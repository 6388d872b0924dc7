package deals

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dealbrief-backend/internal/briefs"
)

// MemoryStore keeps deals in memory and is safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	byID          map[string]Deal
	byFingerprint map[string]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:          make(map[string]Deal),
		byFingerprint: make(map[string]string),
	}
}

// FindByFingerprint returns the deal with the given fingerprint.
func (s *MemoryStore) FindByFingerprint(ctx context.Context, fingerprint string) (Deal, error) {
	if err := ctx.Err(); err != nil {
		return Deal{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFingerprint[fingerprint]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return cloneDeal(s.byID[id]), nil
}

// Insert stores a new deal, rejecting duplicate fingerprints.
func (s *MemoryStore) Insert(ctx context.Context, deal Deal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byFingerprint[deal.Fingerprint]; exists {
		return ErrDuplicateFingerprint
	}
	s.byID[deal.ID] = cloneDeal(deal)
	s.byFingerprint[deal.Fingerprint] = deal.ID
	return nil
}

// Update writes the terminal state of a pending deal.
func (s *MemoryStore) Update(ctx context.Context, deal Deal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !deal.Status.Terminal() {
		return ErrNotTerminal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[deal.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status.Terminal() {
		return ErrNotPending
	}
	current.Status = deal.Status
	current.Extracted = cloneBrief(deal.Extracted)
	current.LastError = cloneString(deal.LastError)
	current.UpdatedAt = deal.UpdatedAt
	if current.UpdatedAt.IsZero() {
		current.UpdatedAt = time.Now().UTC()
	}
	s.byID[deal.ID] = current
	return nil
}

// GetByID returns a deal by id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Deal, error) {
	if err := ctx.Err(); err != nil {
		return Deal{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	deal, ok := s.byID[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return cloneDeal(deal), nil
}

// List returns matching deals newest first along with the total match count.
func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Deal, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	filter = normalizeListFilter(filter)

	s.mu.RLock()
	matched := make([]Deal, 0, len(s.byID))
	for _, d := range s.byID {
		if matchesFilter(d, filter) {
			matched = append(matched, cloneDeal(d))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []Deal{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func matchesFilter(d Deal, f ListFilter) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Company == "" && f.Sector == "" && f.Stage == "" && f.Category == "" {
		return true
	}
	if d.Extracted == nil {
		return false
	}
	e := d.Extracted
	if f.Company != "" && !containsFold(e.Entities.Company, f.Company) {
		return false
	}
	if f.Sector != "" && !containsFold(e.Entities.Sector, f.Sector) {
		return false
	}
	if f.Stage != "" && !strings.EqualFold(string(e.Tags.Stage), strings.TrimSpace(f.Stage)) {
		return false
	}
	if f.Category != "" {
		want := strings.TrimSpace(f.Category)
		found := false
		for _, c := range e.Tags.Category {
			if string(c) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsFold(value *string, needle string) bool {
	if value == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*value), strings.ToLower(needle))
}

func cloneDeal(d Deal) Deal {
	d.Extracted = cloneBrief(d.Extracted)
	d.LastError = cloneString(d.LastError)
	return d
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBrief(b *briefs.Brief) *briefs.Brief {
	if b == nil {
		return nil
	}
	out := *b
	out.InvestmentBrief = append([]string{}, b.InvestmentBrief...)
	out.Entities.Founders = append([]string{}, b.Entities.Founders...)
	out.Entities.NotableMetrics = append([]string{}, b.Entities.NotableMetrics...)
	out.Entities.Company = cloneString(b.Entities.Company)
	out.Entities.Sector = cloneString(b.Entities.Sector)
	out.Entities.Geography = cloneString(b.Entities.Geography)
	if b.Entities.RoundSizeUSD != nil {
		v := *b.Entities.RoundSizeUSD
		out.Entities.RoundSizeUSD = &v
	}
	out.Tags.Category = append([]briefs.Category{}, b.Tags.Category...)
	return &out
}

var _ Store = (*MemoryStore)(nil)
