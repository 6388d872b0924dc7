package deals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbrief-backend/internal/briefs"
)

var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"sqlite": func(t *testing.T) Store { return newSQLiteStore(t) },
}

func TestStoreInsertAndLookup(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			created := time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)
			deal := Deal{
				ID:          "deal-1",
				Fingerprint: Fingerprint("Acme raises"),
				RawText:     "Acme raises",
				Status:      StatusPending,
				CreatedAt:   created,
				UpdatedAt:   created,
			}
			require.NoError(t, store.Insert(ctx, deal))

			got, err := store.FindByFingerprint(ctx, deal.Fingerprint)
			require.NoError(t, err)
			assert.Equal(t, "deal-1", got.ID)
			assert.Equal(t, StatusPending, got.Status)
			assert.Nil(t, got.Extracted)
			assert.Nil(t, got.LastError)
			assert.True(t, got.CreatedAt.Equal(created))

			got, err = store.GetByID(ctx, "deal-1")
			require.NoError(t, err)
			assert.Equal(t, "Acme raises", got.RawText)

			_, err = store.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.FindByFingerprint(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRejectsDuplicateFingerprint(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			now := time.Now().UTC()
			first := Deal{ID: "a", Fingerprint: "fp", RawText: "x", Status: StatusPending, CreatedAt: now, UpdatedAt: now}
			second := first
			second.ID = "b"

			require.NoError(t, store.Insert(ctx, first))
			assert.ErrorIs(t, store.Insert(ctx, second), ErrDuplicateFingerprint)

			_, err := store.GetByID(ctx, "b")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreUpdateOnlyFromPending(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Microsecond)
			deal := Deal{ID: "a", Fingerprint: "fp", RawText: "x", Status: StatusPending, CreatedAt: now, UpdatedAt: now}
			require.NoError(t, store.Insert(ctx, deal))

			deal.Status = StatusProcessed
			deal.Extracted = sampleBrief("Acme", briefs.StageSeed, briefs.CategoryFintech)
			deal.UpdatedAt = now.Add(time.Second)
			require.NoError(t, store.Update(ctx, deal))

			got, err := store.GetByID(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, StatusProcessed, got.Status)
			assert.Equal(t, deal.Extracted, got.Extracted)
			assert.True(t, got.UpdatedAt.Equal(deal.UpdatedAt))

			failed := deal
			failed.Status = StatusFailed
			failed.Extracted = nil
			failed.LastError = strPtr("late")
			assert.ErrorIs(t, store.Update(ctx, failed), ErrNotPending)

			missing := failed
			missing.ID = "missing"
			assert.ErrorIs(t, store.Update(ctx, missing), ErrNotFound)

			second := Deal{ID: "b", Fingerprint: "fp-b", RawText: "y", Status: StatusPending, CreatedAt: now, UpdatedAt: now}
			require.NoError(t, store.Insert(ctx, second))
			assert.ErrorIs(t, store.Update(ctx, second), ErrNotTerminal)
			got, err = store.GetByID(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, StatusPending, got.Status)
		})
	}
}

func TestStoreListFiltersAndPages(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			records := []Deal{
				processedDeal("d1", "Acme seed", base, sampleBrief("Acme Robotics", briefs.StageSeed, briefs.CategoryDeepTech)),
				processedDeal("d2", "Bolt series a", base.Add(time.Minute), sampleBrief("Bolt Pay", briefs.StageSeriesA, briefs.CategoryFintech)),
				processedDeal("d3", "Sun series b", base.Add(2*time.Minute), sampleBrief("Sunfield", briefs.StageSeriesB, briefs.CategoryClimateTech, briefs.CategoryFintech)),
				{
					ID: "d4", Fingerprint: Fingerprint("broken"), RawText: "broken",
					Status: StatusFailed, LastError: strPtr("generation failed: boom"),
					CreatedAt: base.Add(3 * time.Minute), UpdatedAt: base.Add(3 * time.Minute),
				},
			}
			for _, d := range records {
				require.NoError(t, store.Insert(ctx, d))
			}

			ids := func(ds []Deal) []string {
				out := make([]string, 0, len(ds))
				for _, d := range ds {
					out = append(out, d.ID)
				}
				return out
			}

			all, total, err := store.List(ctx, ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			assert.Equal(t, []string{"d4", "d3", "d2", "d1"}, ids(all))

			got, total, err := store.List(ctx, ListFilter{Status: StatusFailed})
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			assert.Equal(t, []string{"d4"}, ids(got))
			require.NotNil(t, got[0].LastError)
			assert.Equal(t, "generation failed: boom", *got[0].LastError)

			got, _, err = store.List(ctx, ListFilter{Company: "acme"})
			require.NoError(t, err)
			assert.Equal(t, []string{"d1"}, ids(got))

			got, _, err = store.List(ctx, ListFilter{Stage: "series a"})
			require.NoError(t, err)
			assert.Equal(t, []string{"d2"}, ids(got))

			got, total, err = store.List(ctx, ListFilter{Category: "fintech"})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Equal(t, []string{"d3", "d2"}, ids(got))

			got, total, err = store.List(ctx, ListFilter{Category: "Fintech"})
			require.NoError(t, err)
			assert.Equal(t, 0, total)
			assert.Empty(t, got)

			got, _, err = store.List(ctx, ListFilter{Company: "100%"})
			require.NoError(t, err)
			assert.Empty(t, got)

			got, total, err = store.List(ctx, ListFilter{Limit: 2, Offset: 1})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			assert.Equal(t, []string{"d3", "d2"}, ids(got))

			got, total, err = store.List(ctx, ListFilter{Offset: 10})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	deal := processedDeal("a", "x", time.Now().UTC(), sampleBrief("Acme", briefs.StageSeed))
	require.NoError(t, store.Insert(ctx, deal))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	got.Extracted.InvestmentBrief[0] = "mutated"
	*got.Extracted.Entities.Company = "Other"

	again, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Acme point 1", again.Extracted.InvestmentBrief[0])
	assert.Equal(t, "Acme", *again.Extracted.Entities.Company)
}

func TestMemoryStoreConcurrentInsert(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Insert(ctx, Deal{ID: string(rune('a' + i)), Fingerprint: "same", Status: StatusPending, CreatedAt: now, UpdatedAt: now})
			if err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)
}

func TestNormalizeListFilter(t *testing.T) {
	assert.Equal(t, defaultListLimit, normalizeListFilter(ListFilter{}).Limit)
	assert.Equal(t, maxListLimit, normalizeListFilter(ListFilter{Limit: 1000}).Limit)
	assert.Equal(t, 0, normalizeListFilter(ListFilter{Offset: -3}).Offset)
}

func TestSQLiteStoreRejectsInconsistentState(t *testing.T) {
	store := newSQLiteStore(t)
	now := time.Now().UTC()
	err := store.Insert(context.Background(), Deal{
		ID: "x", Fingerprint: "fp", RawText: "x", Status: StatusProcessed, CreatedAt: now, UpdatedAt: now,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateFingerprint)
}

func TestSQLiteTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 10, time.FixedZone("x", 3600))
	got, err := parseSQLiteTime(formatSQLiteTime(ts))
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseSQLiteTime("yesterday")
	assert.Error(t, err)
}
