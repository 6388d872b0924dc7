package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dealbrief-backend/internal/briefs"
	storagedb "dealbrief-backend/internal/shared/storage/db"
)

func strPtr(s string) *string { return &s }

func sampleBrief(company string, stage briefs.Stage, categories ...briefs.Category) *briefs.Brief {
	bullets := make([]string, briefs.BulletCount)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("%s point %d", company, i+1)
	}
	if categories == nil {
		categories = []briefs.Category{}
	}
	tagStage := stage
	if tagStage == briefs.StageUnknown {
		tagStage = briefs.StageSeed
	}
	size := 5_000_000.0
	return &briefs.Brief{
		InvestmentBrief: bullets,
		Entities: briefs.Entities{
			Company:        strPtr(company),
			Founders:       []string{},
			Stage:          stage,
			RoundSizeUSD:   &size,
			NotableMetrics: []string{},
		},
		Tags: briefs.Tags{Category: categories, Stage: tagStage},
	}
}

func briefJSON(t *testing.T, b *briefs.Brief) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	return string(data)
}

func invalidBriefJSON(t *testing.T) string {
	t.Helper()
	b := sampleBrief("Acme", briefs.StageSeed)
	b.InvestmentBrief = b.InvestmentBrief[:9]
	return briefJSON(t, b)
}

func processedDeal(id, text string, createdAt time.Time, brief *briefs.Brief) Deal {
	return Deal{
		ID:          id,
		Fingerprint: Fingerprint(text),
		RawText:     text,
		Extracted:   brief,
		Status:      StatusProcessed,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	conn, err := storagedb.Connect(ctx, storagedb.DriverSQLite, ":memory:", storagedb.DefaultMigrateOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, storagedb.RunMigrations(ctx, conn, storagedb.DriverSQLite))
	return &SQLiteStore{DB: conn}
}
