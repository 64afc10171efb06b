package model7_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitanda/internal/core/tx"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/domain/series"
	"kitanda/internal/domain/totals"
	"kitanda/internal/infrastructure/numerator"
	"kitanda/internal/infrastructure/storage/memory"
)

type timings struct{ regimes []string }

func (o *timings) ReportGenerated(regime string, _ time.Duration) {
	o.regimes = append(o.regimes, regime)
}

func TestGenerate_FromIssuedDocuments(t *testing.T) {
	ctx := context.Background()
	seriesRepo := memory.NewSeriesRepo()
	docRepo := memory.NewDocumentRepo()
	converter, err := currency.NewConverter(nil)
	require.NoError(t, err)
	rules := totals.DefaultRules()

	allocator := series.NewAllocator(seriesRepo, numerator.NewMemoryStore(), nil)
	docs := documents.NewService(docRepo, allocator, totals.NewEngine(rules), converter, tx.NoopManager{}, nil)
	s := series.NewSeries("A", "Main", 2026)
	require.NoError(t, seriesRepo.Create(ctx, s))

	issue := func(typ documents.DocType, date time.Time, price string) *documents.Document {
		item := documents.NewLineItem("x", decimal.RequireFromString(price))
		draft, err := docs.CreateDraft(ctx, documents.DraftInput{
			Type: typ, SeriesID: s.ID, Date: date, Items: []documents.LineItem{item},
		})
		require.NoError(t, err)
		doc, err := docs.Issue(ctx, draft.ID)
		require.NoError(t, err)
		return doc
	}

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	issue(documents.TypeInvoice, march, "10000")
	cancelled := issue(documents.TypeInvoice, march, "5000")
	_, err = docs.Cancel(ctx, cancelled.ID, "duplicated")
	require.NoError(t, err)
	issue(documents.TypeInvoice, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "90000")

	observer := &timings{}
	svc := model7.NewService(docRepo, rules, observer)

	report, err := svc.Generate(ctx, model7.Period{Year: 2026, Month: 3}, model7.RegimeGeneral)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.True(t, report.General.TotalFavorState.Equal(decimal.NewFromInt(1400)))
	assert.True(t, report.General.Regularizations.Equal(decimal.NewFromInt(700)))
	assert.True(t, report.General.AmountPayable.Equal(decimal.NewFromInt(700)))
	assert.False(t, report.GeneratedAt.IsZero())
	assert.Equal(t, []string{"GENERAL"}, observer.regimes)

	_, err = svc.Generate(ctx, model7.Period{Year: 2026, Month: 0}, model7.RegimeGeneral)
	assert.Error(t, err)
}

type snapshotRunner struct{ calls int }

func (r *snapshotRunner) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func TestGenerate_ReadsInsideSnapshot(t *testing.T) {
	svc := model7.NewService(memory.NewDocumentRepo(), totals.DefaultRules(), nil)
	runner := &snapshotRunner{}
	svc.SetSnapshot(runner)

	report, err := svc.Generate(context.Background(), model7.Period{Year: 2026, Month: 1}, model7.RegimeSimplified)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Documents)
	assert.Equal(t, 1, runner.calls)
}

func TestGenerate_AngolanMidnightBelongsToNewMonth(t *testing.T) {
	ctx := context.Background()
	docRepo := memory.NewDocumentRepo()
	converter, err := currency.NewConverter(nil)
	require.NoError(t, err)
	rules := totals.DefaultRules()
	allocator := series.NewAllocator(memory.NewSeriesRepo(), numerator.NewMemoryStore(), nil)
	docs := documents.NewService(docRepo, allocator, totals.NewEngine(rules), converter, tx.NoopManager{}, nil)

	wat := time.FixedZone("WAT", 3600)
	_, err = docs.RegisterPurchase(ctx, documents.PurchaseInput{
		SupplierNumber: "FT 2026/77",
		Date:           time.Date(2026, 4, 1, 0, 30, 0, 0, wat),
		SupplierName:   "Fornecedor Lda",
		Items:          []documents.LineItem{documents.NewLineItem("Papel", decimal.NewFromInt(1000))},
		Status:         documents.StatusPaid,
	})
	require.NoError(t, err)

	svc := model7.NewService(docRepo, rules, nil)

	march, err := svc.Generate(ctx, model7.Period{Year: 2026, Month: 3}, model7.RegimeGeneral)
	require.NoError(t, err)
	assert.Equal(t, 0, march.General.PurchaseDocuments)

	april, err := svc.Generate(ctx, model7.Period{Year: 2026, Month: 4}, model7.RegimeGeneral)
	require.NoError(t, err)
	assert.Equal(t, 1, april.General.PurchaseDocuments)
	assert.True(t, april.General.DeductibleTax.Equal(decimal.NewFromInt(140)))
}
