package totals

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitanda/internal/core/apperror"
)

func salesInput(lines ...Line) Input {
	return Input{
		Kind:                  KindSales,
		Currency:              BaseCurrency,
		ExchangeRate:          decimal.NewFromInt(1),
		GlobalDiscountPercent: decimal.Zero,
		Retention:             RetentionNone,
		Lines:                 lines,
	}
}

func product(qty, price, discount, rate string) Line {
	return Line{Quantity: d(qty), UnitPrice: d(price), DiscountPercent: d(discount), TaxRatePercent: d(rate), Kind: ItemProduct}
}

func service(qty, price, rate string) Line {
	return Line{Quantity: d(qty), UnitPrice: d(price), DiscountPercent: decimal.Zero, TaxRatePercent: d(rate), Kind: ItemService}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, label string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: want %s, got %s", label, want, got)
}

func TestCompute_TwoItemExample(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(
		product("10", "1000", "0", "14"),
		product("1", "5000", "10", "0"),
	)
	in.GlobalDiscountPercent = d("5")

	got, err := engine.Compute(in)
	require.NoError(t, err)

	assertMoney(t, "14500", got.Subtotal, "subtotal")
	assertMoney(t, "1400", got.TaxAmount, "tax")
	assertMoney(t, "725", got.GlobalDiscountAmount, "discount")
	assertMoney(t, "0", got.WithholdingAmount, "withholding")
	assertMoney(t, "0", got.RetentionAmount, "retention")
	assertMoney(t, "15175", got.Total, "total")
	assertMoney(t, "15175", got.ContraValue, "contra")
	assert.False(t, got.Negative)
}

func TestCompute_WithholdingThreshold(t *testing.T) {
	engine := NewEngine(DefaultRules())

	below, err := engine.Compute(salesInput(service("1", "19999.99", "14")))
	require.NoError(t, err)
	assertMoney(t, "0", below.WithholdingAmount, "below threshold")

	at, err := engine.Compute(salesInput(service("1", "20000.00", "14")))
	require.NoError(t, err)
	assertMoney(t, "1300", at.WithholdingAmount, "at threshold")
	assertMoney(t, "21500", at.Total, "total at threshold")
}

func TestCompute_WithholdingUsesAOAThresholdButOriginalAmount(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(service("1", "30", "0"))
	in.Currency = "USD"
	in.ExchangeRate = d("850")

	got, err := engine.Compute(in)
	require.NoError(t, err)
	// 30 USD * 850 = 25500 AOA >= 20000, withholding stays in USD.
	assertMoney(t, "1.95", got.WithholdingAmount, "withholding")
	assertMoney(t, "28.05", got.Total, "total")
	assertMoney(t, "23842.5", got.ContraValue, "contra")
}

func TestCompute_ProductsNeverWithheld(t *testing.T) {
	engine := NewEngine(DefaultRules())
	got, err := engine.Compute(salesInput(product("1", "500000", "0", "14")))
	require.NoError(t, err)
	assertMoney(t, "0", got.WithholdingAmount, "withholding")
}

func TestCompute_PurchaseSkipsWithholding(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(service("1", "100000", "14"))
	in.Kind = KindPurchase

	got, err := engine.Compute(in)
	require.NoError(t, err)
	assertMoney(t, "0", got.WithholdingAmount, "withholding")
	assertMoney(t, "114000", got.Total, "total")
}

func TestCompute_RetentionModes(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(product("1", "10000", "0", "14"))

	cases := []struct {
		mode RetentionMode
		want string
	}{
		{Retention50, "700"},
		{Retention100, "1400"},
		{RetentionNone, "0"},
		{Retention50, "700"},
	}
	for _, c := range cases {
		in.Retention = c.mode
		got, err := engine.Compute(in)
		require.NoError(t, err)
		assertMoney(t, "1400", got.TaxAmount, "tax")
		assertMoney(t, c.want, got.RetentionAmount, string(c.mode))
	}
}

func TestCompute_PurchaseRetentionExample(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(product("1", "7142.857142857142857", "0", "14"))
	in.Kind = KindPurchase
	in.Retention = Retention50

	got, err := engine.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.TaxAmount.StringFixed(2))
	assert.Equal(t, "500.00", got.RetentionAmount.StringFixed(2))
}

func TestCompute_NegativeTotalIsFlaggedNotRejected(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(service("1", "20000", "0"))
	in.GlobalDiscountPercent = d("100")

	got, err := engine.Compute(in)
	require.NoError(t, err)
	assertMoney(t, "-1300", got.Total, "total")
	assert.True(t, got.Negative)
}

func TestCompute_InvalidTaxRate(t *testing.T) {
	engine := NewEngine(DefaultRules())
	_, err := engine.Compute(salesInput(product("1", "10", "0", "0"), product("1", "10", "0", "10")))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTaxRate, appErr.Code)
	assert.Equal(t, 2, appErr.Details["lineNo"])
}

func TestCompute_RejectsNonPositiveRate(t *testing.T) {
	engine := NewEngine(DefaultRules())
	in := salesInput(product("1", "10", "0", "14"))
	in.ExchangeRate = decimal.Zero

	_, err := engine.Compute(in)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCurrency))
}

func TestCompute_CustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.TaxTiers = append(rules.TaxTiers, d("16"))
	rules.WithholdingThreshold = d("1000")

	got, err := NewEngine(rules).Compute(salesInput(service("1", "1000", "16")))
	require.NoError(t, err)
	assertMoney(t, "160", got.TaxAmount, "tax")
	assertMoney(t, "65", got.WithholdingAmount, "withholding")
}

func TestCompute_TotalIdentityProperty(t *testing.T) {
	engine := NewEngine(DefaultRules())
	rng := rand.New(rand.NewSource(42))
	rates := []string{"0", "5", "7", "14"}
	modes := []RetentionMode{RetentionNone, Retention50, Retention100}

	for i := 0; i < 500; i++ {
		var lines []Line
		for n := rng.Intn(6); n >= 0; n-- {
			kind := ItemProduct
			if rng.Intn(2) == 0 {
				kind = ItemService
			}
			lines = append(lines, Line{
				Quantity:        decimal.NewFromInt(int64(rng.Intn(50))),
				UnitPrice:       decimal.New(int64(rng.Intn(5_000_000)), -2),
				DiscountPercent: decimal.NewFromInt(int64(rng.Intn(101))),
				TaxRatePercent:  d(rates[rng.Intn(len(rates))]),
				Kind:            kind,
			})
		}
		in := salesInput(lines...)
		in.GlobalDiscountPercent = decimal.NewFromInt(int64(rng.Intn(101)))
		in.Retention = modes[rng.Intn(len(modes))]
		if rng.Intn(2) == 0 {
			in.Kind = KindPurchase
		}

		got, err := engine.Compute(in)
		require.NoError(t, err)

		identity := got.Subtotal.Add(got.TaxAmount).Sub(got.GlobalDiscountAmount).Sub(got.WithholdingAmount).Sub(got.RetentionAmount)
		require.True(t, got.Total.Equal(identity), "iteration %d: %s != %s", i, got.Total, identity)
		if in.Kind == KindPurchase {
			require.True(t, got.WithholdingAmount.IsZero())
		}
	}
}

func TestTaxBreakdown(t *testing.T) {
	engine := NewEngine(DefaultRules())
	buckets, err := engine.TaxBreakdown([]Line{
		product("10", "1000", "0", "14"),
		product("1", "5000", "10", "0"),
		product("2", "500", "0", "14"),
	})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assertMoney(t, "14", buckets[0].Rate, "first rate")
	assertMoney(t, "11000", buckets[0].Base, "base 14")
	assertMoney(t, "1540", buckets[0].Tax, "tax 14")
	assertMoney(t, "4500", buckets[1].Base, "base 0")
	assertMoney(t, "0", buckets[1].Tax, "tax 0")
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	bad := DefaultRules()
	bad.WithholdingRate = d("6.5")
	assert.Error(t, bad.Validate())

	empty := DefaultRules()
	empty.TaxTiers = nil
	assert.Error(t, empty.Validate())
}
