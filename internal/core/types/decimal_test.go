package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	got := Percent(MustMoney("14500"), decimal.NewFromInt(5))
	assert.True(t, got.Equal(MustMoney("725")), "got %s", got)
}

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "10.13", Fixed(Round2(MustMoney("10.125"))))
	assert.Equal(t, "-10.13", Fixed(Round2(MustMoney("-10.125"))))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum(MustMoney("0.1"), MustMoney("0.2")).Equal(MustMoney("0.3")))
	assert.True(t, Sum().IsZero())
}
