package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_DisplayPrice(t *testing.T) {
	p := domain.Plan{
		Price:        decimal.NewFromInt(1000),
		SpecialPrice: decimal.NewNullDecimal(decimal.NewFromInt(800)),
	}

	assert.True(t, decimal.NewFromInt(1000).Equal(p.DisplayPrice(false)))
	assert.True(t, decimal.NewFromInt(800).Equal(p.DisplayPrice(true)))

	p.SpecialPrice = decimal.NullDecimal{}
	assert.True(t, decimal.NewFromInt(1000).Equal(p.DisplayPrice(true)))
}

func TestPlan_Savings(t *testing.T) {
	tests := []struct {
		name     string
		original decimal.NullDecimal
		want     int64
	}{
		{name: "no original", want: 0},
		{name: "higher original", original: decimal.NewNullDecimal(decimal.NewFromInt(1200)), want: 200},
		{name: "lower original", original: decimal.NewNullDecimal(decimal.NewFromInt(900)), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.Plan{Price: decimal.NewFromInt(1000), OriginalPrice: tt.original}
			assert.True(t, decimal.NewFromInt(tt.want).Equal(p.Savings()), p.Savings().String())
		})
	}
}

func TestFeatures_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.Features
	}{
		{name: "array", raw: `["a","b"]`, want: domain.Features{"a", "b"}},
		{name: "newline string", raw: `"a\n b \n\nc"`, want: domain.Features{"a", "b", "c"}},
		{name: "comma string", raw: `"a, b"`, want: domain.Features{"a", "b"}},
		{name: "null", raw: `null`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var plan domain.Plan
			require.NoError(t, json.Unmarshal([]byte(`{"features":`+tt.raw+`}`), &plan))
			assert.Equal(t, tt.want, plan.Features)
		})
	}

	var f domain.Features
	require.Error(t, json.Unmarshal([]byte(`42`), &f))
}

func TestProduct_Plan(t *testing.T) {
	p := domain.Product{Plans: []domain.Plan{{ID: 1}, {ID: 2}}}

	got, ok := p.Plan(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	_, ok = p.Plan(3)
	assert.False(t, ok)
}
