package money_test

import (
	"testing"

	"github.com/dukerupert/tramhuong/internal/money"
	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func TestFormatVND(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0 ₫"},
		{600, "600 ₫"},
		{30000, "30.000 ₫"},
		{2500000, "2.500.000 ₫"},
		{1234567890, "1.234.567.890 ₫"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, money.FormatVND(tt.amount))
		})
	}
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		original *int64
		want     int
	}{
		{"no original price", 2500000, nil, 0},
		{"original equal to current", 800000, ptr(800000), 0},
		{"original below current", 800000, ptr(700000), 0},
		{"kỳ nam rounds up", 2500000, ptr(3000000), 17},
		{"tự nhiên exact", 800000, ptr(1000000), 20},
		{"half rounds up", 1, ptr(8), 88},
		{"just under half rounds down", 2, ptr(3), 33},
		{"free item", 0, ptr(500), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, money.DiscountPercent(tt.current, tt.original))
		})
	}
}

func TestSavings(t *testing.T) {
	assert.Equal(t, int64(500000), money.Savings(2500000, ptr(3000000)))
	assert.Equal(t, int64(0), money.Savings(2500000, nil))
	assert.Equal(t, int64(0), money.Savings(2500000, ptr(2000000)))
}
