package pricing

import "testing"

func TestEffectivePrice(t *testing.T) {
	cases := []struct {
		price, discount, want float64
	}{
		{100, 0, 100},
		{100, 10, 90},
		{19.99, 15, 16.99},
		{2.5, 50, 1.25},
		{10, 150, 0},
		{10, -5, 10},
	}
	for _, tc := range cases {
		if got := EffectivePrice(tc.price, tc.discount); got != tc.want {
			t.Errorf("EffectivePrice(%v, %v) = %v, want %v", tc.price, tc.discount, got, tc.want)
		}
	}
}

func TestTotal_SumsPerLine(t *testing.T) {
	lines := []Line{
		{Price: 40, Discount: 25, Quantity: 2}, // 30 * 2
		{Price: 3.3, Discount: 0, Quantity: 3}, // 9.9
		{Price: 0.1, Discount: 0, Quantity: 3}, // 0.3
	}
	if got := Total(lines); got != 70.2 {
		t.Fatalf("expected 70.2, got %v", got)
	}
	if got := Total(nil); got != 0 {
		t.Fatalf("expected 0 for empty cart, got %v", got)
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(12.5, 20, 4); got != 40 {
		t.Fatalf("expected 40, got %v", got)
	}
}

func TestTotal_MatchesDisplayedLines(t *testing.T) {
	// 0.99 at 15% is 0.8415 before rounding
	if got := EffectivePrice(0.99, 15); got != 0.84 {
		t.Fatalf("expected 0.84, got %v", got)
	}
	if got := LineTotal(0.99, 15, 10); got != 8.4 {
		t.Fatalf("expected 8.4, got %v", got)
	}
	lines := []Line{{Price: 0.99, Discount: 15, Quantity: 10}, {Price: 1.99, Discount: 33, Quantity: 3}}
	// 8.40 + 1.33*3
	if got := Total(lines); got != 12.39 {
		t.Fatalf("expected 12.39, got %v", got)
	}
}
