package totals

import (
	"errors"
	"math"
	"testing"

	"github.com/iliyamo/field-interventions/internal/model"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name  string
		items []model.LineItem
		rate  float64
		want  model.Totals
	}{
		{
			name: "diagnostic and parts at 20%",
			items: []model.LineItem{
				{Label: "Diagnostic", Quantity: 1, UnitPrice: 50.00},
				{Label: "Part", Quantity: 2, UnitPrice: 12.50},
			},
			rate: 20,
			want: model.Totals{AmountExclTax: 75, TaxAmount: 15, AmountInclTax: 90},
		},
		{
			name:  "zero rate",
			items: []model.LineItem{{Label: "Labour", Quantity: 1.5, UnitPrice: 40}},
			rate:  0,
			want:  model.Totals{AmountExclTax: 60, TaxAmount: 0, AmountInclTax: 60},
		},
		{
			name:  "tax rounded to cents",
			items: []model.LineItem{{Label: "Cable", Quantity: 3, UnitPrice: 3.33}},
			rate:  5.5,
			want:  model.Totals{AmountExclTax: 9.99, TaxAmount: 0.55, AmountInclTax: 10.54},
		},
		{
			name: "free line next to a paid one",
			items: []model.LineItem{
				{Label: "Travel", Quantity: 1, UnitPrice: 0},
				{Label: "Repair", Quantity: 1, UnitPrice: 10},
			},
			rate: 20,
			want: model.Totals{AmountExclTax: 10, TaxAmount: 2, AmountInclTax: 12},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.items, tc.rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestComputeRejects(t *testing.T) {
	cases := []struct {
		name  string
		items []model.LineItem
		rate  float64
		want  error
	}{
		{name: "empty list", items: nil, rate: 20, want: ErrNoLineItems},
		{name: "blank label", items: []model.LineItem{{Label: "  ", Quantity: 1, UnitPrice: 1}}, rate: 20, want: ErrInvalidLineItem},
		{name: "zero quantity", items: []model.LineItem{{Label: "x", Quantity: 0, UnitPrice: 1}}, rate: 20, want: ErrInvalidLineItem},
		{name: "negative quantity", items: []model.LineItem{{Label: "x", Quantity: -2, UnitPrice: 1}}, rate: 20, want: ErrInvalidLineItem},
		{name: "negative price", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: -1}}, rate: 20, want: ErrInvalidLineItem},
		{name: "NaN price", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: math.NaN()}}, rate: 20, want: ErrInvalidLineItem},
		{name: "all free", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 0}}, rate: 20, want: ErrNonPositiveTotal},
		{name: "rate above 100", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 1}}, rate: 120, want: ErrInvalidTaxRate},
		{name: "negative rate", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 1}}, rate: -1, want: ErrInvalidTaxRate},
		{name: "rate with three decimals", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 1}}, rate: 5.555, want: ErrInvalidTaxRate},
		{name: "sub-cent total", items: []model.LineItem{{Label: "x", Quantity: 0.001, UnitPrice: 1}}, rate: 20, want: ErrNonPositiveTotal},
		{name: "overflow to infinity", items: []model.LineItem{{Label: "x", Quantity: 1e200, UnitPrice: 1e200}}, rate: 20, want: ErrAmountTooLarge},
		{name: "infinite quantity", items: []model.LineItem{{Label: "x", Quantity: math.Inf(1), UnitPrice: 1}}, rate: 20, want: ErrInvalidLineItem},
		{name: "above column maximum", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 1e11}}, rate: 20, want: ErrAmountTooLarge},
		{name: "tax pushes total over maximum", items: []model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 900_000_000}}, rate: 20, want: ErrAmountTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.items, tc.rate)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestComputeBoundaries(t *testing.T) {
	got, err := Compute([]model.LineItem{{Label: "x", Quantity: 1, UnitPrice: 0.005}}, 0)
	if err != nil || got.AmountExclTax != 0.01 {
		t.Fatalf("half cent rounds up: got %+v, %v", got, err)
	}
	got, err = Compute([]model.LineItem{{Label: "x", Quantity: 1, UnitPrice: MaxAmount}}, 0)
	if err != nil || got.AmountInclTax != MaxAmount {
		t.Fatalf("maximum amount: got %+v, %v", got, err)
	}
	if err := CheckTaxRate(19.6); err != nil {
		t.Fatalf("19.6 rejected: %v", err)
	}
	if err := CheckTaxRate(33.33); err != nil {
		t.Fatalf("33.33 rejected: %v", err)
	}
}

func TestComputeLineErrorIndex(t *testing.T) {
	items := []model.LineItem{
		{Label: "ok", Quantity: 1, UnitPrice: 1},
		{Label: "bad", Quantity: 0, UnitPrice: 1},
	}
	_, err := Compute(items, 20)
	var le *LineError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LineError, got %v", err)
	}
	if le.Index != 1 || le.Field != "quantity" {
		t.Fatalf("unexpected line error: %+v", le)
	}
}

// The inclusive amount always equals the exclusive amount plus tax, to the
// cent, and neither is negative.
func TestComputeSumInvariant(t *testing.T) {
	prices := []float64{0.01, 0.1, 0.99, 1.005, 2.675, 12.5, 19.99, 333.333, 1000}
	qtys := []float64{0.25, 1, 1.5, 3, 7, 12}
	rates := []float64{0, 2.1, 5.5, 10, 19.6, 20, 33.3}
	for _, p := range prices {
		for _, q := range qtys {
			for _, r := range rates {
				items := []model.LineItem{{Label: "l", Quantity: q, UnitPrice: p}, {Label: "m", Quantity: 1, UnitPrice: p / 3}}
				got, err := Compute(items, r)
				if err != nil {
					t.Fatalf("p=%v q=%v r=%v: %v", p, q, r, err)
				}
				if got.AmountExclTax < 0 || got.TaxAmount < 0 {
					t.Fatalf("negative amount: %+v", got)
				}
				if math.Abs(got.AmountInclTax-(got.AmountExclTax+got.TaxAmount)) > 1e-9 {
					t.Fatalf("p=%v q=%v r=%v: ttc %v != ht %v + tva %v", p, q, r, got.AmountInclTax, got.AmountExclTax, got.TaxAmount)
				}
			}
		}
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		1.005:  1.01,
		2.675:  2.68,
		0.004:  0,
		-1.005: -1.01,
		15:     15,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}
