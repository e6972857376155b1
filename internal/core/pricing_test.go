package core_test

import (
	"testing"

	"lumberyard/internal/core"

	"github.com/shopspring/decimal"
)

func TestCalculateTotals(t *testing.T) {
	rate := decimal.RequireFromString("0.0825")
	tests := []struct {
		name                      string
		in                        core.PricingInput
		subtotal, fee, tax, total string
	}{
		{
			name: "reference quote",
			in: core.PricingInput{
				Lines:   []core.PriceLine{{Quantity: 100, UnitPrice: money("50.00"), Discount: money("5.00")}},
				TaxRate: rate,
			},
			subtotal: "4995.00", fee: "0.00", tax: "412.09", total: "5407.09",
		},
		{
			name: "tax exempt",
			in: core.PricingInput{
				Lines:     []core.PriceLine{{Quantity: 100, UnitPrice: money("50.00"), Discount: money("5.00")}},
				TaxRate:   rate,
				TaxExempt: true,
			},
			subtotal: "4995.00", fee: "0.00", tax: "0.00", total: "4995.00",
		},
		{
			name: "delivery fee below threshold is taxed",
			in: core.PricingInput{
				Lines:                []core.PriceLine{{Quantity: 10, UnitPrice: money("5.49")}},
				TaxRate:              decimal.RequireFromString("0.07"),
				HasDeliveryAddress:   true,
				DeliveryFeeThreshold: money("500.00"),
				DeliveryFeeAmount:    money("75.00"),
			},
			subtotal: "54.90", fee: "75.00", tax: "9.09", total: "138.99",
		},
		{
			name: "no fee at threshold",
			in: core.PricingInput{
				Lines:                []core.PriceLine{{Quantity: 10, UnitPrice: money("50.00")}},
				HasDeliveryAddress:   true,
				DeliveryFeeThreshold: money("500.00"),
				DeliveryFeeAmount:    money("75.00"),
			},
			subtotal: "500.00", fee: "0.00", tax: "0.00", total: "500.00",
		},
		{
			name: "order discount before tax",
			in: core.PricingInput{
				Lines:         []core.PriceLine{{Quantity: 2, UnitPrice: money("100.00")}},
				OrderDiscount: money("20.00"),
				TaxRate:       decimal.RequireFromString("0.10"),
			},
			subtotal: "200.00", fee: "0.00", tax: "18.00", total: "198.00",
		},
		{
			name: "unit prices round to cents",
			in: core.PricingInput{
				Lines: []core.PriceLine{
					{Quantity: 3, UnitPrice: money("0.333")},
					{Quantity: 3, UnitPrice: money("0.333")},
				},
			},
			subtotal: "1.98", fee: "0.00", tax: "0.00", total: "1.98",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.CalculateTotals(tt.in)
			if err != nil {
				t.Fatalf("CalculateTotals failed: %v", err)
			}
			if got.Subtotal.String() != tt.subtotal {
				t.Errorf("Expected subtotal %s, got %s", tt.subtotal, got.Subtotal)
			}
			if got.DeliveryFee.String() != tt.fee {
				t.Errorf("Expected fee %s, got %s", tt.fee, got.DeliveryFee)
			}
			if got.TaxAmount.String() != tt.tax {
				t.Errorf("Expected tax %s, got %s", tt.tax, got.TaxAmount)
			}
			if got.TotalAmount.String() != tt.total {
				t.Errorf("Expected total %s, got %s", tt.total, got.TotalAmount)
			}
			if !core.TotalsBalance(got.Subtotal, got.DiscountAmount, got.DeliveryFee, got.TaxAmount, got.TotalAmount) {
				t.Errorf("Expected totals to balance")
			}
		})
	}
}

func TestCalculateTotals_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		in    core.PricingInput
		field string
		line  int
	}{
		{"no lines", core.PricingInput{}, "items", 0},
		{"zero quantity", core.PricingInput{Lines: []core.PriceLine{{Quantity: 0, UnitPrice: money("1")}}}, "quantity", 1},
		{"negative price", core.PricingInput{Lines: []core.PriceLine{{Quantity: 1, UnitPrice: money("-1")}}}, "unitPrice", 1},
		{"negative discount", core.PricingInput{Lines: []core.PriceLine{
			{Quantity: 1, UnitPrice: money("1")},
			{Quantity: 1, UnitPrice: money("1"), Discount: money("-1")},
		}}, "discount", 2},
		{"discount above line", core.PricingInput{Lines: []core.PriceLine{{Quantity: 1, UnitPrice: money("1"), Discount: money("2")}}}, "discount", 1},
		{"order discount above subtotal", core.PricingInput{
			Lines:         []core.PriceLine{{Quantity: 1, UnitPrice: money("10")}},
			OrderDiscount: money("10.01"),
		}, "discountAmount", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.CalculateTotals(tt.in)
			e, ok := core.AsError(err)
			if !ok || e.Kind != core.KindValidation {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if len(e.Details) == 0 || e.Details[0].Field != tt.field || e.Details[0].Line != tt.line {
				t.Errorf("Expected detail field=%s line=%d, got %+v", tt.field, tt.line, e.Details)
			}
		})
	}
}
