package core

import (
	"github.com/shopspring/decimal"
)

// PriceLine is one priced line entering the calculator.
type PriceLine struct {
	Quantity  int
	UnitPrice Money
	Discount  Money
}

// PricingInput carries everything the calculator needs; it performs no lookups.
type PricingInput struct {
	Lines                []PriceLine
	OrderDiscount        Money
	TaxRate              decimal.Decimal
	TaxExempt            bool
	HasDeliveryAddress   bool
	DeliveryFeeThreshold Money
	DeliveryFeeAmount    Money
}

// Totals is the calculator output. Every amount is already rounded to two places and
// TotalAmount == Subtotal - DiscountAmount + DeliveryFee + TaxAmount holds exactly.
type Totals struct {
	Lines          []PricedLine
	Subtotal       Money
	DiscountAmount Money
	DeliveryFee    Money
	TaxAmount      Money
	TotalAmount    Money
}

// PricedLine is a normalized input line with its subtotal.
type PricedLine struct {
	Quantity  int
	UnitPrice Money
	Discount  Money
	Subtotal  Money
}

// CalculateTotals derives subtotal, delivery fee, tax and total from item lines.
//
//	subtotal    = Σ(qty × unitPrice − discount)
//	deliveryFee = feeAmount if a delivery address is present and subtotal < threshold
//	taxableBase = subtotal − orderDiscount + deliveryFee
//	tax         = 0 if exempt, else round2(taxableBase × rate)
//	total       = taxableBase + tax
func CalculateTotals(in PricingInput) (Totals, error) {
	if len(in.Lines) == 0 {
		return Totals{}, Validationf(CodeValidationFailed, "at least one line item is required").
			WithDetails(Detail{Field: "items", Reason: "must contain at least one item"})
	}
	if in.TaxRate.IsNegative() {
		return Totals{}, Validationf(CodeValidationFailed, "tax rate cannot be negative, got %s", in.TaxRate)
	}

	var details []Detail
	out := Totals{Lines: make([]PricedLine, 0, len(in.Lines))}
	subtotal := ZeroMoney
	for i, l := range in.Lines {
		line := i + 1
		price := l.UnitPrice.Round()
		discount := l.Discount.Round()
		switch {
		case l.Quantity <= 0:
			details = append(details, Detail{Line: line, Field: "quantity", Reason: "must be greater than zero"})
			continue
		case price.IsNegative():
			details = append(details, Detail{Line: line, Field: "unitPrice", Reason: "cannot be negative"})
			continue
		case discount.IsNegative():
			details = append(details, Detail{Line: line, Field: "discount", Reason: "cannot be negative"})
			continue
		}
		gross := price.MulQty(l.Quantity)
		if discount.GreaterThan(gross) {
			details = append(details, Detail{Line: line, Field: "discount", Reason: "exceeds line amount"})
			continue
		}
		lineSubtotal := gross.Sub(discount).Round()
		subtotal = subtotal.Add(lineSubtotal)
		out.Lines = append(out.Lines, PricedLine{
			Quantity:  l.Quantity,
			UnitPrice: price,
			Discount:  discount,
			Subtotal:  lineSubtotal,
		})
	}
	if len(details) > 0 {
		return Totals{}, Validationf(CodeValidationFailed, "invalid line items").WithDetails(details...)
	}

	orderDiscount := in.OrderDiscount.Round()
	if err := orderDiscount.RequireNonNegative("discountAmount"); err != nil {
		return Totals{}, err
	}
	if orderDiscount.GreaterThan(subtotal) {
		return Totals{}, Validationf(CodeValidationFailed, "discount %s exceeds subtotal %s", orderDiscount, subtotal).
			WithDetails(Detail{Field: "discountAmount", Reason: "exceeds subtotal"})
	}

	deliveryFee := ZeroMoney
	if in.HasDeliveryAddress && subtotal.LessThan(in.DeliveryFeeThreshold) {
		deliveryFee = in.DeliveryFeeAmount.Round()
	}

	taxableBase := subtotal.Sub(orderDiscount).Add(deliveryFee)
	tax := ZeroMoney
	if !in.TaxExempt {
		tax = taxableBase.MulRate(in.TaxRate).Round()
	}

	out.Subtotal = subtotal
	out.DiscountAmount = orderDiscount
	out.DeliveryFee = deliveryFee
	out.TaxAmount = tax
	out.TotalAmount = taxableBase.Add(tax)
	return out, nil
}

// TotalsBalance reports whether total == subtotal − discount + deliveryFee + tax
// after two-place rounding.
func TotalsBalance(subtotal, discount, deliveryFee, tax, total Money) bool {
	return subtotal.Sub(discount).Add(deliveryFee).Add(tax).Round().Equal(total.Round())
}
