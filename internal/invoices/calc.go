package invoices

import (
	"github.com/garageworks/garage-backend/pkg/db/models"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown holds every persisted amount of an invoice.
type Breakdown struct {
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	DiscountAmount decimal.Decimal
	AfterDiscount  decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// Compute prices a subtotal. Percentages are literal values, so 16 means 16%.
// Each amount is rounded to cents before the next step uses it, keeping the stored
// fields consistent with each other.
func Compute(subtotal, discountPct, taxPct decimal.Decimal) (Breakdown, error) {
	if subtotal.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}
	if err := validatePercent("discount", discountPct); err != nil {
		return Breakdown{}, err
	}
	if err := validatePercent("tax_rate", taxPct); err != nil {
		return Breakdown{}, err
	}

	subtotal = subtotal.Round(2)
	discountAmount := subtotal.Mul(discountPct).Div(hundred).Round(2)
	afterDiscount := subtotal.Sub(discountAmount)
	taxAmount := afterDiscount.Mul(taxPct).Div(hundred).Round(2)

	return Breakdown{
		Subtotal:       subtotal,
		Discount:       discountPct.Round(2),
		DiscountAmount: discountAmount,
		AfterDiscount:  afterDiscount,
		TaxRate:        taxPct.Round(2),
		TaxAmount:      taxAmount,
		TotalAmount:    afterDiscount.Add(taxAmount),
	}, nil
}

// PartsCost sums quantity x unit price over usage rows, ignoring any cached totals.
func PartsCost(rows []models.ServicePart) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	return total
}

func validatePercent(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between 0 and 100", field).
			WithDetails(map[string]any{"field": field, "value": v.String()})
	}
	return nil
}
