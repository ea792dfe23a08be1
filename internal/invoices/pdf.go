package invoices

import (
	"fmt"
	"strings"

	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

// Renderer lays out invoices as PDF documents under the garage's letterhead.
type Renderer struct {
	business config.InvoiceConfig
}

func NewRenderer(business config.InvoiceConfig) *Renderer {
	return &Renderer{business: business}
}

func (r *Renderer) Render(detail *InvoiceDetail) ([]byte, error) {
	if detail == nil {
		return nil, fmt.Errorf("invoice required")
	}

	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, r.business.BusinessName, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "INVOICE", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(r.business.BusinessAddress, props.Text{Size: 9}),
			text.New(r.business.BusinessPhone, props.Text{Size: 9, Top: 5}),
			text.New(r.business.BusinessEmail, props.Text{Size: 9, Top: 10}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+detail.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date of issue: "+detail.CreatedAt.Format("02 Jan 2006"), props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Status: "+humanize(detail.PaymentStatus.String()), props.Text{Size: 9, Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(deref(detail.CustomerName), props.Text{Top: 5}),
			text.New(deref(detail.CustomerPhone), props.Text{Size: 9, Top: 10}),
			text.New(deref(detail.CustomerEmail), props.Text{Size: 9, Top: 15}),
			text.New(deref(detail.CustomerAddress), props.Text{Size: 9, Top: 20}),
		),
		col.New(6).Add(
			text.New("Vehicle", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(detail.RegistrationNumber, props.Text{Top: 5, Align: align.Right}),
			text.New(detail.MakeModel, props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Serviced "+detail.ServiceDate.Format("02 Jan 2006"), props.Text{Size: 9, Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, detail.ServiceDescription, props.Text{Size: 9, Top: 2}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(6, "Labour", props.Text{Size: 9}),
		text.NewCol(2, "1", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, amount(detail.LaborCost), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, amount(detail.LaborCost), props.Text{Size: 9, Align: align.Right}),
	)
	for _, item := range detail.Items {
		label := item.PartName
		if item.PartNumber != nil && *item.PartNumber != "" {
			label = fmt.Sprintf("%s (%s)", item.PartName, *item.PartNumber)
		}
		m.AddRow(8,
			text.NewCol(6, label, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, amount(item.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, amount(item.TotalPrice), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", amount(detail.Subtotal), false},
		{fmt.Sprintf("Discount (%s%%)", detail.Discount.String()), "-" + amount(detail.DiscountAmount), false},
		{fmt.Sprintf("Tax (%s%%)", detail.TaxRate.String()), amount(detail.TaxAmount), false},
		{"Total", amount(detail.TotalAmount), true},
	}
	for _, line := range totals {
		style := props.Text{Size: 9}
		if line.bold {
			style.Style = fontstyle.Bold
		}
		valueStyle := style
		valueStyle.Align = align.Right
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, line.label, style),
			text.NewCol(2, line.value, valueStyle),
		)
	}

	if detail.PaymentMethod != nil {
		paid := "Payment method: " + humanize(detail.PaymentMethod.String())
		if detail.PaymentDate != nil {
			paid += ", paid " + detail.PaymentDate.Format("02 Jan 2006")
		}
		m.AddRow(10, text.NewCol(12, paid, props.Text{Size: 9, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func amount(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func humanize(v string) string {
	v = strings.ReplaceAll(v, "_", " ")
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + v[1:]
}
