// Package templates holds the wizard's HTML views. The components live in
// .templ files; run "templ generate" after editing them.
package templates

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bomquote/internal/core"
)

// Toast is a one-shot notification shown at the top of the page.
type Toast struct {
	Type    string // "error", "success" or "info"
	Message string
	Action  string
	Code    string
}

func (t Toast) kind() string {
	if t.Type == "" {
		return "info"
	}
	return t.Type
}

// QuoteForm holds the values of the quote request form for redisplay.
type QuoteForm struct {
	Name  string
	Email string
	Phone string
	Error string
}

// WizardView is everything the wizard templates need for one render.
type WizardView struct {
	State        core.State
	Mode         string
	AutoSubmit   bool
	QuoteEnabled bool
	Accept       string
	Rows         []core.ResultRow // rows of the current page only
}

// Wizard renders the step the session is on.
func Wizard(v WizardView) templ.Component {
	switch v.State.Step {
	case core.StepMapping:
		return MappingStep(v)
	case core.StepResult:
		return ResultStep(v)
	default:
		return InputStep(v)
	}
}

type resultColumn struct {
	header string
	full   bool // hidden in short mode
	class  string
	cell   func(core.ResultRow) string
}

// truthy formats coefficients that the pricing service reports as 0 when
// not applicable.
func truthy(a core.Amount) string {
	if a.Valid && a.Value == 0 {
		return "-"
	}
	return a.Fixed()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var resultColumns = []resultColumn{
	{header: "MPN", cell: func(r core.ResultRow) string { return orDash(r.MPN) }},
	{header: "Manufacturer", cell: func(r core.ResultRow) string { return orDash(r.Manufacturer) }},
	{header: "Seller", full: true, cell: func(r core.ResultRow) string { return orDash(r.SellerName) }},
	{header: "Stock", class: "num", cell: func(r core.ResultRow) string { return r.Stock.Int() }},
	{header: "Requested", class: "num", cell: func(r core.ResultRow) string { return r.RequestedQuantity.Int() }},
	{header: "Offer qty", full: true, class: "num", cell: func(r core.ResultRow) string { return r.OfferQuantity.Int() }},
	{header: "Price", class: "num", cell: func(r core.ResultRow) string { return r.Price.Fixed() }},
	{header: "Currency", class: "num", cell: func(r core.ResultRow) string { return r.DisplayCurrency() }},
	{header: "Delivery coef.", full: true, class: "num", cell: func(r core.ResultRow) string { return truthy(r.DeliveryCoef) }},
	{header: "Markup", full: true, class: "num", cell: func(r core.ResultRow) string { return truthy(r.Markup) }},
	{header: "Target (purchase)", full: true, class: "num", cell: func(r core.ResultRow) string { return r.TargetPricePurchasing.Fixed() }},
	{header: "Cost with delivery", full: true, class: "num", cell: func(r core.ResultRow) string { return r.CostWithDelivery.Fixed() }},
	{header: "Target (sales)", full: true, class: "num", cell: func(r core.ResultRow) string { return r.TargetPriceSales.Fixed() }},
	{header: "Status", class: "status", cell: func(r core.ResultRow) string { return orDash(r.Status) }},
}

// visibleColumns returns the result columns shown in mode.
func visibleColumns(mode string) []resultColumn {
	if strings.EqualFold(mode, "full") {
		return resultColumns
	}
	cols := make([]resultColumn, 0, len(resultColumns))
	for _, c := range resultColumns {
		if !c.full {
			cols = append(cols, c)
		}
	}
	return cols
}

func pageHref(page, size int) string {
	return "/result?page=" + strconv.Itoa(page) + "&size=" + strconv.Itoa(size)
}
