package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is shown when the pricing service leaves currency empty.
const DefaultCurrency = "USD"

// Amount is an optional number from the pricing service. It accepts JSON
// numbers, numeric strings and null. Anything else the service sends, such
// as "on request" or false, is kept verbatim in Raw.
type Amount struct {
	Value float64
	Valid bool
	Raw   string
}

// Some returns a valid Amount.
func Some(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if b[0] != '"' {
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			*a = Amount{Raw: string(b)}
			return nil
		}
		*a = Some(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		*a = Amount{}
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		*a = Amount{Raw: s}
		return nil
	}
	*a = Some(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case a.Valid:
		return json.Marshal(a.Value)
	case a.Raw != "":
		return json.Marshal(a.Raw)
	default:
		return []byte("null"), nil
	}
}

// Int formats the amount as a quantity, "-" when absent.
func (a Amount) Int() string {
	if !a.Valid {
		return a.text()
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

// Fixed formats the amount with two decimals, "-" when absent.
func (a Amount) Fixed() string {
	if !a.Valid {
		return a.text()
	}
	return strconv.FormatFloat(a.Value, 'f', 2, 64)
}

func (a Amount) text() string {
	if a.Raw == "" {
		return "-"
	}
	return a.Raw
}

// looseText decodes a JSON string, number or bool as text.
type looseText string

func (t *looseText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = looseText(s)
	default:
		*t = looseText(b)
	}
	return nil
}

// ResultRow is one matched line returned by the pricing service. Rows are
// never modified after they are received.
type ResultRow struct {
	MPN                   string `json:"mpn"`
	Manufacturer          string `json:"manufacturer"`
	SellerName            string `json:"seller_name"`
	Stock                 Amount `json:"stock"`
	RequestedQuantity     Amount `json:"requested_quantity"`
	OfferQuantity         Amount `json:"offer_quantity"`
	Price                 Amount `json:"price"`
	Currency              string `json:"currency"`
	DeliveryCoef          Amount `json:"delivery_coef"`
	Markup                Amount `json:"markup"`
	TargetPricePurchasing Amount `json:"target_price_purchasing"`
	CostWithDelivery      Amount `json:"cost_with_delivery"`
	TargetPriceSales      Amount `json:"target_price_sales"`
	Status                string `json:"status"`
}

// UnmarshalJSON implements json.Unmarshaler. Text fields accept numbers and
// bools so one odd cell does not reject the whole response.
func (r *ResultRow) UnmarshalJSON(b []byte) error {
	type plain ResultRow
	var aux struct {
		plain
		MPN          looseText `json:"mpn"`
		Manufacturer looseText `json:"manufacturer"`
		SellerName   looseText `json:"seller_name"`
		Currency     looseText `json:"currency"`
		Status       looseText `json:"status"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*r = ResultRow(aux.plain)
	r.MPN = string(aux.MPN)
	r.Manufacturer = string(aux.Manufacturer)
	r.SellerName = string(aux.SellerName)
	r.Currency = string(aux.Currency)
	r.Status = string(aux.Status)
	return nil
}

// notFoundTags are the status values the pricing service uses for misses.
var notFoundTags = map[string]bool{
	"не найдено": true,
	"not-found":  true,
	"not_found":  true,
	"not found":  true,
	"notfound":   true,
}

// NotFound reports whether the service could not match this row.
func (r ResultRow) NotFound() bool {
	return notFoundTags[strings.ToLower(strings.TrimSpace(r.Status))]
}

// DisplayCurrency returns the currency, defaulting to USD.
func (r ResultRow) DisplayCurrency() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// Result is a complete pricing response.
type Result struct {
	Data       []ResultRow `json:"data"`
	Error      string      `json:"error,omitempty"`
	ReceivedAt time.Time   `json:"-"`
}

// Len returns the number of rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// NotFoundCount returns how many rows were not matched.
func (r *Result) NotFoundCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, row := range r.Data {
		if row.NotFound() {
			n++
		}
	}
	return n
}
