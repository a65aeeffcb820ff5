package core

import (
	"encoding/json"
	"testing"
)

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{`12`, Some(12)},
		{`0.125`, Some(0.125)},
		{`"7"`, Some(7)},
		{`"1,5"`, Some(1.5)},
		{`null`, Amount{}},
		{`""`, Amount{}},
		{`"-"`, Amount{}},
		{`"по запросу"`, Amount{Raw: "по запросу"}},
		{`" on request "`, Amount{Raw: "on request"}},
		{`false`, Amount{Raw: "false"}},
		{`[1]`, Amount{Raw: "[1]"}},
	}
	for _, tt := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.in, err)
			continue
		}
		if a != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, a, tt.want)
		}
	}
}

func TestAmountFormat(t *testing.T) {
	if got := Some(0.5).Fixed(); got != "0.50" {
		t.Errorf("Fixed = %q", got)
	}
	if got := Some(1200).Int(); got != "1200" {
		t.Errorf("Int = %q", got)
	}
	if got := (Amount{}).Fixed(); got != "-" {
		t.Errorf("absent Fixed = %q", got)
	}
	if got := (Amount{}).Int(); got != "-" {
		t.Errorf("absent Int = %q", got)
	}
	if got := (Amount{Raw: "по запросу"}).Fixed(); got != "по запросу" {
		t.Errorf("raw Fixed = %q", got)
	}

	out, err := json.Marshal([]Amount{Some(2), {Raw: "n/a"}, {}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[2,"n/a",null]` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestResultRow_UnmarshalLooseText(t *testing.T) {
	in := `{"mpn":12345,"manufacturer":null,"seller_name":true,"currency":"EUR",
		"status":"found","price":"по запросу","stock":false,"requested_quantity":"10"}`

	var r ResultRow
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	want := ResultRow{
		MPN:               "12345",
		SellerName:        "true",
		Currency:          "EUR",
		Status:            "found",
		Price:             Amount{Raw: "по запросу"},
		Stock:             Amount{Raw: "false"},
		RequestedQuantity: Some(10),
	}
	if r != want {
		t.Errorf("row = %+v, want %+v", r, want)
	}
}

func TestResultRow_NotFound(t *testing.T) {
	for _, s := range []string{"Не найдено", "not found", "NOT_FOUND", " not-found ", "NotFound"} {
		if !(ResultRow{Status: s}).NotFound() {
			t.Errorf("status %q should be not found", s)
		}
	}
	for _, s := range []string{"", "found", "in stock"} {
		if (ResultRow{Status: s}).NotFound() {
			t.Errorf("status %q should not be not found", s)
		}
	}
}

func TestResultCounts(t *testing.T) {
	var nilResult *Result
	if nilResult.Len() != 0 || nilResult.NotFoundCount() != 0 {
		t.Error("nil result should be empty")
	}

	r := &Result{Data: []ResultRow{{Status: "ok"}, {Status: "not found"}, {Status: "не найдено"}}}
	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
	if r.NotFoundCount() != 2 {
		t.Errorf("NotFoundCount = %d, want 2", r.NotFoundCount())
	}
	if got := r.Data[0].DisplayCurrency(); got != DefaultCurrency {
		t.Errorf("DisplayCurrency = %q", got)
	}
}
