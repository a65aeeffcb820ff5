package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bomquote/internal/core"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestInputStep_EscapesRaw(t *testing.T) {
	out := renderString(t, Wizard(WizardView{
		State:  core.State{Step: core.StepInput, Raw: "<script>alert(1)</script>"},
		Accept: ".xlsx,.csv",
	}))

	if strings.Contains(out, "<script>alert") {
		t.Error("raw text was not escaped")
	}
	if !strings.Contains(out, `accept=".xlsx,.csv"`) {
		t.Errorf("accept attribute missing: %s", out)
	}
}

func TestMappingStep(t *testing.T) {
	st := core.State{
		Step:       core.StepMapping,
		Rows:       2,
		Columns:    3,
		Preview:    core.Grid{{"A1", "10"}, {"B2", "5", "ST"}},
		Mapping:    core.Mapping{0: core.RolePartNumber, 2: core.RoleManufacturer},
		CanProcess: true,
	}
	out := renderString(t, MappingStep(WizardView{State: st}))

	if got := strings.Count(out, `<select name="role"`); got != 3 {
		t.Errorf("selects = %d, want 3", got)
	}
	if got := strings.Count(out, "selected"); got != 2 {
		t.Errorf("selected options = %d, want 2", got)
	}
	if strings.Contains(out, "<button type=\"submit\" disabled>Process") {
		t.Error("process button disabled with part number mapped")
	}

	st.Mapping = core.Mapping{}
	st.CanProcess = false
	out = renderString(t, MappingStep(WizardView{State: st}))
	if !strings.Contains(out, "<button type=\"submit\" disabled>Process") {
		t.Error("process button enabled without part number")
	}

	st.Loading = true
	out = renderString(t, MappingStep(WizardView{State: st}))
	if !strings.Contains(out, "Processing...") || strings.Contains(out, ">Process</button>") {
		t.Error("loading state not rendered")
	}
}

func TestResultStep_Modes(t *testing.T) {
	rows := []core.ResultRow{
		{MPN: "LM317T", SellerName: "Mouser", Price: core.Some(1), DeliveryCoef: core.Some(0), Status: "found"},
		{MPN: "X", Status: "not found"},
	}
	st := core.State{
		Step:       core.StepResult,
		Page:       core.Paginate(2, 1, 10),
		ResultRows: 2,
		NotFound:   1,
	}

	short := renderString(t, ResultStep(WizardView{State: st, Mode: "short", Rows: rows}))
	if strings.Contains(short, "Mouser") || strings.Contains(short, "Markup") {
		t.Error("short mode shows full columns")
	}
	if !strings.Contains(short, "1.00") || !strings.Contains(short, "USD") {
		t.Error("price or default currency missing")
	}
	if strings.Count(short, `class="not-found"`) != 1 {
		t.Error("not found row not highlighted")
	}
	if strings.Contains(short, "Request a quote") {
		t.Error("quote offered while disabled")
	}

	full := renderString(t, ResultStep(WizardView{State: st, Mode: "full", Rows: rows, QuoteEnabled: true}))
	if !strings.Contains(full, "Mouser") || !strings.Contains(full, "Markup") {
		t.Error("full mode hides columns")
	}
	if !strings.Contains(full, "Request a quote") {
		t.Error("quote button missing")
	}
	if !strings.Contains(full, `aria-disabled="true">Previous`) || !strings.Contains(full, `aria-disabled="true">Next`) {
		t.Error("single page should disable both pager buttons")
	}
}

func TestResultStep_Empty(t *testing.T) {
	st := core.State{Step: core.StepResult, Page: core.Paginate(0, 1, 10)}
	out := renderString(t, ResultStep(WizardView{State: st, Mode: "short"}))

	if !strings.Contains(out, "No data to display") {
		t.Error("placeholder missing")
	}
	// # plus the seven short-mode columns
	if !strings.Contains(out, `colspan="8"`) {
		t.Errorf("placeholder colspan wrong: %s", out)
	}
}

func TestPageWithToast(t *testing.T) {
	out := renderString(t, Page("BOM", &Toast{Type: "error", Message: "Oops & co", Code: "ERR000"}, InputStep(WizardView{})))

	if !strings.HasPrefix(out, "<!doctype html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(out, "Oops &amp; co") || !strings.Contains(out, "alert-error") {
		t.Errorf("toast not rendered: %s", out)
	}
}

func TestQuoteModal(t *testing.T) {
	out := renderString(t, QuoteModal(QuoteForm{Name: `A "B"`, Error: "Enter your email"}))
	if !strings.Contains(out, `value="A &#34;B&#34;"`) {
		t.Errorf("name not escaped in attribute: %s", out)
	}
	if !strings.Contains(out, "Enter your email") {
		t.Error("error missing")
	}
}

func TestResultStep_PagerAndCellClasses(t *testing.T) {
	rows := []core.ResultRow{{MPN: "LM317T", Price: core.Some(2), Status: "found"}}
	st := core.State{Step: core.StepResult, Page: core.Paginate(25, 2, 10), ResultRows: 25}
	out := renderString(t, ResultStep(WizardView{State: st, Mode: "short", Rows: rows}))

	if !strings.Contains(out, `href="/result?page=1&amp;size=10"`) || !strings.Contains(out, `href="/result?page=3&amp;size=10"`) {
		t.Errorf("pager links missing: %s", out)
	}
	if !strings.Contains(out, "Page 2 of 3") {
		t.Error("page counter missing")
	}
	if !strings.Contains(out, `<td class="num">11</td>`) {
		t.Errorf("row number should continue from the previous page: %s", out)
	}
	if !strings.Contains(out, "<tr><td") || strings.Contains(out, `class=""`) {
		t.Error("rows and cells without a class should carry no class attribute")
	}
	if !strings.Contains(out, "<td>LM317T</td>") {
		t.Errorf("MPN cell wrong: %s", out)
	}
}
