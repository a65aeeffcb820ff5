package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/bomquote/internal/config"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/gateway"
	"github.com/JonMunkholm/bomquote/internal/quote"
)

type stubProcessor struct {
	mu   sync.Mutex
	reqs []core.ProcessRequest
	res  *core.Result
	err  error
}

func (p *stubProcessor) Process(ctx context.Context, req core.ProcessRequest) (*core.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.res, p.err
}

type stubQuotes struct {
	contact quote.Contact
	rows    int
	err     error
}

func (q *stubQuotes) Send(ctx context.Context, c quote.Contact, rows []core.ResultRow) error {
	if err := c.Validate(); err != nil {
		return err
	}
	q.contact = c
	q.rows = len(rows)
	return q.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, PreviewRows: 5},
		Wizard: config.WizardConfig{DisplayMode: config.ModeShort, SessionTTL: time.Hour, DefaultPageSize: 10},
	}
}

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	proc   *stubProcessor
	quotes *stubQuotes
	server *Server
}

func newHarness(t *testing.T, cfg *config.Config, withQuotes bool) *harness {
	t.Helper()
	proc := &stubProcessor{res: sampleResult(23)}
	svc := core.NewService(
		core.NewStore(cfg.Wizard.SessionTTL, cfg.Wizard.DefaultPageSize),
		proc,
		core.Options{Mode: cfg.Wizard.DisplayMode, PreviewRows: cfg.Upload.PreviewRows},
	)

	h := &harness{t: t, proc: proc}
	var qs QuoteSender
	if withQuotes {
		h.quotes = &stubQuotes{}
		qs = h.quotes
	}

	s := NewServer(svc, qs, cfg)
	h.server = s
	h.srv = httptest.NewServer(s.Router())
	t.Cleanup(func() {
		h.srv.Close()
		s.Shutdown(context.Background())
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{Jar: jar}
	return h
}

func sampleResult(n int) *core.Result {
	rows := make([]core.ResultRow, n)
	for i := range rows {
		rows[i] = core.ResultRow{
			MPN:        fmt.Sprintf("PART-%02d", i+1),
			SellerName: "Seller X",
			Price:      core.Some(float64(i) + 0.5),
			Status:     "found",
		}
	}
	rows[n-1].Status = "Не найдено"
	return &core.Result{Data: rows}
}

func (h *harness) do(req *http.Request) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) get(path string, headers ...string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(req)
}

func (h *harness) postForm(path string, form url.Values, headers ...string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(req)
}

func (h *harness) state() core.State {
	h.t.Helper()
	resp, body := h.get("/api/state")
	require.Equal(h.t, http.StatusOK, resp.StatusCode, body)

	var raw struct {
		Step       string       `json:"step"`
		Rows       int          `json:"rows"`
		Columns    int          `json:"columns"`
		Mapping    core.Mapping `json:"mapping"`
		Loading    bool         `json:"loading"`
		CanProcess bool         `json:"can_process"`
		Page       core.Page    `json:"page"`
		ResultRows int          `json:"result_rows"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(body), &raw))

	st := core.State{
		Rows: raw.Rows, Columns: raw.Columns, Mapping: raw.Mapping, Loading: raw.Loading,
		CanProcess: raw.CanProcess, Page: raw.Page, ResultRows: raw.ResultRows,
	}
	switch raw.Step {
	case "input":
		st.Step = core.StepInput
	case "mapping":
		st.Step = core.StepMapping
	case "result":
		st.Step = core.StepResult
	}
	return st
}

func TestWizardFlow(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	resp, body := h.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Step 1: Upload data")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = h.postForm("/input/text", url.Values{"raw": {"A1\t10\tTI\nB2\t5\tST"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Step 2: Map columns")
	assert.Contains(t, body, "B2")

	st := h.state()
	assert.Equal(t, core.StepMapping, st.Step)
	assert.Equal(t, core.Mapping{0: core.RolePartNumber}, st.Mapping)

	h.postForm("/mapping", url.Values{"column": {"1"}, "role": {"quantity"}})
	h.postForm("/mapping", url.Values{"column": {"2"}, "role": {"manufacturer"}})
	assert.Equal(t, core.Mapping{0: core.RolePartNumber, 1: core.RoleQuantity, 2: core.RoleManufacturer}, h.state().Mapping)

	resp, body = h.postForm("/process", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Step 3: Results")
	assert.Contains(t, body, "PART-01")
	assert.NotContains(t, body, "PART-11")
	assert.Contains(t, body, "Page 1 of 3")
	// short mode hides seller
	assert.NotContains(t, body, "Seller X")

	require.Len(t, h.proc.reqs, 1)
	assert.Equal(t, "short", h.proc.reqs[0].Mode)
	assert.Len(t, h.proc.reqs[0].Data, 2)

	_, body = h.get("/result?page=3&size=10")
	assert.Contains(t, body, "PART-23")
	assert.Contains(t, body, `class="not-found"`)
	assert.Contains(t, body, "Page 3 of 3")

	_, body = h.get("/result?size=5")
	assert.Contains(t, body, "Page 1 of 5")

	resp, body = h.postForm("/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Step 1: Upload data")
	assert.Equal(t, core.StepInput, h.state().Step)
}

func TestInputText_EmptyShowsAlert(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	resp, body := h.postForm("/input/text", url.Values{"raw": {"   "}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "There is no data to process")
	assert.Contains(t, body, "INP001")
	assert.Equal(t, core.StepInput, h.state().Step)

	// the flash is shown once
	_, body = h.get("/")
	assert.NotContains(t, body, "INP001")
}

func TestInputText_HTMXReturnsFragmentAndToast(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	resp, body := h.postForm("/input/text", url.Values{"raw": {"A1"}}, "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Step 2: Map columns")
	assert.NotContains(t, body, "<!doctype html>")

	resp, _ = h.postForm("/process", nil, "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.postForm("/input/text", url.Values{"raw": {"A1"}}, "HX-Request", "true")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "none", resp.Header.Get("HX-Reswap"))

	var trigger map[string]toastPayload
	require.NoError(t, json.Unmarshal([]byte(resp.Header.Get("HX-Trigger")), &trigger))
	assert.Equal(t, "SYS001", trigger["showToast"].Code)
}

func TestInputFile(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"LM317T", 10}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"NE555", 4}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	resp, body := h.upload("bom.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "bom.xlsx")

	st := h.state()
	assert.Equal(t, core.StepMapping, st.Step)
	assert.Equal(t, 2, st.Rows)
}

func TestInputFile_Unsupported(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	_, body := h.upload("bom.pdf", []byte("%PDF-1.4"))
	assert.Contains(t, body, "INP002")
	assert.Equal(t, core.StepInput, h.state().Step)
}

func TestInputFile_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	h := newHarness(t, cfg, false)

	_, body := h.upload("bom.csv", bytes.Repeat([]byte("A1,1\n"), 100))
	assert.Contains(t, body, "INP003")
	assert.Equal(t, core.StepInput, h.state().Step)
}

func (h *harness) upload(name string, data []byte) (*http.Response, string) {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(h.t, err)
	part.Write(data)
	require.NoError(h.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/input/file", &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req)
}

func TestMapping_Errors(t *testing.T) {
	h := newHarness(t, testConfig(), false)
	h.postForm("/input/text", url.Values{"raw": {"A1\t1"}})

	_, body := h.postForm("/mapping", url.Values{"column": {"0"}, "role": {"price"}})
	assert.Contains(t, body, "MAP002")

	_, body = h.postForm("/mapping", url.Values{"column": {"9"}, "role": {"quantity"}})
	assert.Contains(t, body, "MAP003")

	h.postForm("/mapping", url.Values{"column": {"0"}, "role": {""}})
	st := h.state()
	assert.False(t, st.CanProcess)

	_, body = h.postForm("/process", nil)
	assert.Contains(t, body, "MAP001")
	assert.Empty(t, h.proc.reqs)
}

func TestProcess_GatewayFailureStaysOnMapping(t *testing.T) {
	h := newHarness(t, testConfig(), false)
	h.proc.err = &gateway.StatusError{StatusCode: 500, Message: "boom"}
	h.postForm("/input/text", url.Values{"raw": {"A1"}})

	_, body := h.postForm("/process", nil)
	assert.Contains(t, body, "GW004")
	assert.Contains(t, body, "Step 2: Map columns")

	st := h.state()
	assert.Equal(t, core.StepMapping, st.Step)
	assert.False(t, st.Loading)
}

func TestResult_FullModeAndEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Wizard.DisplayMode = config.ModeFull
	h := newHarness(t, cfg, false)
	h.proc.res = sampleResult(2)

	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	_, body := h.postForm("/process", nil)
	assert.Contains(t, body, "Seller X")
	assert.Contains(t, body, "Cost with delivery")

	h.postForm("/reset", nil)
	h.proc.res = &core.Result{Data: []core.ResultRow{}}
	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	_, body = h.postForm("/process", nil)
	assert.Contains(t, body, "No data to display")
	assert.Contains(t, body, "Page 1 of 1")
}

func TestExport(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	_, body := h.get("/export")
	assert.Contains(t, body, "RES001")

	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	h.postForm("/process", nil)

	resp, body := h.get("/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.XLSXContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "result.xlsx")

	f, err := excelize.OpenReader(strings.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(core.ExportSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 24)
}

func TestQuote_Unavailable(t *testing.T) {
	h := newHarness(t, testConfig(), false)
	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	_, body := h.postForm("/process", nil)
	assert.NotContains(t, body, "Request a quote")

	_, body = h.get("/quote")
	assert.Contains(t, body, "QUO001")
}

func TestQuote_Flow(t *testing.T) {
	h := newHarness(t, testConfig(), true)

	_, body := h.get("/quote")
	assert.Contains(t, body, "SYS001")

	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	_, body = h.postForm("/process", nil)
	assert.Contains(t, body, "Request a quote")

	resp, body := h.get("/quote")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="email"`)

	resp, body = h.postForm("/quote", url.Values{"name": {"Anna"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please fill in the form completely")
	assert.Contains(t, body, `value="Anna"`)
	assert.Empty(t, h.quotes.contact.Name)

	resp, body = h.postForm("/quote", url.Values{"name": {"Anna"}, "email": {"anna@example.com"}, "phone": {"123"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your quote request has been sent.")
	assert.Equal(t, quote.Contact{Name: "Anna", Email: "anna@example.com", Phone: "123"}, h.quotes.contact)
	assert.Equal(t, 23, h.quotes.rows)

	h.quotes.err = quote.ErrQuoteRejected
	_, body = h.postForm("/quote", url.Values{"name": {"Anna"}, "email": {"anna@example.com"}})
	assert.Contains(t, body, "QUO003")
}

func TestAPI(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/api/parse", strings.NewReader(`{"text":"A1;1\nB2;2"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := h.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"rows":2,"columns":2,"preview":[["A1","1"],["B2","2"]],"data":[["A1","1"],["B2","2"]]}`, body)

	req, _ = http.NewRequest(http.MethodPost, h.srv.URL+"/api/parse", strings.NewReader(`{"text":"  "}`))
	resp, body = h.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &apiErr))
	assert.Equal(t, "INP001", apiErr.Code)

	resp, _ = h.get("/api/result")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	h.postForm("/input/text", url.Values{"raw": {"A1"}})
	h.postForm("/process", nil)

	resp, body = h.get("/api/result?page=2&size=20")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res resultResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, core.Page{Number: 2, Size: 20, TotalRows: 23, TotalPages: 2}, res.Page)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, "short", res.Mode)

	// the session page is not moved by the API
	assert.Equal(t, 1, h.state().Page.Number)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	resp, body := h.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Contains(t, got, "pricing")
}

func TestSessionCookie(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	resp, _ := h.get("/")
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// a second visit keeps the session and refreshes its expiry
	resp, _ = h.get("/")
	var again *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			again = c
		}
	}
	require.NotNil(t, again)
	assert.Equal(t, cookie.Value, again.Value)
	assert.Equal(t, 1, h.server.service.Store().Len())
}

func TestExpiredSession(t *testing.T) {
	h := newHarness(t, testConfig(), false)

	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	h.client.Jar.SetCookies(u, []*http.Cookie{{Name: SessionCookie, Value: "gone", Path: "/"}})

	resp, _ := h.postForm("/mapping", url.Values{"column": {"0"}, "role": {"quantity"}}, "HX-Request", "true")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("HX-Trigger"), "SYS002")

	// pasting into the replacement session works
	resp, _ = h.postForm("/input/text", url.Values{"raw": {"A1\t10"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, core.StepMapping, h.state().Step)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	h := newHarness(t, cfg, false)

	h.get("/healthz")
	h.get("/healthz")
	resp, body := h.get("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "SYS005")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNoData, http.StatusUnprocessableEntity},
		{fmt.Errorf("parse x: %w", core.ErrUnsupportedFormat), http.StatusUnprocessableEntity},
		{core.ErrBusy, http.StatusConflict},
		{core.ErrSessionNotFound, http.StatusConflict},
		{core.ErrTooManyRequests, http.StatusServiceUnavailable},
		{&gateway.StatusError{StatusCode: 400}, http.StatusBadGateway},
		{gateway.ErrUnreachable, http.StatusBadGateway},
		{quote.ErrMissingContact, http.StatusUnprocessableEntity},
		{quote.ErrQuoteUnavailable, http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}
