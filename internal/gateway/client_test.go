package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bomquote/internal/core"
)

func newTestServer(t *testing.T, status int, body string, inspect func(*http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/process", 0)
}

func TestProcess_RequestBody(t *testing.T) {
	var got map[string]any
	var method, contentType string

	client := newTestServer(t, http.StatusOK, `{"data":[]}`, func(r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	grid, err := core.ParseText("A1\t10\nB2\t5")
	require.NoError(t, err)

	_, err = client.Process(context.Background(), core.ProcessRequest{
		Mapping: core.Mapping{0: core.RolePartNumber, 1: core.RoleQuantity},
		Data:    grid,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]any{"0": "partNumber", "1": "quantity"}, got["mapping"])
	assert.Equal(t, []any{[]any{"A1", "10"}, []any{"B2", "5"}}, got["data"])
	assert.NotContains(t, got, "mode")
}

func TestProcess_SendsMode(t *testing.T) {
	var got map[string]any
	client := newTestServer(t, http.StatusOK, `{"data":[]}`, func(r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	_, err := client.Process(context.Background(), core.ProcessRequest{
		Mapping: core.Mapping{0: core.RolePartNumber},
		Data:    core.Grid{{"A1"}},
		Mode:    "full",
	})
	require.NoError(t, err)
	assert.Equal(t, "full", got["mode"])
}

func TestProcess_DecodesRows(t *testing.T) {
	body := `{"data":[
		{"mpn":"LM317T","manufacturer":"TI","seller_name":"Mouser","stock":1200,
		 "requested_quantity":"10","offer_quantity":10,"price":0.5,"currency":"EUR",
		 "delivery_coef":1.2,"markup":null,"status":"found"},
		{"mpn":"XYZ","status":"Не найдено"}
	]}`
	client := newTestServer(t, http.StatusOK, body, nil)

	res, err := client.Process(context.Background(), core.ProcessRequest{})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)

	first := res.Data[0]
	assert.Equal(t, "LM317T", first.MPN)
	assert.Equal(t, core.Some(1200), first.Stock)
	assert.Equal(t, core.Some(10), first.RequestedQuantity)
	assert.Equal(t, "0.50", first.Price.Fixed())
	assert.False(t, first.Markup.Valid)
	assert.False(t, first.NotFound())

	assert.True(t, res.Data[1].NotFound())
	assert.Equal(t, "USD", res.Data[1].DisplayCurrency())
	assert.False(t, res.ReceivedAt.IsZero())
}

func TestProcess_OddCellTypes(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		check func(t *testing.T, r core.ResultRow)
	}{
		{"price as text", `{"mpn":"LM317T","price":"по запросу"}`, func(t *testing.T, r core.ResultRow) {
			assert.False(t, r.Price.Valid)
			assert.Equal(t, "по запросу", r.Price.Fixed())
		}},
		{"mpn as number", `{"mpn":12345,"status":"found"}`, func(t *testing.T, r core.ResultRow) {
			assert.Equal(t, "12345", r.MPN)
			assert.False(t, r.NotFound())
		}},
		{"stock as bool", `{"mpn":"NE555","stock":false}`, func(t *testing.T, r core.ResultRow) {
			assert.Equal(t, "false", r.Stock.Int())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"data":[` + tt.row + `,{"mpn":"OK1","price":1.25}]}`
			client := newTestServer(t, http.StatusOK, body, nil)

			res, err := client.Process(context.Background(), core.ProcessRequest{})
			require.NoError(t, err)
			require.Len(t, res.Data, 2)
			tt.check(t, res.Data[0])
			assert.Equal(t, "1.25", res.Data[1].Price.Fixed())
		})
	}
}

func TestProcess_EmptyDataIsValid(t *testing.T) {
	client := newTestServer(t, http.StatusOK, `{"data":[]}`, nil)

	res, err := client.Process(context.Background(), core.ProcessRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
		wantMsg    string
	}{
		{"server error with message", http.StatusInternalServerError, `{"error":"matcher down"}`, 500, nil, "matcher down"},
		{"bad request without json", http.StatusBadRequest, `oops`, 400, nil, "Bad Request"},
		{"service message quoting a wizard phrase", http.StatusBadRequest, `{"error":"no data to process"}`, 400, nil, "no data to process"},
		{"malformed json", http.StatusOK, `{"data":`, 0, ErrMalformedResponse, ""},
		{"missing data", http.StatusOK, `{"error":"nothing"}`, 0, ErrMalformedResponse, ""},
		{"data is object", http.StatusOK, `{"data":{"rows":[]}}`, 0, ErrMalformedResponse, ""},
		{"data is null", http.StatusOK, `{"data":null}`, 0, ErrMalformedResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, tt.status, tt.body, nil)

			res, err := client.Process(context.Background(), core.ProcessRequest{})
			require.Error(t, err)
			assert.Nil(t, res)

			if tt.wantStatus != 0 {
				var se *StatusError
				require.True(t, errors.As(err, &se), "want StatusError, got %v", err)
				assert.Equal(t, tt.wantStatus, se.StatusCode)
				assert.Equal(t, tt.wantMsg, se.Message)
				assert.Equal(t, "GW004", core.MapError(err).Code)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "GW003", core.MapError(err).Code)
		})
	}
}

func TestProcess_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, 0).Process(context.Background(), core.ProcessRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, "GW005", core.MapError(err).Code)
}
