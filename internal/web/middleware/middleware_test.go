package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "no trusted proxies ignores headers",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "10.0.0.1:1234",
		},
		{
			name:       "trusted proxy uses X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "1.2.3.4",
		},
		{
			name:       "trusted bare ip uses first forwarded entry",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.2"},
			want:       "5.6.7.8",
		},
		{
			name:       "untrusted source keeps remote addr",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "192.168.1.1:1234",
		},
		{
			name:       "invalid header is ignored",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.0.0.1:1234",
		},
		{
			name:       "invalid cidr skipped",
			trusted:    []string{"garbage", "10.0.0.0/8"},
			remoteAddr: "10.1.2.3:1",
			headers:    map[string]string{"X-Real-IP": "9.9.9.9"},
			want:       "9.9.9.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/mapping", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "method=POST", "path=/mapping", "status=418", "bytes=15"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}
