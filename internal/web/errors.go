package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and shown to the user as a
// core.UserMessage, in the form the client understands:
//
//   - HTMX requests get an HX-Trigger showToast event and no swap
//   - JSON requests get an ErrorResponse body
//   - plain form posts get a flash cookie and a redirect back to the wizard

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/gateway"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/quote"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var statusErr *gateway.StatusError
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrNoPartNumber),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrInvalidColumn),
		errors.Is(err, core.ErrEmptyResult),
		errors.Is(err, quote.ErrMissingContact),
		errors.Is(err, quote.ErrInvalidEmail),
		errors.Is(err, errNoFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidStep),
		errors.Is(err, core.ErrBusy),
		errors.Is(err, core.ErrSessionNotFound):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyRequests),
		errors.Is(err, quote.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &statusErr),
		errors.Is(err, gateway.ErrMalformedResponse),
		errors.Is(err, gateway.ErrUnreachable),
		errors.Is(err, quote.ErrQuoteRejected),
		errors.Is(err, quote.ErrQuoteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and reports it to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= 500 && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	switch {
	case isHTMX(r):
		setToast(w, toastFrom(msg))
		w.Header().Set("HX-Reswap", "none")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(msg.Message))
	case wantsJSON(r):
		writeJSONStatus(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		setFlash(w, toastFrom(msg))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
