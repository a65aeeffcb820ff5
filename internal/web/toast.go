package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/web/templates"
)

const flashCookie = "flash_toast"

type toastPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

func toastFrom(msg core.UserMessage) toastPayload {
	return toastPayload{Type: "error", Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// setToast raises a showToast event on the client through HX-Trigger,
// merging with any trigger already set on the response.
func setToast(w http.ResponseWriter, t toastPayload) {
	triggers := map[string]any{}
	if existing := w.Header().Get("HX-Trigger"); existing != "" {
		if err := json.Unmarshal([]byte(existing), &triggers); err != nil {
			slog.Warn("toast: existing HX-Trigger is not valid JSON, overwriting", "error", err)
			triggers = map[string]any{}
		}
	}
	triggers["showToast"] = t

	data, err := json.Marshal(triggers)
	if err != nil {
		slog.Error("toast: marshal HX-Trigger", "error", err)
		return
	}
	w.Header().Set("HX-Trigger", string(data))
}

// setFlash stores a toast in a short-lived cookie so it survives the redirect
// after a plain form post.
func setFlash(w http.ResponseWriter, t toastPayload) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(data)),
		Path:     "/",
		MaxAge:   10,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash cookie.
func takeFlash(w http.ResponseWriter, r *http.Request) *templates.Toast {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	var t toastPayload
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.Message == "" {
		return nil
	}
	return &templates.Toast{Type: t.Type, Message: t.Message, Action: t.Action, Code: t.Code}
}
