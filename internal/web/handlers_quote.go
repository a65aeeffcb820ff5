package web

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/quote"
	"github.com/JonMunkholm/bomquote/internal/web/templates"
)

// quoteReady checks that quote requests are configured and the wizard has
// results to attach.
func (s *Server) quoteReady(sess *core.Session) error {
	if s.quotes == nil {
		return quote.ErrQuoteUnavailable
	}
	if s.service.State(sess).Step != core.StepResult {
		return core.ErrInvalidStep
	}
	return nil
}

// renderQuote shows the modal: alone for HTMX, over the result step otherwise.
func (s *Server) renderQuote(w http.ResponseWriter, r *http.Request, status int, modal templ.Component) {
	if !isHTMX(r) {
		modal = templ.Join(templates.Wizard(s.wizardView(sessionFrom(r))), modal)
	}
	s.render(w, r, status, nil, modal)
}

func (s *Server) handleQuoteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.quoteReady(sessionFrom(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderQuote(w, r, http.StatusOK, templates.QuoteModal(templates.QuoteForm{}))
}

// handleQuoteSubmit sends the results with the contact details. Missing
// fields redisplay the form; delivery failures become alerts.
func (s *Server) handleQuoteSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.quoteReady(sess); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err)
		return
	}

	contact := quote.Contact{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
		Phone: r.PostFormValue("phone"),
	}.Normalize()

	err := s.quotes.Send(r.Context(), contact, sess.Rows())
	if errors.Is(err, quote.ErrMissingContact) || errors.Is(err, quote.ErrInvalidEmail) {
		msg := core.MapError(err)
		status := http.StatusUnprocessableEntity
		if isHTMX(r) {
			// htmx does not swap 4xx responses
			status = http.StatusOK
		}
		s.renderQuote(w, r, status, templates.QuoteModal(templates.QuoteForm{
			Name:  contact.Name,
			Email: contact.Email,
			Phone: contact.Phone,
			Error: msg.Message,
		}))
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("quote requested", "rows", len(sess.Rows()))

	sent := toastPayload{Type: "success", Message: "Your quote request has been sent."}
	if isHTMX(r) {
		setToast(w, sent)
		s.render(w, r, http.StatusOK, nil, templates.QuoteSent())
		return
	}
	setFlash(w, sent)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
