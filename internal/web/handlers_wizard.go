package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/web/templates"
)

const pageTitle = "BOM analysis"

// multipartMemory is how much of an upload is buffered in memory.
const multipartMemory = 8 << 20

// wizardView assembles the template data for the session's current state.
func (s *Server) wizardView(sess *core.Session) templates.WizardView {
	st := s.service.State(sess)
	v := templates.WizardView{
		State:        st,
		Mode:         s.service.Mode(),
		AutoSubmit:   s.cfg.Wizard.AutoSubmit,
		QuoteEnabled: s.quotes != nil,
		Accept:       strings.Join(core.AcceptedExtensions, ","),
	}
	if st.Result != nil {
		v.Rows = st.Page.Slice(st.Result.Data)
	}
	return v
}

// render writes c as an HTMX fragment or wrapped in the full page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, toast *templates.Toast, c templ.Component) {
	if !isHTMX(r) {
		c = templates.Page(pageTitle, toast, c)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "error", err)
	}
}

// showWizard answers a successful action: HTMX gets the new step fragment,
// plain posts are redirected to GET / so a reload does not resubmit.
func (s *Server) showWizard(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, nil, templates.Wizard(s.wizardView(sessionFrom(r))))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleIndex renders the current step. An error left by a pricing run that
// finished in the background is shown once.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	toast := takeFlash(w, r)

	if err := sess.TakeError(); err != nil {
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Warn("background processing failed", "error", err, "code", msg.Code)
		t := toastFrom(msg)
		if isHTMX(r) {
			setToast(w, t)
		}
		toast = &templates.Toast{Type: t.Type, Message: t.Message, Action: t.Action, Code: t.Code}
	}

	s.render(w, r, http.StatusOK, toast, templates.Wizard(s.wizardView(sess)))
}

func (s *Server) handleInputText(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.SubmitText(r.Context(), sessionFrom(r), r.PostFormValue("raw")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.showWizard(w, r)
}

// handleInputFile parses an uploaded spreadsheet. A file that cannot be read
// at all leaves the wizard untouched; parse errors are reported.
func (s *Server) handleInputFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartMemory)
	logger := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, err)
			return
		}
		logger.Warn("upload could not be read", "error", err)
		s.showWizard(w, r)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		s.respondError(w, r, errNoFile)
		return
	}
	if err != nil {
		logger.Warn("upload could not be read", "error", err)
		s.showWizard(w, r)
		return
	}
	defer file.Close()

	if header.Size > s.cfg.Upload.MaxFileSize {
		s.respondError(w, r, &http.MaxBytesError{Limit: s.cfg.Upload.MaxFileSize})
		return
	}

	if err := s.service.SubmitFile(r.Context(), sessionFrom(r), header.Filename, file); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.showWizard(w, r)
}

// handleMapping assigns a role to a column. An empty role clears it.
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err)
		return
	}
	sess := sessionFrom(r)

	col, err := strconv.Atoi(r.PostFormValue("column"))
	if err != nil {
		s.respondError(w, r, core.ErrInvalidColumn)
		return
	}

	roleName := strings.TrimSpace(r.PostFormValue("role"))
	if roleName == "" {
		err = s.service.ClearColumn(sess, col)
	} else {
		var role core.Role
		role, err = core.ParseRole(roleName)
		if err == nil {
			err = s.service.AssignColumn(r.Context(), sess, col, role)
		}
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.showWizard(w, r)
}

// handleProcess sends the mapped grid to the pricing service. If the service
// is slower than the request timeout the page shows the loading state and
// the call finishes in the background.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	err := s.service.Process(ctx, sessionFrom(r))
	if err != nil && !errors.Is(err, core.ErrStillProcessing) {
		s.respondError(w, r, err)
		return
	}
	s.showWizard(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset(r.Context(), sessionFrom(r))
	s.showWizard(w, r)
}

// handleResult changes the result page or page size, then renders the step.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()

	if raw := q.Get("size"); raw != "" {
		size, _ := strconv.Atoi(raw)
		if size != s.service.State(sess).Page.Size {
			if _, err := sess.SetPageSize(size); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			page = 1
		}
		if _, err := sess.SetPage(page); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	if isHTMX(r) {
		s.render(w, r, http.StatusOK, nil, templates.Wizard(s.wizardView(sess)))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleExport downloads every result row as result.xlsx.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Export(sessionFrom(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("results exported", "bytes", len(data))

	w.Header().Set("Content-Type", core.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.ExportFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// handleHealth reports liveness, session count and pricing call usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.service.Store().Len(),
		"pricing":  s.service.LimiterStatus(),
	})
}
