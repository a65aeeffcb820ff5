package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/bomquote/internal/core"
)

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	Preview core.Grid `json:"preview"`
	Data    core.Grid `json:"data"`
}

// handleAPIParse parses pasted text without touching the session.
func (s *Server) handleAPIParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: invalid json body: %v", core.ErrNoData, err)
		}
		s.respondError(w, r, err)
		return
	}

	grid, err := core.ParseText(req.Text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, parseResponse{
		Rows:    len(grid),
		Columns: grid.MaxWidth(),
		Preview: grid.Preview(s.service.PreviewRows()),
		Data:    grid,
	})
}

// handleAPIState returns the session snapshot.
func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.State(sessionFrom(r)))
}

type resultResponse struct {
	Page core.Page        `json:"page"`
	Mode string           `json:"mode"`
	Rows []core.ResultRow `json:"rows"`
}

// handleAPIResult returns one page of results. It reads page and size from
// the query and leaves the session's own page untouched.
func (s *Server) handleAPIResult(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	st := s.service.State(sess)
	if st.Step != core.StepResult {
		s.respondError(w, r, core.ErrInvalidStep)
		return
	}

	page := parseIntParam(r, "page", st.Page.Number)
	size := parseIntParam(r, "size", st.Page.Size)
	all := sess.Rows()
	pg := core.Paginate(len(all), page, size)

	rows := pg.Slice(all)
	if rows == nil {
		rows = []core.ResultRow{}
	}
	writeJSON(w, resultResponse{Page: pg, Mode: s.service.Mode(), Rows: rows})
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
