package core

import (
	"context"
	"sync"
	"time"
)

// Step is a wizard state.
type Step int

// Wizard steps. The only transitions are Input -> Mapping (parse),
// Mapping -> Result (pricing call) and Mapping/Result -> Input (reset).
const (
	StepInput Step = iota + 1
	StepMapping
	StepResult
)

func (s Step) String() string {
	switch s {
	case StepInput:
		return "input"
	case StepMapping:
		return "mapping"
	case StepResult:
		return "result"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProcessRequest is the body sent to the pricing service.
type ProcessRequest struct {
	Mapping Mapping `json:"mapping"`
	Data    Grid    `json:"data"`
	Mode    string  `json:"mode,omitempty"`
}

// Processor prices a mapped grid. The gateway client implements it.
type Processor interface {
	Process(ctx context.Context, req ProcessRequest) (*Result, error)
}

// Session is one visitor's wizard. All methods are safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	step       Step
	raw        string
	fileName   string
	grid       Grid
	mapping    Mapping
	result     *Result
	page       int
	pageSize   int
	loading    bool
	generation uint64
	lastErr    error
	lastSeen   time.Time
	autoTimer  *time.Timer
}

// NewSession returns a session at the input step.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		step:     StepInput,
		mapping:  Mapping{},
		page:     1,
		pageSize: DefaultPageSize,
		lastSeen: time.Now(),
	}
}

// State is a read-only snapshot of a Session for rendering.
type State struct {
	SessionID  string  `json:"session_id"`
	Step       Step    `json:"step"`
	Raw        string  `json:"-"`
	FileName   string  `json:"file_name,omitempty"`
	Rows       int     `json:"rows"`
	Columns    int     `json:"columns"`
	Preview    Grid    `json:"preview,omitempty"`
	Mapping    Mapping `json:"mapping"`
	Loading    bool    `json:"loading"`
	CanProcess bool    `json:"can_process"`
	Page       Page    `json:"page"`
	Result     *Result `json:"-"`
	ResultRows int     `json:"result_rows"`
	NotFound   int     `json:"not_found"`
}

// Snapshot copies the current state. previewRows limits the preview grid.
func (s *Session) Snapshot(previewRows int) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		SessionID:  s.ID,
		Step:       s.step,
		Raw:        s.raw,
		FileName:   s.fileName,
		Rows:       len(s.grid),
		Columns:    s.grid.MaxWidth(),
		Preview:    s.grid.Preview(previewRows),
		Mapping:    s.mapping.Clone(),
		Loading:    s.loading,
		CanProcess: s.step == StepMapping && !s.loading && s.mapping.HasPartNumber(),
		Page:       s.currentPage(),
		Result:     s.result,
		ResultRows: s.result.Len(),
		NotFound:   s.result.NotFoundCount(),
	}
	return st
}

// LoadText parses pasted text and moves to the mapping step. The raw text is
// kept even when parsing fails so the form can be redisplayed.
func (s *Session) LoadText(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepInput {
		return ErrInvalidStep
	}
	s.raw = raw

	grid, err := ParseText(raw)
	if err != nil {
		return err
	}
	s.setGrid(grid, "")
	return nil
}

// LoadGrid accepts a grid parsed from an uploaded file and moves to the
// mapping step.
func (s *Session) LoadGrid(fileName string, grid Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepInput {
		return ErrInvalidStep
	}
	if len(grid) == 0 {
		return ErrNoData
	}
	s.setGrid(grid, fileName)
	return nil
}

func (s *Session) setGrid(grid Grid, fileName string) {
	s.grid = grid
	s.fileName = fileName
	s.mapping = DefaultMapping(grid.MaxWidth())
	s.step = StepMapping
}

// Assign maps col to role. It reports whether the mapping now has a part
// number column. The mapping is frozen while a request is in flight.
func (s *Session) Assign(col int, role Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMapping {
		return false, ErrInvalidStep
	}
	if s.loading {
		return false, ErrBusy
	}
	if col < 0 || col >= s.grid.MaxWidth() {
		return false, ErrInvalidColumn
	}
	if err := s.mapping.Assign(col, role); err != nil {
		return false, err
	}
	return s.mapping.HasPartNumber(), nil
}

// Unassign clears the role of col.
func (s *Session) Unassign(col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMapping {
		return ErrInvalidStep
	}
	if s.loading {
		return ErrBusy
	}
	if col < 0 || col >= s.grid.MaxWidth() {
		return ErrInvalidColumn
	}
	s.mapping.Unassign(col)
	return nil
}

// beginProcess validates the mapping and raises the loading flag. The
// returned generation must be passed to finishProcess.
func (s *Session) beginProcess(mode string) (ProcessRequest, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ProcessRequest{}, 0, ErrBusy
	}
	if s.step != StepMapping {
		return ProcessRequest{}, 0, ErrInvalidStep
	}
	if !s.mapping.HasPartNumber() {
		return ProcessRequest{}, 0, ErrNoPartNumber
	}
	if len(s.grid) == 0 {
		return ProcessRequest{}, 0, ErrNoData
	}

	s.loading = true
	s.lastErr = nil
	req := ProcessRequest{Mapping: s.mapping.Clone(), Data: s.grid, Mode: mode}
	return req, s.generation, nil
}

// finishProcess clears the loading flag and, on success, stores the result
// and moves to the result step. Results for a session that was reset in the
// meantime are dropped.
func (s *Session) finishProcess(gen uint64, res *Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	if gen != s.generation {
		return
	}
	if err != nil {
		s.lastErr = err
		return
	}
	s.result = res
	s.page = 1
	s.step = StepResult
}

// TakeError returns and clears the error of the last background run.
func (s *Session) TakeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.lastErr
	s.lastErr = nil
	return err
}

// Reset returns to the input step and forgets all data. A pricing call in
// flight is not cancelled; its result is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAutoSubmit()
	s.step = StepInput
	s.raw = ""
	s.fileName = ""
	s.grid = nil
	s.mapping = Mapping{}
	s.result = nil
	s.page = 1
	s.lastErr = nil
	s.generation++
}

// SetPage moves to page n, clamped to the available pages.
func (s *Session) SetPage(n int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepResult {
		return Page{}, ErrInvalidStep
	}
	s.page = n
	p := s.currentPage()
	s.page = p.Number
	return p, nil
}

// SetPageSize changes the page size and returns to page 1.
func (s *Session) SetPageSize(size int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepResult {
		return Page{}, ErrInvalidStep
	}
	if !ValidPageSize(size) {
		size = DefaultPageSize
	}
	s.pageSize = size
	s.page = 1
	return s.currentPage(), nil
}

// SetDefaultPageSize sets the page size used before the user picks one.
func (s *Session) SetDefaultPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ValidPageSize(size) {
		s.pageSize = size
	}
}

// Rows returns every result row, unpaginated.
func (s *Session) Rows() []ResultRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil
	}
	return s.result.Data
}

func (s *Session) currentPage() Page {
	return Paginate(s.result.Len(), s.page, s.pageSize)
}

// scheduleAutoSubmit (re)arms the debounce timer.
func (s *Session) scheduleAutoSubmit(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAutoSubmit()
	if s.loading {
		return
	}
	s.autoTimer = time.AfterFunc(delay, fn)
}

// cancelAutoSubmit drops a pending auto submit.
func (s *Session) cancelAutoSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoSubmit()
}

func (s *Session) stopAutoSubmit() {
	if s.autoTimer != nil {
		s.autoTimer.Stop()
		s.autoTimer = nil
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
