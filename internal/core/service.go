package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/bomquote/internal/logging"
)

// ErrStillProcessing is returned by Service.Process when the caller's context
// ends before the pricing service answers. The call keeps running and the
// session stays in the loading state until it completes.
var ErrStillProcessing = errors.New("pricing still in progress")

// Options configures a Service.
type Options struct {
	Mode            string        // "short" or "full", sent to the pricing service
	PreviewRows     int           // rows shown on the mapping step
	AutoSubmit      bool          // process as soon as a part number is mapped
	AutoSubmitDelay time.Duration // debounce window for AutoSubmit
	MaxConcurrent   int           // outstanding pricing calls across sessions
	MaxWait         time.Duration // wait for a free pricing slot
}

// Service drives the wizard: it owns the session store, the pricing
// processor and the call limiter.
type Service struct {
	store     *Store
	processor Processor
	limiter   *CallLimiter
	opts      Options
}

// NewService wires a Service.
func NewService(store *Store, processor Processor, opts Options) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.AutoSubmitDelay <= 0 {
		opts.AutoSubmitDelay = 200 * time.Millisecond
	}
	return &Service{
		store:     store,
		processor: processor,
		limiter:   NewCallLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:      opts,
	}
}

// Store returns the session store.
func (s *Service) Store() *Store { return s.store }

// Mode returns the display mode.
func (s *Service) Mode() string { return s.opts.Mode }

// PreviewRows returns the mapping preview size.
func (s *Service) PreviewRows() int { return s.opts.PreviewRows }

// State snapshots a session for rendering.
func (s *Service) State(sess *Session) State {
	return sess.Snapshot(s.opts.PreviewRows)
}

// SubmitText parses pasted text into the session.
func (s *Service) SubmitText(ctx context.Context, sess *Session, raw string) error {
	if err := sess.LoadText(raw); err != nil {
		return err
	}
	st := sess.Snapshot(0)
	logging.FromContext(ctx).Info("text parsed", "rows", st.Rows, "columns", st.Columns)
	return nil
}

// SubmitFile parses an uploaded spreadsheet into the session.
func (s *Service) SubmitFile(ctx context.Context, sess *Session, name string, r io.Reader) error {
	grid, err := ParseFile(name, r)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if err := sess.LoadGrid(name, grid); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("file parsed",
		"file", name,
		"rows", len(grid),
		"columns", grid.MaxWidth(),
	)
	return nil
}

// AssignColumn maps a column and, when auto submit is on and a part number
// is mapped, schedules processing after the debounce delay.
func (s *Service) AssignColumn(ctx context.Context, sess *Session, col int, role Role) error {
	ready, err := sess.Assign(col, role)
	if err != nil {
		return err
	}
	if !s.opts.AutoSubmit {
		return nil
	}
	if !ready {
		sess.cancelAutoSubmit()
		return nil
	}

	bg := context.WithoutCancel(ctx)
	sess.scheduleAutoSubmit(s.opts.AutoSubmitDelay, func() {
		if err := s.Process(bg, sess); err != nil && !errors.Is(err, ErrBusy) {
			logging.FromContext(bg).Warn("auto submit failed", "error", err)
		}
	})
	return nil
}

// ClearColumn removes a column's role. Clearing the part number column
// cancels a pending auto submit.
func (s *Service) ClearColumn(sess *Session, col int) error {
	if err := sess.Unassign(col); err != nil {
		return err
	}
	if !sess.Snapshot(0).Mapping.HasPartNumber() {
		sess.cancelAutoSubmit()
	}
	return nil
}

// Process sends the mapped grid to the pricing service. It returns once the
// call completes or ctx ends, whichever is first; in the latter case the
// call continues detached and ErrStillProcessing is returned.
func (s *Service) Process(ctx context.Context, sess *Session) error {
	req, gen, err := sess.beginProcess(s.opts.Mode)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)
	logger.Info("processing started", "rows", len(req.Data), "mapping", req.Mapping)

	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		done <- s.run(bg, sess, req, gen)
	}()

	select {
	case err := <-done:
		if err != nil {
			// reported to the caller, not left for the next page view
			sess.TakeError()
		}
		return err
	case <-ctx.Done():
		logger.Warn("request ended before pricing finished, continuing in background")
		return ErrStillProcessing
	}
}

func (s *Service) run(ctx context.Context, sess *Session, req ProcessRequest, gen uint64) (err error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "rows_sent", len(req.Data), "mode", req.Mode)
	var res *Result
	defer func() {
		sess.finishProcess(gen, res, err)
	}()

	if err = s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	res, err = s.processor.Process(ctx, req)
	if err != nil {
		logger.Error("processing failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	if res == nil {
		res = &Result{ReceivedAt: time.Now()}
	}
	logger.Info("processing finished",
		"rows", res.Len(),
		"not_found", res.NotFoundCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Reset returns the session to the input step.
func (s *Service) Reset(ctx context.Context, sess *Session) {
	sess.Reset()
	logging.FromContext(ctx).Info("wizard reset")
}

// Export builds the workbook of all result rows.
func (s *Service) Export(sess *Session) ([]byte, error) {
	return ExportResults(sess.Rows())
}

// LimiterStatus reports pricing call usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForCalls blocks until running pricing calls finish or ctx ends.
func (s *Service) WaitForCalls(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
