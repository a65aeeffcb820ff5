package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"no data", ErrNoData, "INP001"},
		{"unsupported format wrapped", fmt.Errorf("parse bom.pdf: %w: %q", ErrUnsupportedFormat, ".pdf"), "INP002"},
		{"body too large", errors.New("http: request body too large"), "INP003"},
		{"csv encoding", errors.New("encoding error: bad bytes"), "INP004"},
		{"invalid csv", errors.New("invalid csv: record on line 2"), "INP005"},
		{"missing part number", ErrNoPartNumber, "MAP001"},
		{"invalid role", fmt.Errorf("%w: %q", ErrInvalidRole, "price"), "MAP002"},
		{"busy", ErrBusy, "GW001"},
		{"limiter full", ErrTooManyRequests, "GW002"},
		{"empty export", ErrEmptyResult, "RES001"},
		{"wrong step", ErrInvalidStep, "SYS001"},
		{"session gone", ErrSessionNotFound, "SYS002"},
		{"timeout", errors.New("context deadline exceeded"), "SYS003"},
		{"case insensitive", errors.New("NO DATA TO PROCESS"), "INP001"},
		{"unknown error", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v) has empty message", tt.err)
			}
		})
	}
}

type codedErr struct {
	code string
	msg  string
}

func (e *codedErr) Error() string     { return e.msg }
func (e *codedErr) ErrorCode() string { return e.code }

func TestMapError_CodedBeforeText(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"service message quoting a wizard phrase",
			&codedErr{"GW004", "pricing service returned status 400: no data to process"}, "GW004"},
		{"wrapped coded error",
			fmt.Errorf("process: %w", &codedErr{"GW004", "pricing service returned status 422: invalid column index"}), "GW004"},
		{"unknown code falls back to text",
			&codedErr{"ZZZ999", "no data to process"}, "INP001"},
		{"sentinel wins over detail text",
			fmt.Errorf("%w: no data to process in column 2", ErrNoPartNumber), "MAP001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestSentinelCodes_Known(t *testing.T) {
	for _, sc := range sentinelCodes {
		if _, ok := messageFor(sc.code); !ok {
			t.Errorf("sentinel %v maps to unknown code %s", sc.err, sc.code)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	want := "Part Number must be selected for one column (Code: MAP001). Choose Part Number in the column that holds the MPN"
	if got := FormatUserError(ErrNoPartNumber); got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrNoData) {
		t.Error("ErrNoData should be user facing")
	}
	if IsUserFacing(errors.New("segfault in module")) {
		t.Error("unknown error should not be user facing")
	}
}

func TestErrorPatterns_AllHaveCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, ep := range errorPatterns {
		if ep.msg.Code == "" || ep.msg.Message == "" || ep.msg.Action == "" {
			t.Errorf("pattern %q is incomplete: %+v", ep.pattern, ep.msg)
		}
		if seen[ep.pattern] {
			t.Errorf("duplicate pattern %q", ep.pattern)
		}
		seen[ep.pattern] = true
	}
}
