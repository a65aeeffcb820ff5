package core

import "errors"

// Validation errors. These are user mistakes: the wizard stays where it is.
var (
	ErrNoData            = errors.New("no data to process")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoPartNumber      = errors.New("part number column not mapped")
	ErrInvalidRole       = errors.New("invalid column role")
	ErrInvalidColumn     = errors.New("invalid column index")
	ErrEmptyResult       = errors.New("empty result set")
	ErrInvalidStep       = errors.New("action not allowed at this step")
)

// Processing errors raised around the gateway call.
var (
	ErrBusy            = errors.New("processing already in progress")
	ErrTooManyRequests = errors.New("too many pricing requests in flight")
	ErrSessionNotFound = errors.New("wizard session not found")
)
