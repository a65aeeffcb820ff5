package core

// error_messages.go maps technical errors to messages shown in the wizard.
//
// Codes are grouped by wizard area so a user can quote them to support:
//
//	INP001-INP099  input acquisition (paste, file upload)
//	MAP001-MAP099  column mapping
//	GW001-GW099    pricing service calls
//	RES001-RES099  result viewer and export
//	QUO001-QUO099  quote requests
//	SYS001-SYS099  session and request handling
//	ERR000         fallback, check the logs for the original error
//
// Errors that carry a code (a Coder, or one of this package's sentinels) are
// resolved first. Only the rest are matched against the pattern table,
// case-insensitively with strings.Contains. The first match wins, so specific
// patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Coder is implemented by errors that know their own code, such as
// responses from the pricing service whose text is not ours to match.
type Coder interface {
	ErrorCode() string
}

var sentinelCodes = []struct {
	err  error
	code string
}{
	{ErrNoData, "INP001"},
	{ErrUnsupportedFormat, "INP002"},
	{ErrNoPartNumber, "MAP001"},
	{ErrInvalidRole, "MAP002"},
	{ErrInvalidColumn, "MAP003"},
	{ErrBusy, "GW001"},
	{ErrTooManyRequests, "GW002"},
	{ErrEmptyResult, "RES001"},
	{ErrInvalidStep, "SYS001"},
	{ErrSessionNotFound, "SYS002"},
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Input acquisition
	{"no data to process", UserMessage{
		Message: "There is no data to process",
		Action:  "Paste rows from Excel or CSV, or upload a file",
		Code:    "INP001",
	}},
	{"unsupported file format", UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload an .xlsx, .xls or .csv file",
		Code:    "INP002",
	}},
	{"file too large", UserMessage{
		Message: "The file exceeds the upload size limit",
		Action:  "Split the BOM into smaller files",
		Code:    "INP003",
	}},
	{"request body too large", UserMessage{
		Message: "The file exceeds the upload size limit",
		Action:  "Split the BOM into smaller files",
		Code:    "INP003",
	}},
	{"encoding error", UserMessage{
		Message: "The file contains invalid characters",
		Action:  "Save the file as UTF-8 and try again",
		Code:    "INP004",
	}},
	{"invalid csv", UserMessage{
		Message: "The file is not a valid CSV",
		Action:  "Check quoting and delimiters, or save it as .xlsx",
		Code:    "INP005",
	}},
	{"open workbook", UserMessage{
		Message: "The workbook could not be opened",
		Action:  "Check the file is a valid Excel workbook",
		Code:    "INP006",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Choose a spreadsheet file to upload",
		Code:    "INP007",
	}},

	// Column mapping
	{"part number column not mapped", UserMessage{
		Message: "Part Number must be selected for one column",
		Action:  "Choose Part Number in the column that holds the MPN",
		Code:    "MAP001",
	}},
	{"invalid column role", UserMessage{
		Message: "Unknown column type",
		Action:  "Pick Part Number, Quantity or Manufacturer",
		Code:    "MAP002",
	}},
	{"invalid column index", UserMessage{
		Message: "That column does not exist",
		Action:  "Reload the page and map the columns again",
		Code:    "MAP003",
	}},

	// Pricing service
	{"processing already in progress", UserMessage{
		Message: "Your BOM is already being processed",
		Action:  "Wait for the current run to finish",
		Code:    "GW001",
	}},
	{"too many pricing requests", UserMessage{
		Message: "The pricing service is busy",
		Action:  "Please wait a moment and try again",
		Code:    "GW002",
	}},
	{"malformed pricing response", UserMessage{
		Message: "The pricing service returned an invalid response",
		Action:  "Please try again later",
		Code:    "GW003",
	}},
	{"pricing service returned status", UserMessage{
		Message: "The pricing service rejected the request",
		Action:  "Check the BOM data and try again",
		Code:    "GW004",
	}},
	{"pricing service unreachable", UserMessage{
		Message: "Unable to reach the pricing service",
		Action:  "Please try again in a few moments",
		Code:    "GW005",
	}},

	// Results
	{"empty result set", UserMessage{
		Message: "There is no data to export",
		Action:  "Process a BOM with at least one row first",
		Code:    "RES001",
	}},

	// Quote requests
	{"quote requests are not configured", UserMessage{
		Message: "Quote requests are not available",
		Action:  "Download the Excel file and contact us directly",
		Code:    "QUO001",
	}},
	{"name and email are required", UserMessage{
		Message: "Please fill in the form completely before requesting a quote",
		Action:  "Enter your name and email",
		Code:    "QUO002",
	}},
	{"quote request rejected", UserMessage{
		Message: "The quote request was not accepted",
		Action:  "Please try again or contact us directly",
		Code:    "QUO003",
	}},
	{"quote request failed", UserMessage{
		Message: "The quote request could not be sent",
		Action:  "Please try again later",
		Code:    "QUO004",
	}},

	// Session and request handling
	{"action not allowed at this step", UserMessage{
		Message: "This action is not available at the current step",
		Action:  "Start a new analysis",
		Code:    "SYS001",
	}},
	{"wizard session not found", UserMessage{
		Message: "Your session has expired",
		Action:  "Start a new analysis",
		Code:    "SYS002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The request timed out",
		Action:  "Please try again",
		Code:    "SYS003",
	}},
	{"context canceled", UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "SYS004",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "SYS005",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var coded Coder
	if errors.As(err, &coded) {
		if msg, ok := messageFor(coded.ErrorCode()); ok {
			return msg
		}
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			if msg, ok := messageFor(sc.code); ok {
				return msg
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func messageFor(code string) (UserMessage, bool) {
	for _, ep := range errorPatterns {
		if ep.msg.Code == code {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
