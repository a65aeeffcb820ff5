// Package quote forwards a priced BOM to the sales team as a quote request.
//
// The request is a multipart form with the contact fields and the results
// workbook attached as bom-list.xlsx.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

// AttachmentName is the file name of the workbook sent with a quote request.
const AttachmentName = "bom-list.xlsx"

var (
	ErrMissingContact   = errors.New("name and email are required")
	ErrInvalidEmail     = errors.New("name and email are required: invalid email address")
	ErrQuoteRejected    = errors.New("quote request rejected")
	ErrQuoteFailed      = errors.New("quote request failed")
	ErrQuoteUnavailable = errors.New("quote requests are not configured")
)

// Contact is the requester's details from the quote form.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Normalize trims every field.
func (c Contact) Normalize() Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// Validate checks the required fields. Phone is optional.
func (c Contact) Validate() error {
	c = c.Normalize()
	if c.Name == "" || c.Email == "" {
		return ErrMissingContact
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Sender posts quote requests to the sales endpoint.
type Sender struct {
	endpoint string
	http     *http.Client
}

// New creates a Sender. A zero timeout waits indefinitely.
func New(endpoint string, timeout time.Duration) *Sender {
	return &Sender{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

type response struct {
	Success bool `json:"success"`
}

// Send validates the contact, builds the workbook of rows and posts both.
// Validation happens before any network call.
func (s *Sender) Send(ctx context.Context, c Contact, rows []core.ResultRow) error {
	if s == nil || s.endpoint == "" {
		return ErrQuoteUnavailable
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	workbook, err := core.ExportResults(rows)
	if err != nil {
		return err
	}

	body, contentType, err := encodeForm(c, workbook)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQuoteFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQuoteFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	logger := logging.FromContext(ctx)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQuoteFailed, err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("%w: status %d: decode response: %w", ErrQuoteFailed, resp.StatusCode, err)
	}
	if !out.Success {
		logger.Warn("quote request rejected", "status", resp.StatusCode)
		return ErrQuoteRejected
	}

	logger.Info("quote request sent", "rows", len(rows), "bytes", len(workbook))
	return nil
}

func encodeForm(c Contact, workbook []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range []struct{ name, value string }{
		{"name", c.Name},
		{"email", c.Email},
		{"phone", c.Phone},
	} {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", AttachmentName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(workbook); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
