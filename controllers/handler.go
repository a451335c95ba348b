package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"chat-meter/models"
	"chat-meter/services"

	"github.com/gin-gonic/gin"
)

// Handler carries the services every controller needs.
type Handler struct {
	Auth          *services.AuthService
	Tokens        *services.TokenIssuer
	Chat          *services.ChatService
	Admin         *services.AdminService
	MaxUploadSize int64
}

// formOverhead is the room left for the question field and multipart framing.
const formOverhead = 1 << 20

var (
	errUploadTooLarge = errors.New("uploaded file is too large")
	errBodyTooLarge   = errors.New("request body is too large")
)

// limitBody caps the request body before gin parses the form. It reports false
// when the declared length is already over the cap.
func (h *Handler) limitBody(c *gin.Context) bool {
	if h.MaxUploadSize <= 0 {
		return true
	}
	limit := h.MaxUploadSize + formOverhead
	if c.Request.ContentLength > limit {
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

// bodyTooLarge reports whether parsing stopped at the limitBody cap.
func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// readUpload returns the optional "file" part of a multipart submit.
func (h *Handler) readUpload(c *gin.Context) (*models.UploadedFile, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		if bodyTooLarge(err) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if h.MaxUploadSize > 0 && fh.Size > h.MaxUploadSize {
		return nil, fmt.Errorf("%w: %s exceeds %d MB", errUploadTooLarge, fh.Filename, h.MaxUploadSize>>20)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &models.UploadedFile{Name: filepath.Base(fh.Filename), Data: data}, nil
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("%s: the limit is %d MB", errUploadTooLarge, h.MaxUploadSize>>20)
}

// refusalMessage explains a rejected or failed cycle to the user.
func refusalMessage(res services.SubmitResult) string {
	switch {
	case res.Err == nil:
		return ""
	case res.Stage == services.QuotaPostCheck:
		return "This answer would go over your daily spending limit and was discarded."
	case errors.Is(res.Err, services.ErrQuotaExceeded):
		return "You have reached today's spending limit. Please try again tomorrow."
	case errors.Is(res.Err, services.ErrEmptyQuestion):
		return "Please enter a question."
	default:
		return res.Err.Error()
	}
}

// statusFor maps a cycle outcome to the JSON API status code.
func statusFor(res services.SubmitResult) int {
	switch res.Outcome {
	case models.OutcomeRejected:
		return http.StatusTooManyRequests
	case models.OutcomeFailed:
		return http.StatusBadGateway
	case models.OutcomeNone:
		if errors.Is(res.Err, services.ErrEmptyQuestion) {
			return http.StatusBadRequest
		}
	}
	return http.StatusOK
}
