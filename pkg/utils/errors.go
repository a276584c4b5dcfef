package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternalServer   = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrScanFailed       = errors.New("scan failed")
	ErrIngestFailed     = errors.New("snapshot ingest failed")
	ErrUpstreamDown     = errors.New("upstream provider unavailable")
	ErrNoScanResults    = errors.New("no scan results available")
	ErrParlayInvalid    = errors.New("invalid parlay")
	ErrInsufficientData = errors.New("insufficient data")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeScan       = "SCAN_ERROR"
	ErrCodeIngest     = "INGEST_ERROR"
	ErrCodeParlay     = "PARLAY_ERROR"
	ErrCodeUpstream   = "UPSTREAM_UNAVAILABLE"
)
