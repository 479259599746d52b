package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeTransport  = "TRANSPORT_ERROR"
	CodeAPIError   = "API_ERROR"
	CodeParse      = "PARSE_ERROR"
	CodeRefused    = "REFUSED"
	CodeExhausted  = "EXHAUSTED"
	CodeValidation = "VALIDATION_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeScrape     = "SCRAPE_ERROR"
)

type PipelineError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

type TransportError struct {
	*PipelineError
}

func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{
		PipelineError: &PipelineError{
			Message: message,
			Code:    CodeTransport,
			Cause:   cause,
		},
	}
}

type APIError struct {
	*PipelineError
	Status int
	Body   string
}

func NewAPIError(message string, status int, body string) *APIError {
	return &APIError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: status,
			Context: map[string]any{
				"status": status,
				"body":   body,
			},
		},
		Status: status,
		Body:   body,
	}
}

type ParseError struct {
	*PipelineError
}

func NewParseError(message string, cause error) *ParseError {
	return &ParseError{
		PipelineError: &PipelineError{
			Message: message,
			Code:    CodeParse,
			Cause:   cause,
		},
	}
}

type RefusalError struct {
	*PipelineError
	Snippet string
}

func NewRefusalError(snippet string) *RefusalError {
	return &RefusalError{
		PipelineError: &PipelineError{
			Message: "model refused the request",
			Code:    CodeRefused,
			Context: map[string]any{
				"snippet": snippet,
			},
		},
		Snippet: snippet,
	}
}

type ExhaustedError struct {
	*PipelineError
	Attempts int
}

func NewExhaustedError(attempts int, cause error) *ExhaustedError {
	return &ExhaustedError{
		PipelineError: &PipelineError{
			Message: fmt.Sprintf("retries exhausted after %d attempts", attempts),
			Code:    CodeExhausted,
			Context: map[string]any{
				"attempts": attempts,
			},
			Cause: cause,
		},
		Attempts: attempts,
	}
}

type ValidationError struct {
	*PipelineError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		PipelineError: &PipelineError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type StorageError struct {
	*PipelineError
	Operation string
	Path      string
}

func NewStorageError(message, operation, path string, cause error) *StorageError {
	return &StorageError{
		PipelineError: &PipelineError{
			Message: message,
			Code:    CodeStorage,
			Context: map[string]any{
				"operation": operation,
				"path":      path,
			},
			Cause: cause,
		},
		Operation: operation,
		Path:      path,
	}
}

type ScrapeError struct {
	*PipelineError
	Site string
	URL  string
}

func NewScrapeError(message, site, url string, cause error) *ScrapeError {
	return &ScrapeError{
		PipelineError: &PipelineError{
			Message: message,
			Code:    CodeScrape,
			Context: map[string]any{
				"site": site,
				"url":  url,
			},
			Cause: cause,
		},
		Site: site,
		URL:  url,
	}
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

func IsRefusal(err error) bool {
	var target *RefusalError
	return errors.As(err, &target)
}

func IsExhausted(err error) bool {
	var target *ExhaustedError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsScrape(err error) bool {
	var target *ScrapeError
	return errors.As(err, &target)
}
