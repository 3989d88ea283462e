// Package models defines the core data structures for Blueprint.
//
// It includes the wizard handoff contract, validation errors, and the API
// response envelope shared across modules.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Validation constants for input validation
const (
	// MaxUtteranceLength defines the maximum accepted length for a user utterance
	MaxUtteranceLength = 10000
	// MaxParseInputLength defines the bounded prefix parsed from very long input
	MaxParseInputLength = 10000
	// MaxSubjectLength defines the maximum allowed length for the handoff subject
	MaxSubjectLength = 200
)

// Error variables for better error handling and testability
var (
	// ErrInvalidTransition indicates an operation not legal for the current
	// sub-phase. This is a programmer/caller error and is never silently
	// swallowed.
	ErrInvalidTransition = errors.New("invalid transition for current sub-phase")
	// ErrSessionNotFound indicates the session document does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownStep indicates a step key outside the nine-step journey.
	ErrUnknownStep = errors.New("unknown step key")
	// ErrMissingHandoffField indicates a required wizard handoff field is absent.
	ErrMissingHandoffField = errors.New("missing required handoff field")
	// ErrHandoffFieldTooLong indicates a wizard handoff field exceeds its bound.
	ErrHandoffFieldTooLong = errors.New("handoff field exceeds maximum length")
	// ErrEmptyUtterance indicates a submit with no text at all.
	ErrEmptyUtterance = errors.New("utterance cannot be empty")
	// ErrUtteranceTooLong indicates a submit exceeding MaxUtteranceLength.
	ErrUtteranceTooLong = errors.New("utterance exceeds maximum length")
	// ErrInvalidSuggestionKind indicates an unsupported suggestion kind.
	ErrInvalidSuggestionKind = errors.New("invalid suggestion kind")
)

// WizardHandoff is the onboarding record that seeds a session. Subject,
// grade level, and duration are required; the engine fails loudly at
// construction rather than silently defaulting.
type WizardHandoff struct {
	Subject    string   `json:"subject"`
	GradeLevel string   `json:"grade_level"`
	Duration   string   `json:"duration"`
	Location   string   `json:"location,omitempty"`
	Materials  []string `json:"materials,omitempty"`
}

// Validate checks the handoff for required fields.
func (h *WizardHandoff) Validate() error {
	if strings.TrimSpace(h.Subject) == "" {
		return fmt.Errorf("%w: subject", ErrMissingHandoffField)
	}
	if len(h.Subject) > MaxSubjectLength {
		return fmt.Errorf("%w: subject exceeds %d characters", ErrHandoffFieldTooLong, MaxSubjectLength)
	}
	if strings.TrimSpace(h.GradeLevel) == "" {
		return fmt.Errorf("%w: grade_level", ErrMissingHandoffField)
	}
	if strings.TrimSpace(h.Duration) == "" {
		return fmt.Errorf("%w: duration", ErrMissingHandoffField)
	}
	return nil
}

// APIStatus represents the status field of an API response.
type APIStatus string

// API status constants.
const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{response: APIResponse{}}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
