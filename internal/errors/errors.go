package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrPlayerNotReady    = errors.New("player not ready")
	ErrBindFailed        = errors.New("player failed to initialize")
	ErrAlreadyBound      = errors.New("player already bound")
	ErrNoIntervals       = errors.New("no highlight intervals")
	ErrInvalidIndex      = errors.New("interval index out of range")
	ErrIntervalNotFound  = errors.New("interval not found")
	ErrInvalidInterval   = errors.New("invalid interval")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrSourceUnavailable = errors.New("highlight source unavailable")
	ErrTimeout           = errors.New("request timeout")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// ReelError wraps an error with a user-friendly suggestion.
type ReelError struct {
	Err        error
	Suggestion string
}

func (e *ReelError) Error() string {
	return e.Err.Error()
}

func (e *ReelError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &ReelError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	// Check if it's already a ReelError with suggestion
	var reelErr *ReelError
	if errors.As(err, &reelErr) && reelErr.Suggestion != "" {
		return reelErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	// Player errors
	if errors.Is(err, ErrPlayerNotReady) {
		return "The player is still loading. Wait a moment and try again"
	}
	if errors.Is(err, ErrBindFailed) || strings.Contains(errStr, "executable file not found") {
		return "Check that the player is installed, or pick another backend with --player"
	}

	// Highlight errors
	if errors.Is(err, ErrNoIntervals) {
		return "The highlight file contains no playable intervals"
	}
	if errors.Is(err, ErrInvalidInterval) {
		return "Each highlight needs an id and an end time after its start time"
	}
	if errors.Is(err, ErrSourceUnavailable) || strings.Contains(errStr, "no such file") {
		return "Check the path or URL of the highlight file"
	}

	// Device errors
	if errors.Is(err, ErrDeviceNotFound) || strings.Contains(errStr, "device not found") {
		return "Run 'reel devices' to see available renderers"
	}

	// Network errors
	if errors.Is(err, ErrTimeout) || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check that the player or renderer is reachable and try again"
	}

	// Config errors
	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) || strings.Contains(errStr, "config") {
		return "Run 'reel config show' to inspect your configuration"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(p.Errors)))
	for i, err := range p.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
