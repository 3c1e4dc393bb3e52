package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks retryable network or server conditions. Exhausting
	// retries promotes the last transient error to a run failure.
	ErrTransient = errors.New("transient failure")
	// ErrFatal marks malformed or unexpected remote responses; the run aborts
	// immediately without retry.
	ErrFatal = errors.New("fatal failure")
	// ErrConversion marks a per-attachment conversion failure. It is always
	// masked with a placeholder document and never aborts the run.
	ErrConversion = errors.New("conversion failure")
	// ErrAssembly marks a corrupt or unreadable intermediate document during
	// merge. Unlike conversion failures this aborts the run.
	ErrAssembly = errors.New("assembly failure")
	// ErrConfiguration marks missing or invalid configuration, including a
	// required status label absent from the board.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing local input file.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether err should be retried by the remote client.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Fatal reports whether err must abort the run without retry.
func Fatal(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAssembly)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
