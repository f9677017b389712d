package core

import (
	"errors"
	"fmt"
	"strings"
)

// Run-level failures that abort a brief.
var (
	ErrAllSourcesFailed         = errors.New("all sources failed")
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
	ErrInvalidRequest           = errors.New("invalid request")
)

// ConnectorErrorKind classifies a failed source fetch.
type ConnectorErrorKind string

const (
	ConnectorTimeout     ConnectorErrorKind = "timeout"
	ConnectorUnreachable ConnectorErrorKind = "unreachable"
	ConnectorAuthFailure ConnectorErrorKind = "auth_failure"
	ConnectorMalformed   ConnectorErrorKind = "malformed"
)

// ConnectorError is returned by a connector that could not produce items.
type ConnectorError struct {
	Source string
	Kind   ConnectorErrorKind
	Err    error
}

func (e *ConnectorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("source %s: %s", e.Source, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *ConnectorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConnectorKind reports whether err carries a ConnectorError of the given kind.
func IsConnectorKind(err error, kind ConnectorErrorKind) bool {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// SkipReason explains why a raw item did not become an article.
type SkipReason string

const (
	SkipMissingField       SkipReason = "missing_field"
	SkipInvalidURL         SkipReason = "invalid_url"
	SkipUnsupportedPayload SkipReason = "unsupported_payload"
	SkipOutOfWindow        SkipReason = "out_of_window"
)

// Skip returns a pointer to r, for use as a Normalize result.
func Skip(r SkipReason) *SkipReason {
	return &r
}

// SummaryErrorKind classifies a failed summarization.
type SummaryErrorKind string

const (
	SummaryUnavailable    SummaryErrorKind = "unavailable"
	SummaryTimeout        SummaryErrorKind = "timeout"
	SummaryPolicyRejected SummaryErrorKind = "policy_rejected"
	SummaryEmpty          SummaryErrorKind = "empty"
)

// SummaryError is returned when no summary could be produced for an item.
type SummaryError struct {
	ArticleID string
	Kind      SummaryErrorKind
	Err       error
}

func (e *SummaryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("summarize %s: %s", e.ArticleID, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *SummaryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SchemaValidationError means an assembled or loaded manifest violates the schema.
type SchemaValidationError struct {
	Violations []string
	Err        error
}

func (e *SchemaValidationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("manifest schema validation failed: %v", e.Err)
	}
	return "manifest schema validation failed:\n- " + strings.Join(e.Violations, "\n- ")
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// InsufficientItemsError is returned when fewer items survive filtering than configured.
type InsufficientItemsError struct {
	Have int
	Want int
}

func (e *InsufficientItemsError) Error() string {
	return fmt.Sprintf("insufficient items: have %d, want at least %d", e.Have, e.Want)
}
