package searx

import (
	"fmt"
	"strings"
)

// TransportError reports a failure to obtain a response body: a network
// error, a canceled context, or a non-2xx status. The pagination engine
// treats these as transient and retries them.
type TransportError struct {
	URL        string
	StatusCode int    // 0 if the request never completed
	Source     string // block-page classification, when one was recognized
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport: POST %s", e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Source != "" {
		msg += fmt.Sprintf(" (%s)", e.Source)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that could not be decoded into a
// SearchResponse. It indicates a structural incompatibility with the
// instance, not a transient condition, and is never retried.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode search response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeError describes why one result shape rejected an element.
type ShapeError struct {
	Shape   string   // "legacy" or "main"
	Missing []string // required fields absent from the element
	Unknown []string // element fields outside the shape's known set
	Cause   error    // field-level decode failure, when the key sets matched
}

func (e *ShapeError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unknown, ", "))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		parts = append(parts, "rejected")
	}
	return e.Shape + ": " + strings.Join(parts, "; ")
}

// SchemaMismatchError means a result element satisfied neither the legacy
// nor the main shape. It carries both rejections so the caller can see
// exactly which fields could not be reconciled.
type SchemaMismatchError struct {
	Legacy *ShapeError
	Main   *ShapeError
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("result matches neither known shape: %s; %s", e.Legacy, e.Main)
}
