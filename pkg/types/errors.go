// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Each stays distinguishable through wrapping so
// the caller can tell "no content" from "service unavailable" from
// "malformed model output".
var (
	// ErrSearchUnavailable means the search provider could not be reached.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrNoUsableContent means every source failed to fetch or was deduplicated away.
	ErrNoUsableContent = errors.New("no usable content")

	// ErrSynthesisFailed is matched by every *SynthesisError.
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrRenderFailed means a report violated its structural invariants at export.
	ErrRenderFailed = errors.New("render failed")
)

// Synthesis failure reasons.
const (
	SynthesisModelUnavailable = "model_unavailable"
	SynthesisSchema           = "schema"
)

// SynthesisError reports why the model stage could not produce a report.
type SynthesisError struct {
	// Reason is SynthesisModelUnavailable or SynthesisSchema.
	Reason string

	// Err is the last underlying error, if any.
	Err error
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("synthesis failed (%s)", e.Reason)
	}
	return fmt.Sprintf("synthesis failed (%s): %v", e.Reason, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSynthesisFailed) true for any SynthesisError.
func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesisFailed
}

// SynthesisReason returns the reason of a SynthesisError in err's chain, or "".
func SynthesisReason(err error) string {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}
