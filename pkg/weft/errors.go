package weft

import (
	"fmt"
	"sync"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// ErrorKind classifies a diagnostic record.
type ErrorKind string

const (
	ErrKindSyntax     ErrorKind = "syntax"
	ErrKindResolution ErrorKind = "resolution"
	ErrKindType       ErrorKind = "type"
	ErrKindModule     ErrorKind = "module"
	ErrKindFatal      ErrorKind = "fatal"
)

// Severity distinguishes diagnostics the render survived from ones that
// aborted a content unit or the whole invocation.
type Severity int

const (
	SeverityRecoverable Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// ErrorRecord is one accumulated diagnostic. Position is a byte offset
// into the unit's text, or -1 when no position applies.
type ErrorRecord struct {
	Kind     ErrorKind
	Message  string
	UnitID   string
	Position int
	Severity Severity
}

func (r ErrorRecord) String() string {
	if r.Position >= 0 {
		return fmt.Sprintf("[%s] %s unit=%s pos=%d: %s", r.Severity, r.Kind, r.UnitID, r.Position, r.Message)
	}
	return fmt.Sprintf("[%s] %s unit=%s: %s", r.Severity, r.Kind, r.UnitID, r.Message)
}

// SyntaxError reports unmatched or malformed block tags. It is always
// fatal for the affected content unit.
type SyntaxError struct {
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Position, e.Message)
}

// ResolutionError reports a context path that could not be resolved
// under strict mode.
type ResolutionError struct {
	Path string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve path %q", e.Path)
}

// TypeError reports a value of the wrong shape, such as a loop target
// that is not a sequence.
type TypeError struct {
	Path    string
	Message string
}

func (e *TypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("type error at %q: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("type error: %s", e.Message)
}

// ModuleError wraps a failure (returned error or recovered panic) from
// one module phase.
type ModuleError struct {
	Module string
	Phase  string
	Cause  error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q failed in %s phase: %v", e.Module, e.Phase, e.Cause)
}

func (e *ModuleError) Unwrap() error {
	return e.Cause
}

// kindOf maps an error to its record kind.
func kindOf(err error) ErrorKind {
	var syntaxErr *SyntaxError
	var resolutionErr *ResolutionError
	var typeErr *TypeError
	var moduleErr *ModuleError
	switch {
	case errors.As(err, &syntaxErr):
		return ErrKindSyntax
	case errors.As(err, &resolutionErr):
		return ErrKindResolution
	case errors.As(err, &typeErr):
		return ErrKindType
	case errors.As(err, &moduleErr):
		return ErrKindModule
	}
	return ErrKindFatal
}

// positionOf extracts a byte position from errors that carry one.
func positionOf(err error) int {
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Position
	}
	return -1
}

// recordFor builds an ErrorRecord from an error.
func recordFor(err error, unitID string, severity Severity) ErrorRecord {
	return ErrorRecord{
		Kind:     kindOf(err),
		Message:  err.Error(),
		UnitID:   unitID,
		Position: positionOf(err),
		Severity: severity,
	}
}

// ErrorCollector accumulates non-fatal diagnostics across one render
// invocation. It is purely additive during an invocation and reset at
// the start of the next one. Safe for concurrent use: content units
// render in parallel.
type ErrorCollector struct {
	mu      sync.Mutex
	records []ErrorRecord
}

// NewErrorCollector returns an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Reset discards all accumulated records.
func (c *ErrorCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

// Add appends a record.
func (c *ErrorCollector) Add(record ErrorRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

// AddError appends a record derived from err.
func (c *ErrorCollector) AddError(err error, unitID string, severity Severity) {
	if err == nil {
		return
	}
	c.Add(recordFor(err, unitID, severity))
}

// All returns a copy of the accumulated records.
func (c *ErrorCollector) All() []ErrorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ErrorRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of accumulated records.
func (c *ErrorCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Err combines every record into a single error, or nil when the
// invocation was clean.
func (c *ErrorCollector) Err() error {
	var combined error
	for _, record := range c.All() {
		combined = multierr.Append(combined, errors.New(record.String()))
	}
	return combined
}
