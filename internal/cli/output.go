package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/roach88/docsql/internal/codec"
	"github.com/roach88/docsql/internal/query"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/store"
	"github.com/roach88/docsql/internal/txn"
	"github.com/roach88/docsql/internal/value"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed or record not found
	ExitCommandError = 2 // Command error (bad flags, unreadable schema, database not openable)
)

// Error codes reported in JSON error responses.
const (
	ErrCodeGeneric       = "E001"
	ErrCodeNotFound      = "E002"
	ErrCodeUnknownStore  = "E003"
	ErrCodeTypeMismatch  = "E004"
	ErrCodeBackend       = "E005"
	ErrCodeInvalidSchema = "E006"
	ErrCodeInvalidInput  = "E007"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode classifies err for JSON error responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, errNotFound):
		return ErrCodeNotFound
	case errors.Is(err, schema.ErrUnknownStore):
		return ErrCodeUnknownStore
	case errors.Is(err, value.ErrMismatch):
		return ErrCodeTypeMismatch
	case errors.Is(err, txn.ErrBackend):
		return ErrCodeBackend
	case errors.Is(err, schema.ErrInvalidSchema), errors.Is(err, schema.ErrReservedName):
		return ErrCodeInvalidSchema
	case errors.Is(err, query.ErrInvalidQuery), errors.Is(err, store.ErrInvalidConfig), errors.Is(err, errInvalidInput):
		return ErrCodeInvalidInput
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by results with a dedicated text layout.
type textRenderer interface {
	renderText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	if r, ok := data.(textRenderer); ok {
		return r.renderText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	w := f.GetErrWriter()
	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// recordsResult prints one JSON object per line in text mode.
type recordsResult struct {
	Records []codec.Record `json:"records"`
}

func (r recordsResult) renderText(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range r.Records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// keysResult lists the keys written by put.
type keysResult struct {
	Keys []any `json:"keys"`
}

func (r keysResult) renderText(w io.Writer) error {
	for _, k := range r.Keys {
		if _, err := fmt.Fprintln(w, k); err != nil {
			return err
		}
	}
	return nil
}

func newKeysResult(keys []value.Value) keysResult {
	out := keysResult{Keys: make([]any, len(keys))}
	for i, k := range keys {
		if k != nil {
			out.Keys[i] = k.Any()
		}
	}
	return out
}

// countResult is printed as a bare number in text mode.
type countResult struct {
	Store string `json:"store"`
	Count int    `json:"count"`
}

func (r countResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Count)
	return err
}

// foldResult is a query run in reduce mode.
type foldResult struct {
	Value any `json:"value"`
}

func (r foldResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, r.Value)
	return err
}

// statementsResult prints generated DDL, one statement per line.
type statementsResult struct {
	Statements []string `json:"statements"`
}

func (r statementsResult) renderText(w io.Writer) error {
	for _, s := range r.Statements {
		if _, err := fmt.Fprintf(w, "%s;\n", s); err != nil {
			return err
		}
	}
	return nil
}
