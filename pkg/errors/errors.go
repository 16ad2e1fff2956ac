// Package errors provides structured error handling for walletdir.
// It defines sentinel errors, exit codes, HTTP status mapping, and helpers
// for adding context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Exit codes for the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication failed
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied
	ExitStorage    = 6 // Durable store unavailable
)

// Error is the structured error type for walletdir.
type Error struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
	Status     int               // HTTP status for the API
	Kind       *Error            // Broader error this one refines, if any
}

func (e *Error) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error. An error matches its own code and
// the code of every Kind above it.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	for k := e; k != nil; k = k.Kind {
		if k.Code == t.Code {
			return true
		}
	}
	return false
}

// clone returns a shallow copy of e for the With* helpers.
func (e *Error) clone() *Error {
	c := *e
	return &c
}

// Sentinel errors.
var (
	ErrGeneral = &Error{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
		Status:   http.StatusInternalServerError,
	}

	// ErrInvalidInput is the validation error: the caller supplied an
	// empty or unusable identity key.
	ErrInvalidInput = &Error{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
	}

	ErrNotFound = &Error{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
		Status:   http.StatusNotFound,
	}

	ErrPermission = &Error{
		Code:     "PERMISSION_DENIED",
		Message:  "permission denied",
		ExitCode: ExitPermission,
		Status:   http.StatusForbidden,
	}

	// ErrStorage indicates the durable store could not be read or written.
	ErrStorage = &Error{
		Code:     "STORAGE_ERROR",
		Message:  "wallet store unavailable",
		ExitCode: ExitStorage,
		Status:   http.StatusInternalServerError,
	}

	// Wallet-specific errors.
	ErrWalletNotFound = &Error{
		Code:     "WALLET_NOT_FOUND",
		Message:  "wallet not found",
		ExitCode: ExitNotFound,
		Status:   http.StatusNotFound,
	}

	// The email errors refine ErrInvalidInput.
	ErrEmailRequired = &Error{
		Code:     "EMAIL_REQUIRED",
		Message:  "email is required",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
		Kind:     ErrInvalidInput,
	}

	ErrInvalidEmail = &Error{
		Code:     "INVALID_EMAIL",
		Message:  "email cannot contain whitespace or quotes",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
		Kind:     ErrInvalidInput,
	}

	ErrEmailTooLong = &Error{
		Code:     "EMAIL_TOO_LONG",
		Message:  "email is too long",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
		Kind:     ErrInvalidInput,
	}

	ErrCorruptRecord = &Error{
		Code:     "CORRUPT_RECORD",
		Message:  "malformed wallet record",
		ExitCode: ExitStorage,
		Status:   http.StatusInternalServerError,
	}

	// Config-specific errors.
	ErrConfigNotFound = &Error{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
		Status:   http.StatusNotFound,
	}

	ErrConfigInvalid = &Error{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
	}

	ErrUnknownConfigKey = &Error{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
	}

	// Backup-specific errors.
	ErrBackupNotFound = &Error{
		Code:     "BACKUP_NOT_FOUND",
		Message:  "backup file not found",
		ExitCode: ExitNotFound,
		Status:   http.StatusNotFound,
	}

	ErrBackupCorrupted = &Error{
		Code:     "BACKUP_CORRUPTED",
		Message:  "backup file is corrupted - checksum mismatch",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
	}

	ErrInvalidBackup = &Error{
		Code:     "INVALID_BACKUP",
		Message:  "invalid backup format",
		ExitCode: ExitInput,
		Status:   http.StatusBadRequest,
	}

	ErrDecryptionFailed = &Error{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
		Status:   http.StatusUnauthorized,
	}

	// HTTP boundary errors.
	ErrRateLimited = &Error{
		Code:     "RATE_LIMITED",
		Message:  "too many requests",
		ExitCode: ExitGeneral,
		Status:   http.StatusTooManyRequests,
	}

	ErrMethodNotAllowed = &Error{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "method not allowed",
		ExitCode: ExitInput,
		Status:   http.StatusMethodNotAllowed,
	}

	ErrRouteNotFound = &Error{
		Code:     "ROUTE_NOT_FOUND",
		Message:  "route not found",
		ExitCode: ExitNotFound,
		Status:   http.StatusNotFound,
	}
)

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
		Status:   http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *Error
	if errors.As(err, &se) {
		c := se.clone()
		c.Message = fmt.Sprintf("%s: %s", msg, se.Message)
		return c
	}

	return &Error{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
		Status:   http.StatusInternalServerError,
	}
}

// WithCause attaches an underlying cause to a coded error, keeping the
// code, exit code and status of the coded error.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		c := se.clone()
		c.Cause = cause
		return c
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		c := se.clone()
		c.Details = details
		return c
	}

	return &Error{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
		Status:   http.StatusInternalServerError,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		c := se.clone()
		c.Suggestion = suggestion
		return c
	}

	return &Error{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
		Status:     http.StatusInternalServerError,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *Error
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// HTTPStatus returns the HTTP status code an API response should carry
// for err.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var se *Error
	if errors.As(err, &se) && se.Status != 0 {
		return se.Status
	}

	return http.StatusInternalServerError
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
