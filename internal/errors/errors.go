package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/moodlog/internal/logger"
)

// Kind classifies a failure by the boundary that has to handle it.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindPermissionDenied
	KindCapture
	KindUpload
	KindClockSkew
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindCapture:
		return "CaptureFailure"
	case KindUpload:
		return "UploadFailure"
	case KindClockSkew:
		return "ClockSkewError"
	default:
		return "Error"
	}
}

// Sentinels for errors.Is matching on kind alone.
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrCapture          = &Error{Kind: KindCapture}
	ErrUpload           = &Error{Kind: KindUpload}
	ErrClockSkew        = &Error{Kind: KindClockSkew}
)

// Error is a classified failure. Op names the operation that failed and Msg
// is an optional user-facing sentence that overrides the kind default.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var detail string
	switch {
	case e.Msg != "" && e.Err != nil:
		detail = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		detail = e.Msg
	case e.Err != nil:
		detail = e.Err.Error()
	default:
		detail = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + detail
	}
	return detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind whose Op is
// empty or equal, so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Configuration reports invalid user configuration, rejected before persisting.
func Configuration(op, msg string) *Error { return newError(KindConfiguration, op, msg, nil) }

// PermissionDenied reports a refused location, camera, microphone or notification permission.
func PermissionDenied(op string, err error) *Error {
	return newError(KindPermissionDenied, op, "", err)
}

// Capture reports a recording or device failure.
func Capture(op string, err error) *Error { return newError(KindCapture, op, "", err) }

// Upload reports a network or server failure. The local artifact is retained.
func Upload(op string, err error) *Error { return newError(KindUpload, op, "", err) }

// ClockSkew reports an evaluator state that should be unreachable.
func ClockSkew(op string) *Error {
	return newError(KindClockSkew, op, "no schedule branch matched the current time", nil)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage converts an error into the sentence shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindConfiguration:
		if e.Msg != "" {
			return e.Msg
		}
		return "The settings are invalid. Please correct them and try again."
	case KindPermissionDenied:
		return "Permission denied. Allow access in your system settings and try again."
	case KindCapture:
		return "Recording failed and was discarded. Please try again."
	case KindUpload:
		return "Upload failed. Your recording is saved on this device but is not backed up yet."
	case KindClockSkew:
		return "Unable to work out the schedule. Check your clock and timezone."
	default:
		return err.Error()
	}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
