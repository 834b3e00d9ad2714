package swap

import (
	"context"
	"errors"
	"fmt"

	"sol-swap/pkg/types"
)

// Error is a classified engine failure
type Error struct {
	Kind types.ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Context errors are reported as
// Cancelled even when they were not wrapped by the engine.
func KindOf(err error) types.ErrorKind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.ErrCancelled
	}
	return ""
}

func newError(kind types.ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// InsufficientFunds reports that the wallet holds only available base units of mint
func InsufficientFunds(mint string, available string) *Error {
	return &Error{
		Kind: types.ErrInsufficientFunds,
		Msg:  fmt.Sprintf("Insufficient %s: you only have %s", mint, available),
	}
}

func quoteUnavailable(err error) *Error {
	return newError(types.ErrQuoteUnavailable, err, "quote unavailable")
}

func routeRejected(err error, format string, args ...interface{}) *Error {
	return newError(types.ErrRouteRejected, err, format, args...)
}

func submissionFailed(err error) *Error {
	return newError(types.ErrSubmissionFailed, err, "submission failed")
}

func allRoutesFailed() *Error {
	return &Error{Kind: types.ErrAllRoutesFailed, Msg: "All swap routes failed"}
}

func cancelled(err error) *Error {
	return newError(types.ErrCancelled, err, "swap cancelled")
}

// InvalidRequest reports a request that cannot be executed as given
func InvalidRequest(format string, args ...interface{}) *Error {
	return newError(types.ErrInvalidRequest, nil, format, args...)
}

// asCancelled converts a context error into a Cancelled engine error
func asCancelled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}
	return err
}

// Message returns the text a caller sees for err. Only messages composed
// here are passed through; upstream detail belongs in the logs.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) && (se.Kind == types.ErrInsufficientFunds || se.Kind == types.ErrInvalidRequest) {
		return se.Msg
	}
	switch KindOf(err) {
	case types.ErrQuoteUnavailable:
		return "Quote unavailable"
	case types.ErrRouteRejected:
		return "Swap route rejected"
	case types.ErrSubmissionFailed:
		return "Transaction submission failed"
	case types.ErrAllRoutesFailed:
		return "All swap routes failed"
	case types.ErrMalformedResponse:
		return "Malformed aggregator response"
	case types.ErrCancelled:
		return "Request cancelled"
	default:
		return "Request failed"
	}
}
