package errors

import "fmt"

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError returns a new ErrNotFound error with the given kind.
func NewNotFoundError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError returns a new ErrBadRequest error with the given kind.
func NewBadRequestError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewInvalidTransitionError returns an ErrBadRequest error with kind
// KindInvalidTransition for the given operation and current state.
func NewInvalidTransitionError(operation string, state string) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s not possible in state %s", operation, state),
		Details: Details{
			"operation": operation,
			"state":     state,
		},
	}
}

// NewInternalError returns an ErrInternal error with the given message and
// details.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr returns an ErrInternal error wrapping the given one.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewContextAbortedError returns an ErrAborted error with kind
// KindContextAborted for the given operation.
func NewContextAbortedError(currentOperation string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: "context aborted",
		Details: Details{"currentOperation": currentOperation},
	}
}

// NewExecQueryError returns an ErrInternal error for a failed query
// execution.
func NewExecQueryError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewScanDBRowError returns an ErrInternal error for a failed row scan.
func NewScanDBRowError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewDBTxBeginError returns an ErrInternal error for a failed transaction
// begin.
func NewDBTxBeginError(err error) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: "begin tx",
	}
}

// NewDBTxCommitError returns an ErrInternal error for a failed transaction
// commit.
func NewDBTxCommitError(err error) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: "commit tx",
	}
}
