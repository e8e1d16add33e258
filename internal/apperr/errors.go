// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/staranto/recipectl/internal/transport"
)

// Kind is the classification of an Error.
type Kind int

const (
	KindRepository Kind = iota
	KindTimeout
	KindNetworkUnavailable
	KindServerError
	KindInvalidData
	KindMalformedData
	KindNoData
)

// String returns the label used in logs, metrics and JSON bodies.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindServerError:
		return "server_error"
	case KindInvalidData:
		return "invalid_data"
	case KindMalformedData:
		return "malformed_data"
	case KindNoData:
		return "no_data"
	default:
		return "repository_error"
	}
}

// Error is a classified failure. Code is set for KindServerError, Detail for
// KindInvalidData and KindMalformedData. Err is the underlying cause, if any.
type Error struct {
	Kind   Kind
	Code   int
	Detail string
	Err    error
}

// Sentinels for errors.Is. A sentinel matches any Error of the same kind.
var (
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrNetworkUnavailable = &Error{Kind: KindNetworkUnavailable}
	ErrServerError        = &Error{Kind: KindServerError}
	ErrInvalidData        = &Error{Kind: KindInvalidData}
	ErrMalformedData      = &Error{Kind: KindMalformedData}
	ErrNoData             = &Error{Kind: KindNoData}
	ErrRepository         = &Error{Kind: KindRepository}
)

func Timeout(err error) *Error            { return &Error{Kind: KindTimeout, Err: err} }
func NetworkUnavailable(err error) *Error { return &Error{Kind: KindNetworkUnavailable, Err: err} }
func ServerError(code int) *Error         { return &Error{Kind: KindServerError, Code: code} }
func InvalidData(detail string) *Error    { return &Error{Kind: KindInvalidData, Detail: detail} }
func MalformedData(detail string) *Error  { return &Error{Kind: KindMalformedData, Detail: detail} }
func NoData() *Error                      { return &Error{Kind: KindNoData} }
func Repository(err error) *Error         { return &Error{Kind: KindRepository, Err: err} }

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindServerError:
		msg = fmt.Sprintf("server error: %d", e.Code)
	case KindInvalidData, KindMalformedData:
		msg = e.Kind.String()
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, and on Code and Detail when the target sets them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Code != 0 && t.Code != e.Code {
		return false
	}
	if t.Detail != "" && t.Detail != e.Detail {
		return false
	}
	return true
}

// KindOf returns the kind of err. Unclassified errors are KindRepository.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindRepository
}

// FromTransport classifies a fetch failure. A nil err yields nil.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var te *transport.Error
	if !errors.As(err, &te) {
		if errors.Is(err, context.DeadlineExceeded) {
			return Timeout(err)
		}
		return Repository(err)
	}

	switch te.Kind {
	case transport.KindTimeout:
		return Timeout(err)
	case transport.KindNetwork:
		return NetworkUnavailable(err)
	case transport.KindStatus:
		if te.StatusCode >= 500 {
			return ServerError(te.StatusCode)
		}
		return InvalidData(fmt.Sprintf("HTTP %d", te.StatusCode))
	case transport.KindNoData:
		return NoData()
	default:
		return Repository(err)
	}
}

// UserMessage is a sentence fit to show an end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timed out. Please try again"
	case KindNetworkUnavailable:
		return "Network is currently unavailable"
	case KindServerError:
		return fmt.Sprintf("Server error (%d). Please try again later", e.Code)
	case KindInvalidData:
		return "Data format error: " + e.Detail
	case KindMalformedData:
		return "Invalid recipe data: " + e.Detail
	case KindNoData:
		return "No data available at the moment"
	default:
		if e.Err != nil {
			return "Data access error: " + e.Err.Error()
		}
		return "Data access error"
	}
}

// Recoverable reports whether retrying the same request may succeed.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case KindTimeout, KindNetworkUnavailable, KindServerError:
		return true
	}
	return false
}

// RecoveryAction suggests what the user can do, or "" if nothing.
func (e *Error) RecoveryAction() string {
	switch e.Kind {
	case KindNetworkUnavailable:
		return "Check your internet connection and try again"
	case KindTimeout, KindServerError:
		return "Try again later"
	}
	return ""
}
