/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rdrerr defines the error kinds the rest of the tool returns.
// Each kind maps to a CLI exit code (see cmd/rdr) and a recovery policy:
// parsing-level anomalies are logged and dropped, the rest terminate the
// current operation.
package rdrerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for exit-code selection and logging policy.
type Kind int

const (
	// Unknown is the zero value; plain errors not produced by this
	// package decode to Unknown.
	Unknown Kind = iota
	TimeBeforeEpoch
	UnknownApid
	OrphanContinuation
	LateGroup
	TruncatedGroup
	Inconsistent
	Hdf5Error
	Io
	Config
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case TimeBeforeEpoch:
		return "TimeBeforeEpoch"
	case UnknownApid:
		return "UnknownApid"
	case OrphanContinuation:
		return "OrphanContinuation"
	case LateGroup:
		return "LateGroup"
	case TruncatedGroup:
		return "TruncatedGroup"
	case Inconsistent:
		return "Inconsistent"
	case Hdf5Error:
		return "Hdf5Error"
	case Io:
		return "Io"
	case Config:
		return "Config"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether an error of this kind should be logged and
// the offending packet/group dropped rather than aborting the operation.
func (k Kind) Recoverable() bool {
	switch k {
	case OrphanContinuation, TruncatedGroup, LateGroup, UnknownApid:
		return true
	default:
		return false
	}
}

// ExitCode maps a Kind to the process exit code described in spec.md's
// external-interfaces section.
func (k Kind) ExitCode() int {
	switch k {
	case Cancelled:
		return 130
	case Config:
		return 2
	case TimeBeforeEpoch, Inconsistent:
		return 3
	case Hdf5Error, Io:
		return 1
	default:
		return 1
	}
}

// Error wraps an underlying cause with a Kind.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with a message.
func New(k Kind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(k Kind, msg string, cause error) error {
	if cause == nil {
		return New(k, msg)
	}
	return &Error{Kind: k, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind from err, returning Unknown if err was not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
