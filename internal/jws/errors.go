package jws

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedToken is returned when a compact token cannot be decoded structurally.
	ErrMalformedToken = errors.New("malformed token")
	// ErrSignatureRejected is returned for every verification failure.
	ErrSignatureRejected = errors.New("signature rejected")
)

// MalformedTokenError names the token segment that failed to decode.
type MalformedTokenError struct {
	Segment string
	Err     error
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed token: %s: %v", e.Segment, e.Err)
}

func (e *MalformedTokenError) Unwrap() []error {
	return []error{ErrMalformedToken, e.Err}
}

func malformed(segment string, err error) error {
	return &MalformedTokenError{Segment: segment, Err: err}
}

// RejectionError carries the reason a token was not accepted.
type RejectionError struct {
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return "signature rejected: " + e.Reason
	}
	return fmt.Sprintf("signature rejected: %s: %v", e.Reason, e.Err)
}

func (e *RejectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSignatureRejected}
	}
	return []error{ErrSignatureRejected, e.Err}
}

func reject(reason string, err error) error {
	return &RejectionError{Reason: reason, Err: err}
}
