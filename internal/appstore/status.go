package appstore

import (
	"errors"
	"fmt"
)

// Status is a verifyReceipt status code.
type Status int

const (
	StatusValid                   Status = 0
	StatusRequestMethodNotPost    Status = 21000
	StatusCodeNoLongerSent        Status = 21001
	StatusReceiptDataMalformed    Status = 21002
	StatusNotAuthenticated        Status = 21003
	StatusSharedSecretMismatch    Status = 21004
	StatusServerUnavailable       Status = 21005
	StatusSubscriptionExpired     Status = 21006
	StatusFromTestEnvironment     Status = 21007
	StatusFromProductionEnv       Status = 21008
	StatusInternalDataAccessError Status = 21009
	StatusAccountNotFound         Status = 21010

	// 21100-21199 are all internal data access errors.
	statusInternalRangeStart Status = 21100
	statusInternalRangeEnd   Status = 21199
)

var statusReasons = map[Status]string{
	StatusRequestMethodNotPost:    "the request to the App Store was not made using the HTTP POST method",
	StatusCodeNoLongerSent:        "this status code is no longer sent by the App Store",
	StatusReceiptDataMalformed:    "the receipt-data property was malformed or missing",
	StatusNotAuthenticated:        "the receipt could not be authenticated",
	StatusSharedSecretMismatch:    "the shared secret does not match the shared secret on file for the account",
	StatusServerUnavailable:       "the receipt server is temporarily unavailable",
	StatusSubscriptionExpired:     "the receipt is valid but the subscription has expired",
	StatusFromTestEnvironment:     "the receipt is from the test environment but was sent to the production environment",
	StatusFromProductionEnv:       "the receipt is from the production environment but was sent to the test environment",
	StatusInternalDataAccessError: "internal data access error, try again later",
	StatusAccountNotFound:         "the user account cannot be found or has been deleted",
}

func (s Status) IsValid() bool {
	return s == StatusValid
}

// NeedsSandboxRetry is true only for 21007.
func (s Status) NeedsSandboxRetry() bool {
	return s == StatusFromTestEnvironment
}

// IsKnownError reports whether s is in the documented error table.
func (s Status) IsKnownError() bool {
	if _, ok := statusReasons[s]; ok {
		return true
	}
	return s >= statusInternalRangeStart && s <= statusInternalRangeEnd
}

// IsTerminal reports whether the receipt protocol stops with an error on s.
func (s Status) IsTerminal() bool {
	return s.IsKnownError() && !s.NeedsSandboxRetry()
}

// Reason returns the documented description of s.
func (s Status) Reason() string {
	if reason, ok := statusReasons[s]; ok {
		return reason
	}
	if s >= statusInternalRangeStart && s <= statusInternalRangeEnd {
		return "internal data access error"
	}
	if s == StatusValid {
		return "the receipt is valid"
	}
	return "unknown status"
}

func (s Status) String() string {
	return fmt.Sprintf("%d (%s)", int(s), s.Reason())
}

// ErrInvalidReceiptStatus matches every InvalidReceiptStatusError.
var ErrInvalidReceiptStatus = errors.New("invalid receipt status")

// InvalidReceiptStatusError is a terminal rejection reported by the App Store.
type InvalidReceiptStatusError struct {
	Code   int
	Reason string
}

func (e *InvalidReceiptStatusError) Error() string {
	return fmt.Sprintf("receipt verification failed with status %d: %s", e.Code, e.Reason)
}

func (e *InvalidReceiptStatusError) Unwrap() error {
	return ErrInvalidReceiptStatus
}

func newInvalidStatus(s Status) error {
	return &InvalidReceiptStatusError{Code: int(s), Reason: s.Reason()}
}
