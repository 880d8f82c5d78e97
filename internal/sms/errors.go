package sms

import (
	"errors"
	"fmt"
)

// Reason classifies why a message did not produce an event.
type Reason string

// Rejection reasons.
const (
	ReasonUnknownIssuer      Reason = "unknown_issuer"
	ReasonMalformedBody      Reason = "malformed_body"
	ReasonAmbiguousDirection Reason = "ambiguous_direction"
	ReasonNumericParse       Reason = "numeric_parse"
)

// Parse failures. ErrNumericParse is also an ErrMalformedBody: the issuer was
// recognized but a field did not hold a usable value.
var (
	ErrUnknownIssuer      = errors.New("unknown issuer")
	ErrMalformedBody      = errors.New("malformed message body")
	ErrAmbiguousDirection = errors.New("ambiguous direction")
	ErrNumericParse       = errors.New("numeric parse error")
)

// ParseError describes a rejected message.
type ParseError struct {
	Err    error
	Reason Reason
	Issuer string
	Field  string
}

func (e *ParseError) Error() string {
	msg := string(e.Reason)
	if e.Issuer != "" {
		msg = e.Issuer + ": " + msg
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the sentinel for the reason along with the underlying cause.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, 0, 3)
	switch e.Reason {
	case ReasonUnknownIssuer:
		errs = append(errs, ErrUnknownIssuer)
	case ReasonMalformedBody:
		errs = append(errs, ErrMalformedBody)
	case ReasonAmbiguousDirection:
		errs = append(errs, ErrAmbiguousDirection)
	case ReasonNumericParse:
		errs = append(errs, ErrNumericParse, ErrMalformedBody)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ReasonOf extracts the rejection reason from err, or "" when err is not a parse failure.
func ReasonOf(err error) Reason {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}

// IssuerOf returns the issuer recorded on a parse failure, if any.
func IssuerOf(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Issuer
	}
	return ""
}
