package model

import "fmt"

// Code is the shared error taxonomy used across all five components.
type Code string

const (
	CodeBadInput        Code = "bad_input"
	CodeNotFound        Code = "not_found"
	CodeAuthFailure     Code = "auth_failure"
	CodeUpstreamFailure Code = "upstream_failure"
	CodeRateLimited     Code = "rate_limited"
	CodeRiskRejected    Code = "risk_rejected"
	CodeValidation      Code = "validation"
	CodeConflict        Code = "conflict"
	CodeInternal        Code = "internal"
)

// CodedError carries a taxonomy code plus optional structured fields, so the
// HTTP control surface can map it to a status code without re-parsing a
// message string.
type CodedError struct {
	Code    Code
	Message string
	Fields  map[string]any
}

func (e *CodedError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Fields)
}

// NewError builds a CodedError with no extra fields.
func NewError(code Code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy of err with an additional structured field.
func (e *CodedError) WithField(key string, value any) *CodedError {
	fields := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	return &CodedError{Code: e.Code, Message: e.Message, Fields: fields}
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeInternal for
// errors that were never wrapped as a CodedError.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *CodedError
	if asCodedError(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

func asCodedError(err error, target **CodedError) bool {
	ce, ok := err.(*CodedError)
	if !ok {
		return false
	}
	*target = ce
	return true
}
