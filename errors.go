package tca

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypePrecondition  ErrorType = "precondition"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeSource        ErrorType = "source"
	ErrorTypeQuery         ErrorType = "query"
	ErrorTypeInternal      ErrorType = "internal"
)

// TCAError is the error type returned by every component of the record model.
type TCAError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Table      string         `json:"table,omitempty"`
	Field      string         `json:"field,omitempty"`
	Capability string         `json:"capability,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *TCAError) Error() string {
	var msg string
	switch {
	case e.Table != "" && e.Field != "":
		msg = fmt.Sprintf("[%s:%s] %s.%s: %s", e.Type, e.Code, e.Table, e.Field, e.Message)
	case e.Table != "" && e.Capability != "":
		msg = fmt.Sprintf("[%s:%s] table %s capability %s: %s", e.Type, e.Code, e.Table, e.Capability, e.Message)
	case e.Table != "":
		msg = fmt.Sprintf("[%s:%s] table %s: %s", e.Type, e.Code, e.Table, e.Message)
	case e.Field != "":
		msg = fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	default:
		msg = fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TCAError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a TCAError
func (e *TCAError) WithDetail(key string, value any) *TCAError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a TCAError
func (e *TCAError) WithCause(cause error) *TCAError {
	e.Cause = cause
	return e
}

// WithTable adds table context to a TCAError
func (e *TCAError) WithTable(table string) *TCAError {
	e.Table = table
	return e
}

// WithField adds field context to a TCAError
func (e *TCAError) WithField(field string) *TCAError {
	e.Field = field
	return e
}

// WithCapability adds capability context to a TCAError
func (e *TCAError) WithCapability(capability Capability) *TCAError {
	e.Capability = capability.String()
	return e
}

const (
	// Schema lookup
	ErrCodeUndefinedSchema   = "UNDEFINED_SCHEMA"
	ErrCodeUndefinedField    = "UNDEFINED_FIELD"
	ErrCodeInvalidTCA        = "INVALID_TCA"
	ErrCodeDuplicateTable    = "DUPLICATE_TABLE"
	ErrCodeUnknownFieldType  = "UNKNOWN_FIELD_TYPE"
	ErrCodeSchemaSetNotBuilt = "SCHEMA_SET_NOT_BUILT"

	// Sub-schema type information
	ErrCodeTypeFieldUndefined     = "TYPE_FIELD_UNDEFINED"
	ErrCodeTypeFieldNotRelational = "TYPE_FIELD_NOT_RELATIONAL"
	ErrCodeTypeFieldNoRelation    = "TYPE_FIELD_NO_RELATION"
	ErrCodeTypeFieldEmptyTarget   = "TYPE_FIELD_EMPTY_TARGET"

	// Capabilities
	ErrCodeCapabilityFieldUndefined = "CAPABILITY_FIELD_UNDEFINED"
	ErrCodeCapabilityNotPresent     = "CAPABILITY_NOT_PRESENT"
	ErrCodeCapabilityTypeMismatch   = "CAPABILITY_TYPE_MISMATCH"

	// Records and restrictions
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeAccessTimeNotSet = "ACCESS_TIME_NOT_SET"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeEvaluateFailed   = "EVALUATE_FAILED"

	// Sources
	ErrCodeSourceLoadFailed   = "SOURCE_LOAD_FAILED"
	ErrCodeSourceAccessDenied = "SOURCE_ACCESS_DENIED"
	ErrCodeDocumentInvalid    = "DOCUMENT_INVALID"
)

// NewTCAError creates a new TCAError
func NewTCAError(errorType ErrorType, code, message string) *TCAError {
	return &TCAError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewUndefinedSchemaError reports a table or sub-schema that is not part of the schema set.
func NewUndefinedSchemaError(name string) *TCAError {
	return &TCAError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeUndefinedSchema,
		Message: fmt.Sprintf("no schema exists for %q", name),
		Table:   name,
	}
}

// NewUndefinedFieldError reports a field that is not part of a field collection.
func NewUndefinedFieldError(table, field string) *TCAError {
	return &TCAError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeUndefinedField,
		Message: "field is not defined",
		Table:   table,
		Field:   field,
	}
}

// NewInvalidSchemaTypeError reports a broken ctrl.type definition.
func NewInvalidSchemaTypeError(code, table, field, message string) *TCAError {
	return &TCAError{
		Type:    ErrorTypeConfiguration,
		Code:    code,
		Message: message,
		Table:   table,
		Field:   field,
	}
}

// NewCapabilityNotPresentError reports a capability getter called without a presence check.
func NewCapabilityNotPresentError(table string, capability Capability) *TCAError {
	return &TCAError{
		Type:       ErrorTypePrecondition,
		Code:       ErrCodeCapabilityNotPresent,
		Message:    "capability is not present, check HasCapability first",
		Table:      table,
		Capability: capability.String(),
	}
}

// NewInvalidArgumentError reports an argument that cannot be materialized.
func NewInvalidArgumentError(table, message string) *TCAError {
	return &TCAError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidArgument,
		Message: message,
		Table:   table,
	}
}

// NewAccessTimeNotSetError reports a time restriction evaluated without an access time.
func NewAccessTimeNotSetError(table string) *TCAError {
	return &TCAError{
		Type:    ErrorTypePrecondition,
		Code:    ErrCodeAccessTimeNotSet,
		Message: "access time must be set to evaluate time restrictions",
		Table:   table,
	}
}

// NewSourceError wraps a failure while loading table configuration.
func NewSourceError(code, message string, cause error) *TCAError {
	return &TCAError{
		Type:    ErrorTypeSource,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func hasCode(err error, codes ...string) bool {
	var tcaErr *TCAError
	if !errors.As(err, &tcaErr) {
		return false
	}
	for _, code := range codes {
		if tcaErr.Code == code {
			return true
		}
	}
	return false
}

// IsUndefinedSchema reports whether err is an undefined schema error.
func IsUndefinedSchema(err error) bool {
	return hasCode(err, ErrCodeUndefinedSchema)
}

// IsUndefinedField reports whether err is an undefined field error.
func IsUndefinedField(err error) bool {
	return hasCode(err, ErrCodeUndefinedField)
}

// IsInvalidSchemaType reports whether err comes from a broken ctrl.type definition.
func IsInvalidSchemaType(err error) bool {
	return hasCode(err,
		ErrCodeTypeFieldUndefined,
		ErrCodeTypeFieldNotRelational,
		ErrCodeTypeFieldNoRelation,
		ErrCodeTypeFieldEmptyTarget,
	)
}

// IsCapabilityNotPresent reports whether err is a missing presence check.
func IsCapabilityNotPresent(err error) bool {
	return hasCode(err, ErrCodeCapabilityNotPresent)
}

// IsInvalidArgument reports whether err is an invalid argument error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsAccessTimeNotSet reports whether err is a missing access time error.
func IsAccessTimeNotSet(err error) bool {
	return hasCode(err, ErrCodeAccessTimeNotSet)
}
