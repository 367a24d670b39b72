package custom_error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidVial     = errors.New("invalid vial")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrNotAuthorized   = errors.New("not authorized")
)

// DomainError is returned by every mutating operation. Kind is one of the
// sentinels above, so callers branch with errors.Is.
type DomainError struct {
	Kind     error  `json:"-"`
	Entity   string `json:"entity,omitempty"`
	ID       int    `json:"id,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Expected int    `json:"expected_version,omitempty"`
	Actual   int    `json:"current_version,omitempty"`
	VialIDs  []int  `json:"vial_ids,omitempty"`
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		fmt.Fprintf(&b, ": %s", e.Entity)
		if e.ID != 0 {
			fmt.Fprintf(&b, " %d", e.ID)
		}
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Code is the stable machine-readable name of the error kind.
func (e *DomainError) Code() string {
	switch e.Kind {
	case ErrVersionConflict:
		return "VERSION_CONFLICT"
	case ErrInvalidState:
		return "INVALID_STATE"
	case ErrInvalidVial:
		return "INVALID_VIAL"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrValidation:
		return "VALIDATION_ERROR"
	case ErrNotAuthorized:
		return "NOT_AUTHORIZED"
	default:
		return "ERROR"
	}
}

func VersionConflict(entity string, id, expected, actual int) *DomainError {
	return &DomainError{
		Kind:     ErrVersionConflict,
		Entity:   entity,
		ID:       id,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("expected version %d, current version is %d", expected, actual),
	}
}

func InvalidState(entity string, id int, message string) *DomainError {
	return &DomainError{Kind: ErrInvalidState, Entity: entity, ID: id, Message: message}
}

func InvalidVial(vialIDs []int, message string) *DomainError {
	return &DomainError{Kind: ErrInvalidVial, Entity: "vial", VialIDs: vialIDs, Message: message}
}

func NotFound(entity string, id int) *DomainError {
	return &DomainError{Kind: ErrNotFound, Entity: entity, ID: id}
}

func Validation(field, message string) *DomainError {
	return &DomainError{Kind: ErrValidation, Field: field, Message: message}
}

func NotAuthorized(message string) *DomainError {
	return &DomainError{Kind: ErrNotAuthorized, Message: message}
}

// StatusCode maps an error onto the HTTP status handlers respond with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidVial):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
