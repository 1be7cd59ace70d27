package orgunit

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists            = errors.New("unit already exists")
	ErrNotFound                 = errors.New("unit not found")
	ErrDeleted                  = errors.New("unit is deleted")
	ErrParentNotFound           = errors.New("parent unit not found")
	ErrPoliticalMismatch        = errors.New("political units require a political parent and non-political units a non-political parent")
	ErrKindLevelAboveParent     = errors.New("unit kind must not be more general than its parent")
	ErrDistrictAlreadyInherited = errors.New("counting district already inherited in tree")
	ErrPartyNotFound            = errors.New("party not found")
	ErrNoLogo                   = errors.New("unit has no logo")
)

// FieldError is a validation failure naming the offending field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
