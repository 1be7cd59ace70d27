package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openelect/basis/modules/masterdata/domain/orgunit"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// mapDomainError translates aggregate sentinels into service errors with
// stable codes. Unknown errors pass through untouched so pg mapping can
// still see them.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}

	var fe *orgunit.FieldError
	if errors.As(err, &fe) {
		return newServiceError(http.StatusBadRequest, "BASIS_INVALID_BODY", fe.Error(), err)
	}

	switch {
	case errors.Is(err, orgunit.ErrNotFound):
		return newServiceError(http.StatusNotFound, "BASIS_UNIT_NOT_FOUND", "unit not found", err)
	case errors.Is(err, orgunit.ErrDeleted):
		return newServiceError(http.StatusNotFound, "BASIS_UNIT_DELETED", "unit is deleted", err)
	case errors.Is(err, orgunit.ErrAlreadyExists):
		return newServiceError(http.StatusConflict, "BASIS_UNIT_EXISTS", "unit already exists", err)
	case errors.Is(err, orgunit.ErrParentNotFound):
		return newServiceError(http.StatusUnprocessableEntity, "BASIS_PARENT_NOT_FOUND", "parent unit not found", err)
	case errors.Is(err, orgunit.ErrPoliticalMismatch):
		return newServiceError(http.StatusUnprocessableEntity, "BASIS_POLITICAL_MISMATCH", "political flag must match the parent", err)
	case errors.Is(err, orgunit.ErrKindLevelAboveParent):
		return newServiceError(http.StatusUnprocessableEntity, "BASIS_KIND_LEVEL", "unit kind must not be more general than its parent", err)
	case errors.Is(err, orgunit.ErrDistrictAlreadyInherited):
		return newServiceError(http.StatusConflict, "BASIS_DISTRICT_INHERITED", "counting district already inherited in tree", err)
	case errors.Is(err, orgunit.ErrPartyNotFound):
		return newServiceError(http.StatusNotFound, "BASIS_PARTY_NOT_FOUND", "party not found", err)
	case errors.Is(err, orgunit.ErrNoLogo):
		return newServiceError(http.StatusNotFound, "BASIS_LOGO_NOT_FOUND", "unit has no logo", err)
	default:
		return err
	}
}
