package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, "BASIS_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch pgErr.ConstraintName {
		case "unit_events_stream_id_stream_version_key":
			return newServiceError(http.StatusConflict, "BASIS_VERSION_CONFLICT", "unit was modified concurrently, retry with fresh state", err)
		case "unit_events_event_id_key":
			return newServiceError(http.StatusConflict, "BASIS_DUPLICATE_EVENT", "event already appended", err)
		case "units_sibling_short_name_key":
			return newServiceError(http.StatusConflict, "BASIS_SHORT_NAME_CONFLICT", "short name already used among siblings", err)
		case "parties_unit_id_short_name_key":
			return newServiceError(http.StatusConflict, "BASIS_PARTY_SHORT_NAME_CONFLICT", "party short name already used at this unit", err)
		default:
			return newServiceError(http.StatusConflict, "BASIS_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		switch pgErr.ConstraintName {
		case "units_parent_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, "BASIS_PARENT_NOT_FOUND", "parent unit not found", err)
		case "unit_district_assignments_district_id_fkey",
			"district_assignments_district_id_fkey":
			return newServiceError(http.StatusUnprocessableEntity, "BASIS_DISTRICT_NOT_FOUND", "counting district not found", err)
		default:
			return newServiceError(http.StatusUnprocessableEntity, "BASIS_REFERENCE_NOT_FOUND", "foreign key violation", err)
		}
	case "23514": // check_violation
		recordWriteConflict("check")
		return newServiceError(http.StatusBadRequest, "BASIS_INVALID_BODY", "check constraint violated", err)
	default:
		return newServiceError(http.StatusInternalServerError, "BASIS_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
