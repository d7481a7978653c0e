package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain errors. Callers match them with errors.Is; handlers map them to HTTP statuses.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyParticipated = errors.New("user has already participated in this challenge")
	ErrAlreadyDecided      = errors.New("winner already selected for this challenge")
	ErrNoParticipants      = errors.New("no participants in this challenge")
	ErrParticipantNotFound = errors.New("user did not participate in this challenge with this blog")
	ErrManualSelection     = errors.New("manual selection requires a specific winner")
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("store unavailable")

	// errGenerationFailed never leaves the generator; it is logged and replaced by the fallback table.
	errGenerationFailed = errors.New("challenge generation failed")
)

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// storeErr classifies a gorm error: missing rows become ErrNotFound, anything else ErrStoreUnavailable.
func storeErr(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	if isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", what, ErrStoreUnavailable, err)
}

func isDomainErr(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrAlreadyParticipated, ErrAlreadyDecided, ErrNoParticipants,
		ErrParticipantNotFound, ErrManualSelection, ErrInvalidInput, ErrForbidden,
		ErrConflict, ErrInvalidCredentials, ErrStoreUnavailable,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
