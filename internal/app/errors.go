package app

import (
	"errors"
	"fmt"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict
	ErrInvalid  = ports.ErrInvalid
)

// CodedError porte un code stable et un message lisible destiné au client.
// Err est la sentinelle de ports, ce qui permet errors.Is côté httpapi.
//
// Codes: not_found, conflict, invalid.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func notFound(format string, args ...any) error {
	return &CodedError{Code: "not_found", Message: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

func conflict(format string, args ...any) error {
	return &CodedError{Code: "conflict", Message: fmt.Sprintf(format, args...), Err: ErrConflict}
}

func invalid(format string, args ...any) error {
	return &CodedError{Code: "invalid", Message: fmt.Sprintf(format, args...), Err: ErrInvalid}
}

func homeScreenNotFound(id string) error {
	return notFound("Home screen configuration with ID %s not found", id)
}

func contentItemNotFound(id string) error {
	return notFound("Content item with ID %s not found", id)
}

func episodeNotFound(id string) error {
	return notFound("Episode with ID %s not found", id)
}

// sectionError traduit les erreurs de domain.SectionSet.
func sectionError(configID string, err error) error {
	var coded *CodedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return err
	case errors.Is(err, domain.ErrSectionNotFound):
		return notFound("%s (home screen configuration %s)", err.Error(), configID)
	case errors.Is(err, domain.ErrDuplicateSection):
		return conflict("%s", err.Error())
	case errors.Is(err, domain.ErrInvalidSection):
		return invalid("%s", err.Error())
	default:
		return err
	}
}
