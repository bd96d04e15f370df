package ports

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var ErrConflict = errors.New("conflict")

// ErrAlreadyActive est un ErrConflict: une autre configuration est déjà active.
var ErrAlreadyActive = fmt.Errorf("%w: another configuration is active", ErrConflict)

// ErrInvalid signale une entrée rejetée par la validation.
var ErrInvalid = errors.New("invalid input")
