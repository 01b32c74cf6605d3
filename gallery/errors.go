package gallery

import (
	"errors"
	"fmt"

	"memoria/store"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("invalid input")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// storeErr turns store sentinels into service errors
func storeErr(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(kind, id)
	case errors.Is(err, store.ErrBadCursor):
		return invalid(err)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrValidation, kind)
	}
	return err
}
