package gallery

import "fmt"

func guard(actor Actor, ownerID string) error {
	if actor.UserID == "" || actor.UserID != ownerID {
		return fmt.Errorf("%w: not the owner", ErrUnauthorized)
	}
	return nil
}
