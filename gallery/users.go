package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"memoria/models"
	"memoria/store"
)

// Identity is a verified profile handed over by the identity provider
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	Username   string
	ImageURL   *string
}

func (i Identity) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ExternalID, validation.Required),
	)
}

// SyncUser creates or refreshes the user record of an external identity
func (s *Service) SyncUser(ctx context.Context, id Identity) (models.User, error) {
	if err := id.Validate(); err != nil {
		return models.User{}, invalid(err)
	}
	now := s.millis()
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = "User"
	}
	username := strings.TrimSpace(id.Username)
	if username == "" {
		username = fmt.Sprintf("user%d", now)
	}
	var user models.User
	err := s.st.Tx(ctx, func(tx store.Store) error {
		existing, err := tx.FindUserByExternalID(ctx, id.ExternalID)
		if err != nil && !isStoreNotFound(err) {
			return err
		}
		found := err == nil
		if taken, err := tx.FindUserByUsername(ctx, username); err == nil && taken.ExternalID != id.ExternalID {
			if found && strings.HasPrefix(existing.Username, username) {
				// already holds a suffixed form of this handle
				username = existing.Username
			} else {
				username = fmt.Sprintf("%s%d", username, now%100000)
			}
		}
		if found {
			patch := store.UserPatch{Name: name, Username: username, Email: id.Email, ImageURL: id.ImageURL, UpdatedAt: now}
			if err = tx.PatchUser(ctx, existing.ID, patch); err != nil {
				return storeErr(err, "user", existing.ID)
			}
			user, err = tx.GetUser(ctx, existing.ID)
			return storeErr(err, "user", existing.ID)
		}
		user = models.User{
			ID:         uuid.NewString(),
			ExternalID: id.ExternalID,
			Name:       name,
			Username:   username,
			Email:      id.Email,
			ImageURL:   id.ImageURL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return storeErr(tx.InsertUser(ctx, &user), "user", user.ID)
	})
	return user, err
}

// DeleteUser removes the user of an external identity with all of its albums
// and photos. It reports false when no such user exists.
func (s *Service) DeleteUser(ctx context.Context, externalID string) (bool, error) {
	var (
		keys    []string
		deleted bool
	)
	err := s.st.Tx(ctx, func(tx store.Store) error {
		user, err := tx.FindUserByExternalID(ctx, externalID)
		if isStoreNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		albums, err := tx.ListAlbums(ctx, store.AlbumQuery{UserID: user.ID})
		if err != nil {
			return err
		}
		for _, album := range albums.Items {
			albumKeys, err := deleteAlbumTx(ctx, tx, album.ID)
			if err != nil {
				return err
			}
			keys = append(keys, albumKeys...)
		}
		if err = tx.DeleteUser(ctx, user.ID); err != nil {
			return storeErr(err, "user", user.ID)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	s.reap(keys)
	return deleted, nil
}

func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.st.GetUser(ctx, actor.UserID)
	if isStoreNotFound(err) {
		// session outlived the record
		return models.User{}, ErrUnauthorized
	}
	return user, err
}

func (s *Service) UserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.st.GetUser(ctx, id)
	return user, storeErr(err, "user", id)
}

// UserByExternalID is used by the login flow after the identity is verified
func (s *Service) UserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	user, err := s.st.FindUserByExternalID(ctx, externalID)
	return user, storeErr(err, "user", externalID)
}

func (s *Service) ListUsers(ctx context.Context, limit int, cursor string) (store.Page[models.User], error) {
	page, err := s.st.ListUsers(ctx, clampLimit(limit), cursor)
	return page, storeErr(err, "user", "")
}

func (s *Service) AllUsers(ctx context.Context) ([]models.User, error) {
	page, err := s.st.ListUsers(ctx, 0, "")
	return page.Items, err
}

// UsernameAvailable reports whether username is free or already the caller's
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, invalid(errors.New("username is required"))
	}
	user, err := s.st.FindUserByUsername(ctx, username)
	if isStoreNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return user.ID == viewerID(ctx), nil
}
