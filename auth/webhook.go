package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	svix "github.com/svix/svix-webhooks/go"

	"memoria/gallery"
	"memoria/models"
)

const maxWebhookBody = 1 << 20

type UserEvents interface {
	IdentitySyncer
	DeleteUser(ctx context.Context, externalID string) (bool, error)
}

// Webhook receives signed user lifecycle events from the identity provider
type Webhook struct {
	wh    *svix.Webhook
	users UserEvents
}

type userEvent struct {
	Type string    `json:"type"`
	Data eventUser `json:"data"`
}

type eventUser struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (u eventUser) primaryEmail() (string, bool) {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress, true
		}
	}
	return "", false
}

func NewWebhook(secret string, users UserEvents) (*Webhook, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &Webhook{wh: wh, users: users}, nil
}

func (w *Webhook) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	if err = w.wh.Verify(body, c.Request.Header); err != nil {
		log.Warn().Err(err).Msg("Webhook signature rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "error verifying webhook"})
		return
	}
	var evt userEvent
	if err = json.Unmarshal(body, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	ctx := c.Request.Context()
	switch evt.Type {
	case "user.created", "user.updated":
		email, ok := evt.Data.primaryEmail()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user has no primary email address"})
			return
		}
		id := gallery.Identity{
			ExternalID: evt.Data.ID,
			Email:      email,
			Name:       strings.TrimSpace(evt.Data.FirstName + " " + evt.Data.LastName),
			Username:   evt.Data.Username,
		}
		if evt.Data.ImageURL != "" {
			id.ImageURL = &evt.Data.ImageURL
		}
		var user models.User
		if user, err = w.users.SyncUser(ctx, id); err == nil {
			log.Info().Str("event", evt.Type).Str("user_id", user.ID).Msg("User synced")
		}
	case "user.deleted":
		var deleted bool
		if deleted, err = w.users.DeleteUser(ctx, evt.Data.ID); err == nil {
			log.Info().Str("external_id", evt.Data.ID).Bool("deleted", deleted).Msg("User deleted")
		}
	default:
		log.Debug().Str("event", evt.Type).Msg("Webhook event ignored")
	}
	if err != nil {
		log.Error().Err(err).Str("event", evt.Type).Msg("Error handling webhook")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error handling webhook"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
