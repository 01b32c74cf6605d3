package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"memoria/config"
	"memoria/gallery"
	"memoria/models"
	"memoria/utils"
)

type IdentitySyncer interface {
	SyncUser(ctx context.Context, id gallery.Identity) (models.User, error)
}

// OIDC signs users in with the authorization code flow
type OIDC struct {
	verifier   *oidc.IDTokenVerifier
	oauth      oauth2.Config
	users      IdentitySyncer
	afterLogin string
}

type idClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	PreferredUsername string `json:"preferred_username"`
	Nickname          string `json:"nickname"`
	Picture           string `json:"picture"`
}

func (c idClaims) identity() gallery.Identity {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.GivenName + " " + c.FamilyName)
	}
	username := c.PreferredUsername
	if username == "" {
		username = c.Nickname
	}
	id := gallery.Identity{
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       name,
		Username:   username,
	}
	if c.Picture != "" {
		picture := c.Picture
		id.ImageURL = &picture
	}
	return id
}

func NewOIDC(ctx context.Context, cfg config.AuthConfig, users IdentitySyncer) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return &OIDC{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		users:      users,
		afterLogin: cfg.AfterLoginURL,
	}, nil
}

func (o *OIDC) Login(c *gin.Context) {
	session := LoadSession(c)
	state := utils.RandBase62(16)
	session.Set(stateKey, state)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot start session"})
		return
	}
	c.Redirect(http.StatusFound, o.oauth.AuthCodeURL(state))
}

func (o *OIDC) Callback(c *gin.Context) {
	session := LoadSession(c)
	expected, _ := session.Get(stateKey).(string)
	if expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state did not match"})
		return
	}
	ctx := c.Request.Context()
	token, err := o.oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		log.Warn().Err(err).Msg("OIDC code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange token"})
		return
	}
	claims, err := o.verify(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("OIDC token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token"})
		return
	}
	user, err := o.users.SyncUser(ctx, claims.identity())
	if err != nil {
		log.Error().Err(err).Str("sub", claims.Subject).Msg("Cannot sync user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot sync user"})
		return
	}
	if err = session.Login(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot save session"})
		return
	}
	log.Info().Str("user_id", user.ID).Msg("User signed in")
	c.Redirect(http.StatusFound, o.afterLogin)
}

func (o *OIDC) verify(ctx context.Context, token *oauth2.Token) (idClaims, error) {
	var claims idClaims
	raw, ok := token.Extra("id_token").(string)
	if !ok {
		return claims, errors.New("no id_token field in oauth2 token")
	}
	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return claims, err
	}
	err = idToken.Claims(&claims)
	return claims, err
}
