package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria/gallery"
	"memoria/models"
)

// User is authenticated and loaded
type HandlerFunc func(c *gin.Context, user *models.User)

type UserLoader interface {
	CurrentUser(ctx context.Context) (models.User, error)
}

// Router is a wrapper class that adds auth checks + User pre-loading.
// The verified actor is put on the request context for the service layer.
type Router struct {
	Base  gin.IRouter
	Users UserLoader
}

// withActor copies the session actor, if any, onto the request context
func withActor(c *gin.Context) bool {
	actor, ok := LoadSession(c).Actor()
	if ok {
		c.Request = c.Request.WithContext(gallery.WithActor(c.Request.Context(), actor))
	}
	return ok
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc) {
	if !withActor(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	user, err := cr.Users.CurrentUser(c.Request.Context())
	if err != nil {
		LoadSession(c).LogoutUser()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	handler(c, &user)
}

func (cr *Router) POST(path string, handler HandlerFunc) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

func (cr *Router) GET(path string, handler HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

func (cr *Router) PUT(path string, handler HandlerFunc) {
	cr.Base.PUT(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

// PublicGET serves anonymous callers too. Signed in callers still get their actor.
func (cr *Router) PublicGET(path string, handler gin.HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		withActor(c)
		handler(c)
	})
}
