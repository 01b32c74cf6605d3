package auth

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"memoria/gallery"
	"memoria/models"
)

const (
	userIdKey     = "id"
	externalIdKey = "ext"
	stateKey      = "oidc_state"
)

type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

// Login binds the session to a verified user
func (s *Session) Login(user models.User) error {
	s.Delete(stateKey)
	s.Set(userIdKey, user.ID)
	s.Set(externalIdKey, user.ExternalID)
	return s.Save()
}

func (s *Session) LogoutUser() {
	s.Delete(userIdKey)
	s.Delete(externalIdKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = s.Save()
}

func (s *Session) Actor() (gallery.Actor, bool) {
	id, _ := s.Get(userIdKey).(string)
	if id == "" {
		return gallery.Actor{}, false
	}
	ext, _ := s.Get(externalIdKey).(string)
	return gallery.Actor{UserID: id, ExternalID: ext}, true
}
