package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria/auth"
	"memoria/models"
)

type AvailableResponse struct {
	Available bool `json:"available"`
}

func (a *API) UserMe(c *gin.Context, user *models.User) {
	c.JSON(http.StatusOK, user)
}

func (a *API) UserGet(c *gin.Context) {
	user, err := a.Gallery.UserByID(c.Request.Context(), c.Query("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) UserList(c *gin.Context) {
	page, err := a.Gallery.ListUsers(c.Request.Context(), intQuery(c, "limit"), c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) UserAvailable(c *gin.Context) {
	ok, err := a.Gallery.UsernameAvailable(c.Request.Context(), c.Query("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, AvailableResponse{ok})
}

func (a *API) UserLogout(c *gin.Context) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}
