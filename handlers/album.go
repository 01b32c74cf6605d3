package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria/gallery"
	"memoria/models"
)

type AlbumSaveRequest struct {
	ID string `json:"id" binding:"required"`
	gallery.AlbumPatch
}

func (a *API) AlbumCreate(c *gin.Context, user *models.User) {
	var req gallery.NewAlbum
	if !bindJSON(c, &req) {
		return
	}
	album, err := a.Gallery.CreateAlbum(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumSave(c *gin.Context, user *models.User) {
	var req AlbumSaveRequest
	if !bindJSON(c, &req) {
		return
	}
	album, err := a.Gallery.UpdateAlbum(c.Request.Context(), req.ID, req.AlbumPatch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumDelete(c *gin.Context, user *models.User) {
	var req IDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := a.Gallery.DeleteAlbum(c.Request.Context(), req.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func (a *API) AlbumGet(c *gin.Context) {
	album, err := a.Gallery.AlbumByID(c.Request.Context(), c.Query("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (a *API) AlbumList(c *gin.Context) {
	ownerID := viewerOr(c, c.Query("user_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, BadInputResponse)
		return
	}
	page, err := a.Gallery.AlbumsByUser(c.Request.Context(),
		ownerID,
		boolQuery(c, "include_private"),
		intQuery(c, "limit"),
		c.Query("cursor"),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) AlbumPublic(c *gin.Context) {
	page, err := a.Gallery.PublicAlbums(c.Request.Context(), intQuery(c, "limit"), c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) AlbumCount(c *gin.Context) {
	ownerID := viewerOr(c, c.Query("user_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, BadInputResponse)
		return
	}
	count, err := a.Gallery.AlbumCountByUser(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{count})
}

func (a *API) AlbumSearch(c *gin.Context) {
	albums, err := a.Gallery.SearchAlbums(c.Request.Context(), c.Query("q"), intQuery(c, "limit"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, albums)
}
