package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"memoria/gallery"
	"memoria/models"
	"memoria/processing"
)

type PhotoSaveRequest struct {
	ID string `json:"id" binding:"required"`
	gallery.PhotoPatch
}

// addPhoto records the photo once its bytes are in the bucket and pass the upload
// limits. A missing thumbnail is derived from the original, which serves as
// its own thumbnail if that fails.
func (a *API) addPhoto(ctx context.Context, in gallery.NewPhoto) (models.Photo, error) {
	original, err := a.Uploads.Verify(ctx, in.StorageID)
	if err != nil {
		return models.Photo{}, err
	}
	var generated string
	if in.ThumbnailStorageID == "" {
		thumb, err := a.Uploads.Thumbnail(ctx, in.StorageID, original)
		if err != nil {
			log.Warn().Err(err).Str("key", in.StorageID).Msg("Thumbnail failed, using original")
			thumb = in.StorageID
		} else {
			generated = thumb
		}
		in.ThumbnailStorageID = thumb
	}
	photo, err := a.Gallery.AddPhoto(ctx, in)
	if err != nil {
		if generated != "" {
			a.reap(generated)
		}
		return photo, err
	}
	a.Uploads.Release(photo.StorageKeys()...)
	return photo, nil
}

// discard drops an upload that will never be attached to a photo
func (a *API) discard(key string) {
	a.Uploads.Release(key)
	a.reap(key)
}

func (a *API) reap(keys ...string) {
	if a.Reaper != nil {
		a.Reaper.Enqueue(keys...)
	}
}

func rejectedUpload(err error) bool {
	return errors.Is(err, processing.ErrTooLarge) || errors.Is(err, processing.ErrUnsupportedType)
}

func (a *API) PhotoAdd(c *gin.Context, user *models.User) {
	var req gallery.NewPhoto
	if !bindJSON(c, &req) {
		return
	}
	if err := a.Uploads.Claim(req.StorageID, user.ID); err != nil {
		writeError(c, err)
		return
	}
	if req.ThumbnailStorageID != "" && req.ThumbnailStorageID != req.StorageID {
		if err := a.Uploads.Claim(req.ThumbnailStorageID, user.ID); err != nil {
			writeError(c, err)
			return
		}
	}
	photo, err := a.addPhoto(c.Request.Context(), req)
	if err != nil {
		if rejectedUpload(err) {
			a.discard(req.StorageID)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// PhotoUpload takes a multipart form with the image in "file"
func (a *API) PhotoUpload(c *gin.Context, user *models.User) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, processing.MaxUploadSize+1<<20)
	header, err := c.FormFile("file")
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(c, processing.ErrTooLarge)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, BadInputResponse)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	key, err := a.Uploads.Store(ctx, user.ID, file)
	if err != nil {
		writeError(c, err)
		return
	}
	in := gallery.NewPhoto{
		AlbumID:   c.PostForm("album_id"),
		Title:     c.PostForm("title"),
		StorageID: key,
		Tags:      formTags(c),
	}
	if description, ok := c.GetPostForm("description"); ok {
		in.Description = &description
	}
	photo, err := a.addPhoto(ctx, in)
	if err != nil {
		a.discard(key)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// formTags accepts repeated "tags" fields or a single comma separated one
func formTags(c *gin.Context) []string {
	var tags []string
	for _, v := range c.PostFormArray("tags") {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func (a *API) PhotoSave(c *gin.Context, user *models.User) {
	var req PhotoSaveRequest
	if !bindJSON(c, &req) {
		return
	}
	photo, err := a.Gallery.UpdatePhoto(c.Request.Context(), req.ID, req.PhotoPatch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (a *API) PhotoDelete(c *gin.Context, user *models.User) {
	var req IDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := a.Gallery.DeletePhoto(c.Request.Context(), req.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func (a *API) PhotoGet(c *gin.Context) {
	photo, err := a.Gallery.PhotoByID(c.Request.Context(), c.Query("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (a *API) PhotoAlbum(c *gin.Context) {
	page, err := a.Gallery.PhotosByAlbum(c.Request.Context(), c.Query("album_id"), intQuery(c, "limit"), c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) PhotoUser(c *gin.Context) {
	ownerID := viewerOr(c, c.Query("user_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, BadInputResponse)
		return
	}
	page, err := a.Gallery.PhotosByUser(c.Request.Context(), ownerID, intQuery(c, "limit"), c.Query("cursor"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) PhotoSearch(c *gin.Context) {
	photos, err := a.Gallery.SearchPhotos(c.Request.Context(), c.Query("q"), intQuery(c, "limit"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

func (a *API) PhotoExplore(c *gin.Context) {
	photos, err := a.Gallery.ExplorePhotos(c.Request.Context(), intQuery(c, "limit"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

func (a *API) PhotoCount(c *gin.Context) {
	count, err := a.Gallery.PhotoCountByAlbum(c.Request.Context(), c.Query("album_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{count})
}
