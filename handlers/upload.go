package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"memoria/models"
	"memoria/storage"
)

type UploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

type UploadURLResponse struct {
	StorageID string `json:"storage_id"`
	URL       string `json:"url"`
}

type UploadBlobResponse struct {
	StorageID string `json:"storage_id"`
	Size      int64  `json:"size"`
}

func (a *API) UploadURL(c *gin.Context, user *models.User) {
	var req UploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	key, url, err := a.Uploads.IssueURL(c.Request.Context(), user.ID, req.ContentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadURLResponse{StorageID: key, URL: url})
}

// UploadBlob receives the raw bytes for a key issued by UploadURL (disk buckets)
func (a *API) UploadBlob(c *gin.Context, user *models.User) {
	key := c.Query("key")
	size, err := a.Uploads.Accept(c.Request.Context(), user.ID, key, c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadBlobResponse{StorageID: key, Size: size})
}

func (a *API) Blob(c *gin.Context) {
	key, err := storage.CleanKey(c.Query("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	a.Storage.Serve(key, c.Request, c.Writer)
}
