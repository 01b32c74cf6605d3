package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Bucket    string `json:"bucket"`
	FreeSpace uint64 `json:"free_space"`
}

func (a *API) Health(c *gin.Context) {
	bucket := a.Storage.GetBucket()
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Bucket:    bucket.Name,
		FreeSpace: a.Storage.GetFreeSpace(),
	})
}
