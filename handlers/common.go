package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"memoria/gallery"
	"memoria/processing"
	"memoria/storage"
)

type Response struct {
	Error string `json:"error"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type IDRequest struct {
	ID string `json:"id" binding:"required"`
}

var (
	// Predefined responses
	OKResponse       = Response{}
	BadInputResponse = Response{"bad input"}
	InternalResponse = Response{"internal error"}
)

// writeError is the single place where service errors become HTTP statuses
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gallery.ErrUnauthorized), errors.Is(err, processing.ErrNoTicket):
		status = http.StatusForbidden
	case errors.Is(err, gallery.ErrValidation), errors.Is(err, processing.ErrUnsupportedType), errors.Is(err, storage.ErrBadKey):
		status = http.StatusBadRequest
	case errors.Is(err, processing.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, InternalResponse)
		return
	}
	c.JSON(status, Response{err.Error()})
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return false
	}
	return true
}

// intQuery reads an optional numeric query parameter, 0 when absent or malformed
func intQuery(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func boolQuery(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.Query(name))
	return b
}

// viewerOr falls back to the signed in user when id is empty
func viewerOr(c *gin.Context, id string) string {
	if id != "" {
		return id
	}
	actor, _ := gallery.ActorFrom(c.Request.Context())
	return actor.UserID
}
