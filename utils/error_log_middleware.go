package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxLoggedBody = 512

type errorLogWriter struct {
	gin.ResponseWriter
	path string
}

func (w *errorLogWriter) Write(b []byte) (int, error) {
	if status := w.Status(); status >= 400 {
		body := b
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody]
		}
		log.Debug().Str("path", w.path).Int("status", status).Bytes("body", body).Msg("Error response")
	}
	return w.ResponseWriter.Write(b)
}

// ErrorLogMiddleware logs error response bodies at debug level. It does not see through gzip.
func ErrorLogMiddleware(c *gin.Context) {
	c.Writer = &errorLogWriter{ResponseWriter: c.Writer, path: c.Request.URL.Path}
	c.Next()
}
