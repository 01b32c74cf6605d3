package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1
)

// CacheRouter sets cache-control on every response of the routes it wraps
type CacheRouter struct {
	CacheTime int // seconds, defaults to CacheNoCache
	// Immutable marks content that never changes under the same URL, e.g. blobs keyed by uuid
	Immutable bool
}

func (cr *CacheRouter) header() string {
	if cr.CacheTime == CacheNoCache {
		return "no-cache"
	}
	value := "private, max-age=" + strconv.Itoa(cr.CacheTime)
	if cr.Immutable {
		value += ", immutable"
	}
	return value
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	if cr.CacheTime == CacheCustom {
		return func(c *gin.Context) { c.Next() }
	}
	value := cr.header()
	return func(c *gin.Context) {
		c.Header("cache-control", value)
		c.Next()
	}
}
