// Package handlers exposes the gallery over HTTP
package handlers

import (
	"github.com/gin-gonic/gin"

	"memoria/auth"
	"memoria/gallery"
	"memoria/processing"
	"memoria/storage"
	"memoria/utils"
)

const blobCacheTime = 7 * 86400

type API struct {
	Gallery *gallery.Service
	Uploads *processing.Uploader
	Storage storage.StorageAPI
	Reaper  gallery.Reaper
}

// Routes registers every gallery endpoint. Session middleware must already be installed on base.
func (a *API) Routes(base gin.IRouter, router *auth.Router) {
	// Albums
	router.POST("/album/create", a.AlbumCreate)
	router.POST("/album/save", a.AlbumSave)
	router.POST("/album/delete", a.AlbumDelete)
	router.PublicGET("/album/get", a.AlbumGet)
	router.PublicGET("/album/list", a.AlbumList)
	router.PublicGET("/album/public", a.AlbumPublic)
	router.PublicGET("/album/count", a.AlbumCount)
	router.PublicGET("/album/search", a.AlbumSearch)
	// Photos
	router.POST("/photo/add", a.PhotoAdd)
	router.POST("/photo/upload", a.PhotoUpload)
	router.POST("/photo/save", a.PhotoSave)
	router.POST("/photo/delete", a.PhotoDelete)
	router.PublicGET("/photo/get", a.PhotoGet)
	router.PublicGET("/photo/album", a.PhotoAlbum)
	router.PublicGET("/photo/user", a.PhotoUser)
	router.PublicGET("/photo/search", a.PhotoSearch)
	router.PublicGET("/photo/explore", a.PhotoExplore)
	router.PublicGET("/photo/count", a.PhotoCount)
	// Uploads
	router.POST("/upload/url", a.UploadURL)
	router.PUT("/upload/blob", a.UploadBlob)
	base.GET("/blob", (&utils.CacheRouter{CacheTime: blobCacheTime, Immutable: true}).Handler(), a.Blob)
	// Users
	router.GET("/user/me", a.UserMe)
	router.PublicGET("/user/get", a.UserGet)
	router.PublicGET("/user/list", a.UserList)
	router.PublicGET("/user/available", a.UserAvailable)
	base.POST("/user/logout", a.UserLogout)
	// Ops
	base.GET("/health", a.Health)
}
