package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"memoria/auth"
	"memoria/config"
	"memoria/db"
	"memoria/gallery"
	"memoria/handlers"
	"memoria/processing"
	"memoria/storage"
	"memoria/store"
	"memoria/store/gormstore"
	"memoria/store/mongostore"
	"memoria/utils"
)

const (
	sessionCookieName = "token"
	ticketSweepEvery  = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	utils.InitLogger(cfg.LogLevel, cfg.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, sessionStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot open database")
	}
	defer closeStore()

	blobs, err := storage.New(newBucket(cfg.Storage))
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot open storage bucket")
	}
	reaper := processing.NewReaper(blobs, st, cfg.Storage.ReaperQueue)
	go reaper.Start(ctx)
	tickets := processing.NewUploadTickets(processing.TicketTTL)
	go sweepTickets(ctx, tickets)

	svc := gallery.New(st, blobs, reaper)
	api := &handlers.API{
		Gallery: svc,
		Uploads: processing.NewUploader(blobs, tickets),
		Storage: blobs,
		Reaper:  reaper,
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(utils.RequestLogger(), utils.Recovery(), utils.Metrics())
	if cfg.DebugMode {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.SessionMaxAge.Seconds()),
		HttpOnly: true,
	})
	router.Use(sessions.Sessions(sessionCookieName, sessionStore))
	if !cfg.DebugMode {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/blob", "/upload/blob", "/photo/upload"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // individual end-points can override that

	authRouter := &auth.Router{Base: router, Users: svc}
	api.Routes(router, authRouter)
	router.GET("/metrics", utils.MetricsHandler())

	if cfg.OIDCEnabled() {
		oidc, err := auth.NewOIDC(ctx, cfg.Auth, svc)
		if err != nil {
			log.Fatal().Err(err).Str("issuer", cfg.Auth.Issuer).Msg("Cannot set up OIDC")
		}
		router.GET("/auth/login", oidc.Login)
		router.GET("/auth/callback", oidc.Callback)
	} else {
		log.Warn().Msg("OIDC is not configured, nobody can sign in")
	}
	if cfg.Webhook.Secret != "" {
		hook, err := auth.NewWebhook(cfg.Webhook.Secret, svc)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid webhook secret")
		}
		router.POST("/webhooks/identity", hook.Handle)
	}

	if len(cfg.Server.TLSDomains) > 0 {
		log.Info().Strs("domains", cfg.Server.TLSDomains).Msg("Starting server with autotls")
		err = autotls.RunWithContext(ctx, router, cfg.Server.TLSDomains...)
	} else {
		err = serve(ctx, cfg.Server, router)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server stopped")
}

// openStore picks Mongo when a URI is configured and GORM otherwise.
// Sessions live in the SQL database when there is one.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, sessions.Store, func(), error) {
	secret := []byte(cfg.Auth.SessionSecret)
	if cfg.Database.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Database.MongoURI))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		if err = client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		st := mongostore.New(client, client.Database(cfg.Database.MongoDB))
		if err = st.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		log.Info().Str("db", cfg.Database.MongoDB).Msg("Using MongoDB")
		return st, cookie.NewStore(secret), closeFn, nil
	}
	gdb, err := db.Open(cfg.Database, cfg.DebugMode)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return gormstore.New(gdb), gormsessions.NewStore(gdb, true, secret), closeFn, nil
}

func newBucket(cfg config.StorageConfig) *storage.Bucket {
	bucket := &storage.Bucket{
		Name:          cfg.Bucket,
		StorageType:   storage.StorageTypeFile,
		Path:          cfg.Path,
		BaseURL:       cfg.BaseURL,
		Endpoint:      cfg.Endpoint,
		Region:        cfg.Region,
		S3Key:         cfg.S3Key,
		S3Secret:      cfg.S3Secret,
		SSEEncryption: cfg.SSEEncryption,
	}
	if cfg.Type == "s3" {
		bucket.StorageType = storage.StorageTypeS3
	}
	if bucket.Name == "" {
		bucket.Name = "local"
	}
	return bucket
}

func sweepTickets(ctx context.Context, tickets *processing.UploadTickets) {
	ticker := time.NewTicker(ticketSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tickets.Sweep(); n > 0 {
				log.Debug().Int("expired", n).Msg("Upload tickets swept")
			}
		}
	}
}

func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.BindAddress).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
