package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhttp "github.com/ddanilenko/inkpost/internal/auth/http"
	authrepo "github.com/ddanilenko/inkpost/internal/auth/repository"
	authservice "github.com/ddanilenko/inkpost/internal/auth/service"
	"github.com/ddanilenko/inkpost/internal/common/clock"
	"github.com/ddanilenko/inkpost/internal/common/config"
	"github.com/ddanilenko/inkpost/internal/common/constants"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	"github.com/ddanilenko/inkpost/internal/common/db"
	commonhttp "github.com/ddanilenko/inkpost/internal/common/http"
	"github.com/ddanilenko/inkpost/internal/common/jwtverify"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/common/server"
	"github.com/ddanilenko/inkpost/internal/media"
	"github.com/ddanilenko/inkpost/internal/migrate"
	posthttp "github.com/ddanilenko/inkpost/internal/post/http"
	postrepo "github.com/ddanilenko/inkpost/internal/post/repository"
	postservice "github.com/ddanilenko/inkpost/internal/post/service"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "api", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := migrate.Up(context.Background(), cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	log.Info("database migrations applied")

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	clk := clock.NewRealClock()
	ids := crypto.NewUUIDGenerator()
	hasher := &crypto.BcryptHasher{}

	tokens := authservice.NewTokenIssuer(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		ids,
		clk,
	)

	var uploader media.Uploader
	if cfg.S3.Enabled() {
		s3Uploader, err := media.NewS3Uploader(context.Background(), media.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			log.Fatalf("failed to initialize media storage: %v", err)
		}
		uploader = s3Uploader
		log.Infof("media storage enabled: bucket=%s", cfg.S3.Bucket)
	} else {
		log.Warn("media storage not configured, uploads disabled")
	}

	users := authrepo.NewPgUserRepository(pool)
	posts := postrepo.NewPgPostRepository(pool)

	auth := authservice.NewAuthService(users, hasher, ids, tokens, log)
	postSvc := postservice.NewPostService(posts, ids, log)

	authMW := jwtverify.Middleware(jwtverify.Config{
		Secret:     cfg.AccessTokenSecret,
		CookieName: constants.AccessTokenCookie,
		Clock:      clk,
	}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.Handle("/metrics", promhttp.Handler())

	authhttp.NewHandler(auth, uploader, log).Register(mux, authMW)
	posthttp.NewHandler(postSvc, uploader, log).Register(mux, authMW)

	rateLimiter := commonhttp.NewStrictRateLimiter()
	handler := commonhttp.BuildBaseHandler(cfg.CORSOrigin, log, rateLimiter.Middleware(mux))

	srv := server.NewServer(server.DefaultServerConfig(cfg.HTTPPort), handler)
	server.StartWithGracefulShutdown(srv, log, "api")
}
