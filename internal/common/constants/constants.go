package constants

import "time"

const (
	PasswordMinLength   = 8
	PasswordMaxLength   = 72
	FullNameMaxLength   = 100
	BioMaxLength        = 500
	JWTSecretMinLength  = 32
	RefreshTokenJTISize = 16

	PostTitleMaxLength = 200
	PostMaxTags        = 20
	DefaultPageSize    = 10
	MaxPageSize        = 100

	MaxImageSizeBytes     = 5 * 1024 * 1024
	DefaultMaxRequestSize = 10 << 20

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort        = "8080"
	DefaultRequestTimeout  = 5 * time.Second
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	RateLimitCleanupInterval           = 10 * time.Minute
	RateLimitLoginRequestsPerSecond    = 1
	RateLimitLoginBurst                = 5
	RateLimitRegisterRequestsPerSecond = 0.5
	RateLimitRegisterBurst             = 3
	RateLimitRefreshRequestsPerSecond  = 1
	RateLimitRefreshBurst              = 5
	RateLimitGeneralRequestsPerSecond  = 20
	RateLimitGeneralBurst              = 40

	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
