package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ddanilenko/inkpost/internal/common/constants"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether the media store is configured. Upload endpoints
// reject files when it is not.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type APIConfig struct {
	HTTPPort           string
	DatabaseURL        string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RequestTimeout     time.Duration
	CORSOrigin         string
	S3                 S3Config
}

func LoadAPIConfig() (APIConfig, error) {
	accessSecret, err := mustEnv("ACCESS_TOKEN_SECRET")
	if err != nil {
		return APIConfig{}, err
	}

	refreshSecret, err := mustEnv("REFRESH_TOKEN_SECRET")
	if err != nil {
		return APIConfig{}, err
	}

	if err := validateTokenSecrets(accessSecret, refreshSecret); err != nil {
		return APIConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return APIConfig{}, err
	}

	return APIConfig{
		HTTPPort:           getEnv("HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:        databaseURL,
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenTTL:     getDurationEnv("ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL),
		RefreshTokenTTL:    getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL),
		RequestTimeout:     getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		CORSOrigin:         getEnv("CORS_ORIGIN", "*"),
		S3: S3Config{
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
	}, nil
}

func validateTokenSecrets(accessSecret, refreshSecret string) error {
	if len(accessSecret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: ACCESS_TOKEN_SECRET is %d bytes", commonerrors.ErrInvalidTokenSecret, len(accessSecret))
	}
	if len(refreshSecret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: REFRESH_TOKEN_SECRET is %d bytes", commonerrors.ErrInvalidTokenSecret, len(refreshSecret))
	}
	// A shared secret would let an access token pass refresh verification.
	if accessSecret == refreshSecret {
		return commonerrors.ErrTokenSecretsEqual
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", commonerrors.ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
