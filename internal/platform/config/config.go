package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// Token signing. Access and refresh secrets are independent so a token
	// signed with one can never verify against the other.
	AccessTokenSecret          string
	RefreshTokenSecret         string
	AccessTokenExpiryDuration  time.Duration
	RefreshTokenExpiryDuration time.Duration
	JWTIssuer                  string
	JWTAudience                string

	// Cookie transport for browser clients.
	AccessTokenCookieName  string
	RefreshTokenCookieName string
	RefreshTokenCookiePath string `mapstructure:"REFRESH_TOKEN_COOKIE_PATH"`

	// External OAuth Providers
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
	FrontendBaseURL    string `mapstructure:"FRONTEND_BASE_URL"`

	// Blob storage (S3 or MinIO).
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`

	// Presigned download links expire after this duration.
	DownloadURLExpiryDuration time.Duration

	PostHogAPIKey string `mapstructure:"POSTHOG_API_KEY"`
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("ACCESS_TOKEN_SECRET", "default_insecure_access_secret_please_change_this_!@#$")
	viper.SetDefault("REFRESH_TOKEN_SECRET", "default_insecure_refresh_secret_please_change_this_!@#$")
	viper.SetDefault("ACCESS_TOKEN_EXPIRY_DURATION", "15m")
	viper.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	viper.SetDefault("JWT_ISSUER", "filevault-app")
	viper.SetDefault("JWT_AUDIENCE", "filevault-api")
	viper.SetDefault("ACCESS_TOKEN_COOKIE_NAME", "atid")
	viper.SetDefault("REFRESH_TOKEN_COOKIE_NAME", "rtid")
	viper.SetDefault("REFRESH_TOKEN_COOKIE_PATH", "/api/v1/auth")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "")
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_BUCKET", "filevault")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_ACCESS_KEY", "")
	viper.SetDefault("S3_SECRET_KEY", "")
	viper.SetDefault("DOWNLOAD_URL_EXPIRY_DURATION", "15m")
	viper.SetDefault("POSTHOG_API_KEY", "")

	// Environment variables override .env file values, which override defaults.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.AccessTokenSecret = viper.GetString("ACCESS_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "default_insecure_access_secret_please_change_this_!@#$" {
		log.Println("Warning: ACCESS_TOKEN_SECRET not set. Using default insecure key. THIS IS NOT FOR PRODUCTION.")
	}
	cfg.RefreshTokenSecret = viper.GetString("REFRESH_TOKEN_SECRET")
	if cfg.RefreshTokenSecret == "default_insecure_refresh_secret_please_change_this_!@#$" {
		log.Println("Warning: REFRESH_TOKEN_SECRET not set. Using default insecure key. THIS IS NOT FOR PRODUCTION.")
	}

	cfg.AccessTokenExpiryDuration = parseDurationOr("ACCESS_TOKEN_EXPIRY_DURATION", 15*time.Minute)
	cfg.RefreshTokenExpiryDuration = parseDurationOr("REFRESH_TOKEN_EXPIRY_DURATION", 7*24*time.Hour)
	cfg.DownloadURLExpiryDuration = parseDurationOr("DOWNLOAD_URL_EXPIRY_DURATION", 15*time.Minute)

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.JWTAudience = viper.GetString("JWT_AUDIENCE")

	cfg.AccessTokenCookieName = viper.GetString("ACCESS_TOKEN_COOKIE_NAME")
	cfg.RefreshTokenCookieName = viper.GetString("REFRESH_TOKEN_COOKIE_NAME")
	cfg.RefreshTokenCookiePath = viper.GetString("REFRESH_TOKEN_COOKIE_PATH")

	cfg.GoogleClientID = viper.GetString("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = viper.GetString("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = viper.GetString("GOOGLE_REDIRECT_URL")
	cfg.FrontendBaseURL = viper.GetString("FRONTEND_BASE_URL")

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || cfg.GoogleRedirectURL == "" {
		log.Println("Warning: Google OAuth credentials not fully set. Google sign-in will be disabled.")
	}

	cfg.S3Region = viper.GetString("S3_REGION")
	cfg.S3Bucket = viper.GetString("S3_BUCKET")
	cfg.S3Endpoint = viper.GetString("S3_ENDPOINT")
	cfg.S3AccessKey = viper.GetString("S3_ACCESS_KEY")
	cfg.S3SecretKey = viper.GetString("S3_SECRET_KEY")
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		log.Println("Warning: S3 credentials not set. File storage will not function.")
	}

	cfg.PostHogAPIKey = viper.GetString("POSTHOG_API_KEY")

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
