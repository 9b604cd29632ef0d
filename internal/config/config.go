package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Auth struct {
		JWTSecret     string
		TokenTTL      time.Duration
		AdminUsername string
		AdminPassword string
		AdminRFID     string
		AdminFullname string
	}
	Gate struct {
		SnapshotSize   int
		UTCOffsetHours int
		OpenHour       int
		CloseHour      int
	}
	Report struct {
		Dir      string
		Title    string
		Subtitle string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	HTTP struct {
		RateLimit int
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// Values already present in the environment win over .env.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:9000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/gate.db")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("auth.adminusername", "admin")
	v.SetDefault("auth.adminpassword", "")
	v.SetDefault("auth.adminrfid", "12345678")
	v.SetDefault("auth.adminfullname", "Administrator")
	v.SetDefault("gate.snapshotsize", 50)
	v.SetDefault("gate.utcoffsethours", 7)
	v.SetDefault("gate.openhour", 6)
	v.SetDefault("gate.closehour", 18)
	v.SetDefault("report.dir", "data/pdf")
	v.SetDefault("report.title", "Riwayat Buka/Tutup Gerbang TK")
	v.SetDefault("report.subtitle", "TK Tadika Mesra")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "reports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("http.ratelimit", 60)
	v.SetDefault("log.level", "info")
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required (GATE_AUTH_JWTSECRET)")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Gate.OpenHour < 0 || c.Gate.CloseHour > 24 || c.Gate.OpenHour >= c.Gate.CloseHour {
		return fmt.Errorf("invalid admission window [%d, %d)", c.Gate.OpenHour, c.Gate.CloseHour)
	}
	if c.Gate.UTCOffsetHours < -12 || c.Gate.UTCOffsetHours > 14 {
		return fmt.Errorf("invalid utc offset %d", c.Gate.UTCOffsetHours)
	}
	if c.Gate.SnapshotSize <= 0 {
		return fmt.Errorf("gate snapshot size must be positive")
	}
	return nil
}
