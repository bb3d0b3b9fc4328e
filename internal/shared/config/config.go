package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Ark        ArkConfig        `mapstructure:"ark"`
	Rehost     RehostConfig     `mapstructure:"rehost"`
	Storage    StorageConfig    `mapstructure:"storage"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ArkConfig holds generation provider configuration.
type ArkConfig struct {
	// APIKey is the process-wide default credential. Requests may carry
	// their own key, which takes precedence.
	APIKey string `mapstructure:"api_key"`
	// BaseURL, when set, pins the pool to exactly this endpoint and
	// disables regional fallback.
	BaseURL string `mapstructure:"base_url"`
	// Endpoints is the ordered regional fallback list used when no
	// BaseURL override is present.
	Endpoints []string `mapstructure:"endpoints"`
	Model     string   `mapstructure:"model"`

	PollInterval     time.Duration `mapstructure:"poll_interval"`
	StatusDeadline   time.Duration `mapstructure:"status_deadline"`
	GenerateDeadline time.Duration `mapstructure:"generate_deadline"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// RehostConfig holds public file-host configuration.
type RehostConfig struct {
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// StorageConfig holds local file storage configuration.
type StorageConfig struct {
	UploadsDir     string `mapstructure:"uploads_dir"`
	OutputsDir     string `mapstructure:"outputs_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// HTTPClientConfig holds outbound HTTP transport configuration.
type HTTPClientConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
	DownloadTimeout     time.Duration `mapstructure:"download_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/reelforge")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("REELFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The provider credential is commonly supplied through the vendor's
	// own variable name; accept it alongside the prefixed form.
	if err := v.BindEnv("ark.api_key", "REELFORGE_ARK_API_KEY", "ARK_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("ark.base_url", "REELFORGE_ARK_BASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.idle_timeout", "120s")

	// Ark provider
	v.SetDefault("ark.endpoints", []string{
		"https://ark.ap-southeast.bytepluses.com/api/v3",
		"https://ark.cn-beijing.volces.com/api/v3",
	})
	v.SetDefault("ark.model", "seedance-1-0-lite-i2v-250428")
	v.SetDefault("ark.poll_interval", "5s")
	v.SetDefault("ark.status_deadline", "3s")
	v.SetDefault("ark.generate_deadline", "5m")
	v.SetDefault("ark.request_timeout", "60s")

	// Rehosting
	v.SetDefault("rehost.upload_timeout", "180s")

	// Storage
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.outputs_dir", "outputs")
	v.SetDefault("storage.max_upload_bytes", int64(16<<20))

	// Outbound HTTP
	v.SetDefault("http_client.dial_timeout", "10s")
	v.SetDefault("http_client.keep_alive", "30s")
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.idle_conn_timeout", "90s")
	v.SetDefault("http_client.tls_handshake_timeout", "10s")
	v.SetDefault("http_client.response_timeout", "60s")
	v.SetDefault("http_client.download_timeout", "120s")

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
