// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno para los secretos.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration acepta en YAML tanto strings de time.ParseDuration ("15m", "1h")
// como enteros en nanosegundos.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("config: invalid duration %q", s)
}

// Std retorna el valor como time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL es la raíz pública del frontend de documentos; se usa
		// para armar el link de reset en los emails.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Storage struct {
		// pg | memory
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		// DefaultScopes para cuentas creadas vía login por directorio.
		DefaultScopes []string `yaml:"default_scopes"`
	} `yaml:"storage"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		// SigningKey es la seed ed25519 en base64 estándar (32 bytes).
		SigningKey string        `yaml:"signing_key"`
		AccessTTL  Duration      `yaml:"access_ttl"`
	} `yaml:"jwt"`

	OTP struct {
		TTL             Duration `yaml:"ttl"`
		CleanupInterval Duration `yaml:"cleanup_interval"`
	} `yaml:"otp"`

	Reset struct {
		TTL Duration `yaml:"ttl"`
	} `yaml:"reset"`

	SMTP struct {
		Host               string        `yaml:"host"`
		Port               int           `yaml:"port"`
		Username           string        `yaml:"username"`
		Password           string        `yaml:"password"`
		From               string        `yaml:"from"`
		TLS                string        `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
		Timeout            Duration      `yaml:"timeout"`
	} `yaml:"smtp"`

	Dispatcher struct {
		Workers     int           `yaml:"workers"`
		QueueSize   int           `yaml:"queue_size"`
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   Duration `yaml:"base_delay"`
		MaxElapsed  Duration `yaml:"max_elapsed"`
	} `yaml:"dispatcher"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Backend string `yaml:"backend"` // redis | memory
		Redis   struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Limit  int           `yaml:"limit"`
		Window Duration `yaml:"window"`
	} `yaml:"rate"`

	OIDC struct {
		Enabled      bool   `yaml:"enabled"`
		IssuerURL    string `yaml:"issuer_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"oidc"`
}

// Load lee el YAML en path (opcional), aplica defaults y overrides de
// entorno, y valida lo mínimo para poder arrancar.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "paperauth"
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = Duration(15 * time.Minute)
	}
	if c.OTP.TTL <= 0 {
		c.OTP.TTL = Duration(10 * time.Minute)
	}
	if c.OTP.CleanupInterval <= 0 {
		c.OTP.CleanupInterval = Duration(10 * time.Minute)
	}
	if c.Reset.TTL <= 0 {
		c.Reset.TTL = Duration(time.Hour)
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.Timeout <= 0 {
		c.SMTP.Timeout = Duration(10 * time.Second)
	}
	if c.Rate.Backend == "" {
		c.Rate.Backend = "memory"
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 10
	}
	if c.Rate.Window <= 0 {
		c.Rate.Window = Duration(time.Minute)
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func getEnvDur(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	return d, err == nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = Duration(v)
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Rate.Redis.Addr = v
	}
	if v, ok := getEnvStr("OIDC_CLIENT_SECRET"); ok {
		c.OIDC.ClientSecret = v
	}
}

// Validate chequea las combinaciones que impiden arrancar.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "pg":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for driver pg")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Rate.Enabled && c.Rate.Backend == "redis" && c.Rate.Redis.Addr == "" {
		return fmt.Errorf("config: rate.redis.addr is required for backend redis")
	}
	if c.OIDC.Enabled && (c.OIDC.IssuerURL == "" || c.OIDC.ClientID == "") {
		return fmt.Errorf("config: oidc.issuer_url and oidc.client_id are required when oidc is enabled")
	}
	return nil
}
