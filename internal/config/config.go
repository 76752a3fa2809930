package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver string `yaml:"driver"` // mongo | postgres | memory
		Mongo  struct {
			URI      string `yaml:"uri"`
			Database string `yaml:"database"`
		} `yaml:"mongo"`
		Postgres struct {
			DSN     string `yaml:"dsn"`
			Migrate bool   `yaml:"migrate"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"` // ENV: GIGLINK_REDIS_PASSWORD
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		Secret string   `yaml:"secret"` // HMAC secret; ENV: GIGLINK_SESSION_SECRET
		Issuer string   `yaml:"issuer"`
		TTL    Duration `yaml:"ttl"`
	} `yaml:"session"`

	Link struct {
		TTL Duration `yaml:"ttl"` // vida del link confirmation token
	} `yaml:"link"`

	Providers struct {
		Google struct {
			Enabled     bool     `yaml:"enabled"`
			ClientIDs   []string `yaml:"client_ids"` // una por superficie (web, ios, android)
			RedirectURI string   `yaml:"redirect_uri"`
		} `yaml:"google"`
		Apple struct {
			Enabled        bool     `yaml:"enabled"`
			ClientIDs      []string `yaml:"client_ids"`
			RedirectURI    string   `yaml:"redirect_uri"`
			TeamID         string   `yaml:"team_id"`
			KeyID          string   `yaml:"key_id"`
			PrivateKeyPath string   `yaml:"private_key_path"` // la .p8 del developer portal
		} `yaml:"apple"`
	} `yaml:"providers"`

	Rate struct {
		Enabled bool     `yaml:"enabled"`
		Limit   int      `yaml:"limit"`
		Window  Duration `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`
}

// Load lee el YAML, aplica defaults y overrides de entorno.
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
	c.applyEnv()
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnv pisa secretos y conexión desde el entorno; nunca van al YAML en
// producción.
func (c *Config) applyEnv() {
	if v := getenv("GIGLINK_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := getenv("GIGLINK_MONGO_URI"); v != "" {
		c.Storage.Mongo.URI = v
	}
	if v := getenv("GIGLINK_PG_DSN"); v != "" {
		c.Storage.Postgres.DSN = v
	}
	if v := getenv("GIGLINK_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("GIGLINK_REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("GIGLINK_SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("GIGLINK_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = "giglink"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = "giglink"
	}
	if c.Session.TTL.D <= 0 {
		c.Session.TTL = Duration{7 * 24 * time.Hour}
	}
	if c.Link.TTL.D <= 0 {
		c.Link.TTL = Duration{10 * time.Minute}
	}
	if c.Rate.Limit <= 0 {
		c.Rate.Limit = 10
	}
	if c.Rate.Window.D <= 0 {
		c.Rate.Window = Duration{time.Minute}
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("config: session secret is required (session.secret or GIGLINK_SESSION_SECRET)")
	}
	switch c.Storage.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Duration acepta duraciones estilo "10m" / "168h" en el YAML.
type Duration struct {
	D time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		d.D = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	d.D = parsed
	return nil
}
